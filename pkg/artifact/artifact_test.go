package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRecord = `{
  "id": "7c1f2e3a-1111-2222-3333-444455556666",
  "orgId": "org-1",
  "name": "Support Bot",
  "createdAt": "2024-01-01T00:00:00Z",
  "updatedAt": "2024-02-01T00:00:00Z",
  "isServerUrlSecretSet": false,
  "model": {
    "provider": "openai",
    "model": "gpt-4o",
    "messages": [
      {"role": "system", "content": "You are <helpful> & kind.\nSecond line."},
      {"role": "assistant", "content": "hi"}
    ]
  },
  "firstMessage": "Hello! How can I help?",
  "analysisPlan": {
    "summaryPrompt": "Summarize the call.",
    "structuredDataPrompt": "Extract the caller name.",
    "structuredDataSchema": {"type": "object", "properties": {"name": {"type": "string"}}},
    "successEvaluationPrompt": "Was the call a success?",
    "successEvaluationRubric": "NumericScale"
  }
}`

const fullRecordDir = "support_bot_7c1f2e3a"

type fakeRegistry map[string]string

func (f fakeRegistry) RegisterDirectory(id, dir string) error {
	f[id] = dir
	return nil
}

func mustParse(t *testing.T, s string) record.Record {
	t.Helper()
	rec, err := record.Parse([]byte(s))
	require.NoError(t, err)
	return rec
}

func decodeFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// snapshot maps every file below dir to its content.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestDecompose_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	reg := fakeRegistry{}

	dir, err := NewDecomposer(root).Decompose(mustParse(t, fullRecord), reg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, fullRecordDir), dir)
	assert.Equal(t, dir, reg["7c1f2e3a-1111-2222-3333-444455556666"])

	assert.Equal(t, "You are <helpful> & kind.\nSecond line.", readText(t, filepath.Join(dir, SystemPromptFile)))
	assert.Equal(t, "Hello! How can I help?", readText(t, filepath.Join(dir, FirstMessageFile)))
	assert.Equal(t, "Summarize the call.", readText(t, filepath.Join(dir, SummaryPromptFile)))
	assert.Equal(t, "Extract the caller name.", readText(t, filepath.Join(dir, StructuredDataPromptFile)))
	assert.Equal(t, "Was the call a success?", readText(t, filepath.Join(dir, SuccessEvaluationPromptFile)))

	schema := readText(t, filepath.Join(dir, StructuredDataSchemaFile))
	assert.Contains(t, schema, "\n  \"type\": \"object\"")

	meta := decodeFile(t, filepath.Join(dir, MetadataFile))
	assert.Equal(t, map[string]interface{}{
		"id":                   "7c1f2e3a-1111-2222-3333-444455556666",
		"orgId":                "org-1",
		"createdAt":            "2024-01-01T00:00:00Z",
		"updatedAt":            "2024-02-01T00:00:00Z",
		"isServerUrlSecretSet": false,
	}, meta)

	skeleton := decodeFile(t, filepath.Join(dir, ConfigFile))
	for _, key := range record.MetadataKeys {
		assert.NotContains(t, skeleton, key)
	}
	assert.Equal(t, "Support Bot", skeleton["name"])
	assert.Equal(t, "file:///first_message.txt", skeleton["firstMessage"])

	msgs := skeleton["model"].(map[string]interface{})["messages"].([]interface{})
	assert.Equal(t, "file:///system_prompt.txt", msgs[0].(map[string]interface{})["content"])
	assert.Equal(t, "hi", msgs[1].(map[string]interface{})["content"])

	plan := skeleton["analysisPlan"].(map[string]interface{})
	assert.Equal(t, "file:///summary_prompt.txt", plan["summaryPrompt"])
	assert.Equal(t, "file:///structured_data_prompt.txt", plan["structuredDataPrompt"])
	assert.Equal(t, "file:///structured_data_schema.json", plan["structuredDataSchema"])
	assert.Equal(t, "file:///success_evaluation_prompt.txt", plan["successEvaluationPrompt"])
	assert.Equal(t, "NumericScale", plan["successEvaluationRubric"])
}

func TestDecompose_SkeletonIsTwoSpaceIndented(t *testing.T) {
	dir, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, `{"id":"abc","model":{"messages":[]}}`), nil)
	require.NoError(t, err)

	want := "{\n  \"model\": {\n    \"messages\": []\n  }\n}\n"
	assert.Equal(t, want, readText(t, filepath.Join(dir, ConfigFile)))
}

func TestRoundTrip(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	dir, err := NewDecomposer(root).Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)

	outFile, err := NewRecomposer(out).Recompose(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "assistant_"+fullRecordDir+".json"), outFile)

	var want map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(fullRecord), &want))
	if diff := cmp.Diff(want, decodeFile(t, outFile)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_KeepsKeyOrderOfContent(t *testing.T) {
	dir, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)

	rec, err := NewRecomposer(t.TempDir()).Load(dir)
	require.NoError(t, err)

	// Metadata is appended after the content keys.
	assert.Equal(t, []string{
		"name", "model", "firstMessage", "analysisPlan",
		"id", "orgId", "createdAt", "updatedAt", "isServerUrlSecretSet",
	}, rec.Keys())
}

func TestDecompose_WithoutAnalysisPlan(t *testing.T) {
	root := t.TempDir()
	in := `{"id":"abc12345xyz","name":"Lean","model":{"messages":[{"role":"system","content":"be brief"}]},"firstMessage":"hey"}`

	dir, err := NewDecomposer(root).Decompose(mustParse(t, in), nil)
	require.NoError(t, err)

	for _, name := range []string{SummaryPromptFile, StructuredDataPromptFile, StructuredDataSchemaFile, SuccessEvaluationPromptFile} {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
	assert.NotContains(t, decodeFile(t, filepath.Join(dir, ConfigFile)), "analysisPlan")

	outFile, err := NewRecomposer(t.TempDir()).Recompose(dir)
	require.NoError(t, err)
	got := decodeFile(t, outFile)
	assert.NotContains(t, got, "analysisPlan")
	assert.Equal(t, "hey", got["firstMessage"])
}

func TestDecompose_NoSystemMessageIsNotFabricated(t *testing.T) {
	in := `{"id":"abc","model":{"messages":[{"role":"user","content":"hello"}]}}`
	dir, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, in), nil)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, SystemPromptFile))
	assert.NoFileExists(t, filepath.Join(dir, FirstMessageFile))
}

func TestDecompose_OnlyFirstSystemMessage(t *testing.T) {
	in := `{"id":"abc","model":{"messages":[
		{"role":"user","content":"u"},
		{"role":"system","content":"first"},
		{"role":"system","content":"second"}]}}`

	dir, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, in), nil)
	require.NoError(t, err)
	assert.Equal(t, "first", readText(t, filepath.Join(dir, SystemPromptFile)))

	msgs := decodeFile(t, filepath.Join(dir, ConfigFile))["model"].(map[string]interface{})["messages"].([]interface{})
	assert.Equal(t, "u", msgs[0].(map[string]interface{})["content"])
	assert.Equal(t, "file:///system_prompt.txt", msgs[1].(map[string]interface{})["content"])
	assert.Equal(t, "second", msgs[2].(map[string]interface{})["content"])
}

func TestDecompose_NullFieldIsAbsent(t *testing.T) {
	in := `{"id":"abc","firstMessage":null,"model":{"messages":[]}}`
	dir, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, in), nil)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dir, FirstMessageFile))
	skeleton := decodeFile(t, filepath.Join(dir, ConfigFile))
	assert.Contains(t, skeleton, "firstMessage")
	assert.Nil(t, skeleton["firstMessage"])
}

func TestDecompose_RequiresID(t *testing.T) {
	_, err := NewDecomposer(t.TempDir()).Decompose(mustParse(t, `{"name":"x"}`), nil)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestDecompose_Idempotent(t *testing.T) {
	root := t.TempDir()
	d := NewDecomposer(root)

	dir, err := d.Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)
	first := snapshot(t, dir)

	dir2, err := d.Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)
	assert.Equal(t, dir, dir2)
	assert.Equal(t, first, snapshot(t, dir))
	assert.Len(t, first, 8)
}

func TestDecompose_OverwritesKnownArtifactsOnly(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, fullRecordDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FirstMessageFile), []byte("stale"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("keep me"), 0644))

	_, err := NewDecomposer(root).Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", readText(t, filepath.Join(dir, FirstMessageFile)))
	assert.Equal(t, "keep me", readText(t, filepath.Join(dir, "notes.md")))
}

func TestDecompose_RemovesStaleArtifacts(t *testing.T) {
	root := t.TempDir()
	d := NewDecomposer(root)
	dir, err := d.Decompose(mustParse(t, fullRecord), nil)
	require.NoError(t, err)

	stripped := `{"id":"7c1f2e3a-1111-2222-3333-444455556666","name":"Support Bot","model":{"messages":[{"role":"user","content":"hi"}]}}`
	dir2, err := d.Decompose(mustParse(t, stripped), nil)
	require.NoError(t, err)
	require.Equal(t, dir, dir2)

	for _, f := range Fields {
		assert.NoFileExists(t, filepath.Join(dir, f.Filename))
	}

	rec, err := NewRecomposer(t.TempDir()).Load(dir)
	require.NoError(t, err)
	assert.False(t, rec.Get("firstMessage").Exists())
	assert.False(t, rec.Get("analysisPlan").Exists())
	assert.EqualValues(t, 1, rec.Get("model.messages.#").Int())
	assert.Equal(t, "user", rec.Get("model.messages.0.role").String())
}

func TestDecompose_NonStringFieldRemovesArtifact(t *testing.T) {
	root := t.TempDir()
	d := NewDecomposer(root)
	dir, err := d.Decompose(mustParse(t, `{"id":"abc","firstMessage":"hello"}`), nil)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, FirstMessageFile))

	_, err = d.Decompose(mustParse(t, `{"id":"abc","firstMessage":{"text":"hello"}}`), nil)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, FirstMessageFile))

	rec, err := NewRecomposer(t.TempDir()).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hello", rec.Get("firstMessage.text").String())
}

func TestDecompose_IOError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("not a directory"), 0644))

	_, err := NewDecomposer(root).Decompose(mustParse(t, fullRecord), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, IsIO(err))
	assert.False(t, IsNotFound(err))
	var aerr *Error
	require.True(t, errors.As(err, &aerr))
	assert.NotEmpty(t, aerr.Path)
}

func TestDecomposeFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "assistant_x.json")
	require.NoError(t, os.WriteFile(src, []byte(fullRecord), 0644))

	dir, err := NewDecomposer(root).DecomposeFile(src, nil)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ConfigFile))

	_, err = NewDecomposer(root).DecomposeFile(filepath.Join(root, "missing.json"), nil)
	assert.True(t, IsNotFound(err))

	bad := filepath.Join(root, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0644))
	_, err = NewDecomposer(root).DecomposeFile(bad, nil)
	assert.True(t, IsMalformed(err))
}

func TestDirectoryName(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		aName string
		want  string
	}{
		{name: "name and uuid", id: "7c1f2e3a-1111-2222", aName: "Support Bot", want: "support_bot_7c1f2e3a"},
		{name: "no name", id: "7c1f2e3a-1111-2222", aName: "", want: "7c1f2e3a"},
		{name: "punctuation collapses", id: "abc", aName: "  Sales / Lead-Gen (v2)!", want: "sales_lead_gen_v2_abc"},
		{name: "whitespace runs", id: "abc", aName: "a \t\n b", want: "a_b_abc"},
		{name: "unicode kept", id: "abc", aName: "Café Ünïcode", want: "café_ünïcode_abc"},
		{name: "unsafe id", id: "../../etc", aName: "", want: "etc"},
		{name: "short id whole", id: "ab", aName: "x", want: "x_ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DirectoryName(tt.id, tt.aName))
		})
	}
}
