package artifact

import (
	"path/filepath"

	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/tidwall/gjson"
)

// Artifact filenames inside an assistant directory.
const (
	ConfigFile                  = "assistant_config.json"
	MetadataFile                = "metadata.json"
	SystemPromptFile            = "system_prompt.txt"
	FirstMessageFile            = "first_message.txt"
	SummaryPromptFile           = "summary_prompt.txt"
	StructuredDataPromptFile    = "structured_data_prompt.txt"
	StructuredDataSchemaFile    = "structured_data_schema.json"
	SuccessEvaluationPromptFile = "success_evaluation_prompt.txt"
)

// ContentKind selects how an artifact is serialized.
type ContentKind string

const (
	KindText ContentKind = "text"
	KindJSON ContentKind = "json"
)

// Field is one externalizable location in an assistant record.
type Field struct {
	Name     string
	Path     string
	Filename string
	Kind     ContentKind

	// system fields target the content of the first system-role message
	// instead of a fixed path.
	system bool
}

// Fields is the ordered field map.
var Fields = []Field{
	{Name: "systemPrompt", Filename: SystemPromptFile, Kind: KindText, system: true},
	{Name: "firstMessage", Path: "firstMessage", Filename: FirstMessageFile, Kind: KindText},
	{Name: "summaryPrompt", Path: "analysisPlan.summaryPrompt", Filename: SummaryPromptFile, Kind: KindText},
	{Name: "structuredDataPrompt", Path: "analysisPlan.structuredDataPrompt", Filename: StructuredDataPromptFile, Kind: KindText},
	{Name: "structuredDataSchema", Path: "analysisPlan.structuredDataSchema", Filename: StructuredDataSchemaFile, Kind: KindJSON},
	{Name: "successEvaluationPrompt", Path: "analysisPlan.successEvaluationPrompt", Filename: SuccessEvaluationPromptFile, Kind: KindText},
}

// IsSystem reports whether the field targets the system-role message.
func (f Field) IsSystem() bool { return f.system }

// locate returns the concrete path of the field in rec. Only the system
// field can fail to locate, when no system message exists.
func (f Field) locate(rec record.Record) (string, bool) {
	if !f.system {
		return f.Path, true
	}
	idx, ok := rec.SystemMessageIndex()
	if !ok {
		return "", false
	}
	return record.MessageContentPath(idx), true
}

// State is the presence state of a field value.
type State int

const (
	// Absent fields are missing or null and are skipped.
	Absent State = iota
	// Literal fields hold inline content.
	Literal
	// Reference fields point at an artifact file.
	Reference
)

func (s State) String() string {
	switch s {
	case Literal:
		return "literal"
	case Reference:
		return "reference"
	default:
		return "absent"
	}
}

// Value is a field value tagged with its State.
type Value struct {
	State  State
	Result gjson.Result
}

func valueOf(res gjson.Result) Value {
	switch {
	case !res.Exists(), res.Type == gjson.Null:
		return Value{State: Absent, Result: res}
	case res.Type == gjson.String && IsReference(res.Str):
		return Value{State: Reference, Result: res}
	default:
		return Value{State: Literal, Result: res}
	}
}

// Read returns the tagged value of f in rec along with its concrete path.
func (f Field) Read(rec record.Record) (Value, string) {
	path, ok := f.locate(rec)
	if !ok {
		return Value{State: Absent}, ""
	}
	return valueOf(rec.Get(path)), path
}

// artifactPath picks the file backing a field. A reference names its own
// file; anything else falls back to the field's default artifact.
func (f Field) artifactPath(dir string, v Value) string {
	if v.State == Reference {
		if p, ok := ResolveReference(v.Result.Str, dir); ok {
			return p
		}
	}
	return filepath.Join(dir, f.Filename)
}
