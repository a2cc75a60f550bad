package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// idPrefixLen is the number of identifier characters kept in directory names.
const idPrefixLen = 8

var nonWordRun = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// DirectoryRegistry records which directory holds an assistant. The project
// configuration implements it.
type DirectoryRegistry interface {
	RegisterDirectory(id, dir string) error
}

// sanitizeName lowercases s and collapses whitespace and non-word runs to a
// single underscore.
func sanitizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// DirectoryName derives the artifact directory name for an assistant:
// "<sanitized name>_<id prefix>", or just the id prefix without a name.
func DirectoryName(id, name string) string {
	prefix := sanitizeName(id)
	if r := []rune(prefix); len(r) > idPrefixLen {
		prefix = string(r[:idPrefixLen])
	}
	slug := sanitizeName(name)
	switch {
	case slug == "":
		return prefix
	case prefix == "":
		return slug
	default:
		return slug + "_" + prefix
	}
}

// Decomposer splits assistant records into artifact directories under Root.
type Decomposer struct {
	Root string
	log  *logrus.Entry
}

// NewDecomposer creates a Decomposer writing below root.
func NewDecomposer(root string) *Decomposer {
	if root == "" {
		root = "."
	}
	return &Decomposer{
		Root: root,
		log:  grovelogging.NewLogger("vct.decompose"),
	}
}

// DecomposeFile loads a fetched record file and decomposes it.
func (d *Decomposer) DecomposeFile(path string, reg DirectoryRegistry) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound(path, err)
		}
		return "", ioFailure(path, err)
	}
	rec, err := record.Parse(data)
	if err != nil {
		return "", malformed(path, err)
	}
	return d.Decompose(rec, reg)
}

// Decompose writes rec as an artifact directory and returns its path. The
// directory is reused if it exists and every known artifact is overwritten.
// reg may be nil when no configuration should be updated.
func (d *Decomposer) Decompose(rec record.Record, reg DirectoryRegistry) (string, error) {
	id := rec.Get("id")
	if !rec.Has("id") || id.String() == "" {
		return "", malformed("id", fmt.Errorf("record has no id"))
	}
	name := DirectoryName(id.String(), rec.Get("name").String())
	if name == "" {
		return "", malformed("id", fmt.Errorf("cannot derive a directory name from id %q", id.String()))
	}
	dir := filepath.Join(d.Root, name)

	if reg != nil {
		if err := reg.RegisterDirectory(id.String(), dir); err != nil {
			return "", ioFailure(dir, fmt.Errorf("register directory: %w", err))
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", ioFailure(dir, err)
	}

	if err := d.writeMetadata(&rec, dir); err != nil {
		return "", err
	}

	for _, f := range Fields {
		if err := d.externalize(&rec, f, dir); err != nil {
			return "", err
		}
	}

	skeleton, err := rec.Pretty()
	if err != nil {
		return "", malformed(ConfigFile, err)
	}
	configPath := filepath.Join(dir, ConfigFile)
	if err := WriteAtomic(configPath, skeleton); err != nil {
		return "", ioFailure(configPath, err)
	}

	d.log.WithFields(logrus.Fields{
		"id":        id.String(),
		"directory": dir,
	}).Info("Decomposed assistant")
	return dir, nil
}

// writeMetadata pops the metadata keys out of rec into metadata.json. Keys
// absent from rec are absent from the artifact.
func (d *Decomposer) writeMetadata(rec *record.Record, dir string) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, key := range record.MetadataKeys {
		raw, ok := rec.PopKey(key)
		if !ok {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.Write(record.EncodeString(key))
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')

	content, err := record.Indent(buf.Bytes())
	if err != nil {
		return malformed(MetadataFile, err)
	}
	path := filepath.Join(dir, MetadataFile)
	if err := WriteAtomic(path, content); err != nil {
		return ioFailure(path, err)
	}
	return nil
}

// externalize moves one field's content into its artifact and leaves a
// reference behind. Existing references are skipped. A field that stays out
// of its artifact has that default artifact removed, so a later recompose
// cannot resurrect it.
func (d *Decomposer) externalize(rec *record.Record, f Field, dir string) error {
	v, path := f.Read(*rec)
	switch v.State {
	case Absent:
		return removeArtifact(filepath.Join(dir, f.Filename))
	case Reference:
		d.log.WithField("field", f.Name).Debug("Field already references an artifact, leaving it")
		return nil
	}

	var content []byte
	switch f.Kind {
	case KindText:
		if v.Result.Type != gjson.String {
			d.log.WithField("field", f.Name).Warn("Field is not a string, leaving it inline")
			return removeArtifact(filepath.Join(dir, f.Filename))
		}
		content = []byte(v.Result.Str)
	case KindJSON:
		var err error
		content, err = record.Indent([]byte(v.Result.Raw))
		if err != nil {
			return malformed(f.Name, err)
		}
	}

	artifactPath := filepath.Join(dir, f.Filename)
	if err := WriteAtomic(artifactPath, content); err != nil {
		return ioFailure(artifactPath, err)
	}
	if err := rec.SetString(path, BuildReference(f.Filename)); err != nil {
		return malformed(f.Name, err)
	}
	return nil
}

// removeArtifact deletes a stale artifact. A missing file is fine.
func removeArtifact(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioFailure(path, err)
	}
	return nil
}
