package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-vct/pkg/record"
	"github.com/sirupsen/logrus"
)

// Recomposer rebuilds assistant records from artifact directories. It only
// reads the directory and writes one output file into OutputDir.
type Recomposer struct {
	OutputDir string
	log       *logrus.Entry
}

// NewRecomposer creates a Recomposer writing its output into outputDir.
func NewRecomposer(outputDir string) *Recomposer {
	if outputDir == "" {
		outputDir = "."
	}
	return &Recomposer{
		OutputDir: outputDir,
		log:       grovelogging.NewLogger("vct.recompose"),
	}
}

// OutputFilename returns the path the recomposed record of dir is written to.
func (r *Recomposer) OutputFilename(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	return filepath.Join(r.OutputDir, fmt.Sprintf("assistant_%s.json", base))
}

// Recompose assembles the record held in dir and writes it to
// OutputFilename(dir), returning that path.
func (r *Recomposer) Recompose(dir string) (string, error) {
	rec, err := r.Load(dir)
	if err != nil {
		return "", err
	}

	content, err := rec.Pretty()
	if err != nil {
		return "", malformed(dir, err)
	}
	out := r.OutputFilename(dir)
	if err := WriteAtomic(out, content); err != nil {
		return "", ioFailure(out, err)
	}

	r.log.WithFields(logrus.Fields{
		"directory": dir,
		"output":    out,
	}).Info("Recomposed assistant")
	return out, nil
}

// Load assembles the record held in dir without writing anything.
func (r *Recomposer) Load(dir string) (record.Record, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return record.Record{}, notFound(dir, err)
		}
		return record.Record{}, ioFailure(dir, err)
	}
	if !info.IsDir() {
		return record.Record{}, notFound(dir, fmt.Errorf("not a directory"))
	}

	configPath := filepath.Join(dir, ConfigFile)
	data, found, err := readOptional(configPath)
	if err != nil {
		return record.Record{}, err
	}
	if !found {
		return record.Record{}, notFound(configPath, fmt.Errorf("%s not found in %s", ConfigFile, dir))
	}
	rec, err := record.Parse(data)
	if err != nil {
		return record.Record{}, malformed(configPath, err)
	}

	if err := r.applyMetadata(&rec, dir); err != nil {
		return record.Record{}, err
	}

	for _, f := range Fields {
		if err := r.inline(&rec, f, dir); err != nil {
			return record.Record{}, err
		}
	}
	return rec, nil
}

// applyMetadata merges metadata.json into rec. Metadata wins over keys of the
// same name in the skeleton.
func (r *Recomposer) applyMetadata(rec *record.Record, dir string) error {
	path := filepath.Join(dir, MetadataFile)
	data, found, err := readOptional(path)
	if err != nil || !found {
		return err
	}
	meta, err := record.Parse(data)
	if err != nil {
		return malformed(path, err)
	}
	for _, key := range meta.Keys() {
		raw, _ := meta.Lookup(key)
		rec.SetKey(key, raw)
	}
	return nil
}

// inline replaces one field with its artifact content. A missing artifact
// leaves the field as it is.
func (r *Recomposer) inline(rec *record.Record, f Field, dir string) error {
	v, path := f.Read(*rec)
	file := f.artifactPath(dir, v)
	data, found, err := readOptional(file)
	if err != nil {
		return err
	}
	if !found {
		if v.State == Reference {
			r.log.WithFields(logrus.Fields{
				"field": f.Name,
				"file":  file,
			}).Warn("Referenced artifact is missing, keeping reference")
		}
		return nil
	}

	if f.Kind == KindText && !utf8.Valid(data) {
		return malformed(file, fmt.Errorf("artifact is not valid UTF-8"))
	}

	if f.IsSystem() && path == "" {
		if err := rec.PrependMessage(record.RoleSystem, string(data)); err != nil {
			return malformed(dir, err)
		}
		return nil
	}

	var raw []byte
	switch f.Kind {
	case KindText:
		raw = record.EncodeString(string(data))
	case KindJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, bytes.TrimSpace(data)); err != nil {
			return malformed(file, err)
		}
		raw = buf.Bytes()
	}

	if i := strings.LastIndexByte(path, '.'); i > 0 {
		if err := rec.EnsureObject(path[:i]); err != nil {
			return malformed(f.Name, err)
		}
	}
	if err := rec.SetRaw(path, raw); err != nil {
		return malformed(f.Name, err)
	}
	return nil
}
