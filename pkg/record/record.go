package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MetadataKeys are the server-assigned fields of an assistant record. They are
// kept out of the editable artifacts and restored verbatim on recompose.
var MetadataKeys = []string{"id", "orgId", "createdAt", "updatedAt", "isServerUrlSecretSet"}

// ErrNotObject is returned when a document is valid JSON but not an object.
var ErrNotObject = errors.New("record is not a JSON object")

// Record is a JSON object held as raw bytes. Edits go through gjson/sjson so
// the key order of the original document survives a round trip.
type Record struct {
	raw []byte
}

// Parse validates data and wraps it as a Record.
func Parse(data []byte) (Record, error) {
	data = bytes.TrimSpace(data)
	if !gjson.ValidBytes(data) {
		return Record{}, fmt.Errorf("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return Record{}, ErrNotObject
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return Record{raw: raw}, nil
}

// ReadFile loads a record from disk.
func ReadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	return Parse(data)
}

// Bytes returns the raw encoding of the record.
func (r Record) Bytes() []byte {
	if len(r.raw) == 0 {
		return []byte("{}")
	}
	return r.raw
}

// Get returns the value at a gjson path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Bytes(), path)
}

// Has reports whether path holds a non-null value.
func (r Record) Has(path string) bool {
	res := r.Get(path)
	return res.Exists() && res.Type != gjson.Null
}

// SetRaw stores raw JSON at path, creating intermediate objects.
func (r *Record) SetRaw(path string, raw []byte) error {
	out, err := sjson.SetRawBytes(r.Bytes(), path, raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	r.raw = out
	return nil
}

// SetString stores s at path without HTML escaping.
func (r *Record) SetString(path, s string) error {
	return r.SetRaw(path, EncodeString(s))
}

// EnsureObject replaces a non-object value at path with an empty object so
// child paths can be set beneath it. Missing paths are left missing.
func (r *Record) EnsureObject(path string) error {
	res := r.Get(path)
	if !res.Exists() || res.IsObject() {
		return nil
	}
	return r.SetRaw(path, []byte("{}"))
}

// Keys returns the top-level keys in document order.
func (r Record) Keys() []string {
	var keys []string
	gjson.ParseBytes(r.Bytes()).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

// Lookup returns the raw top-level value for key.
func (r Record) Lookup(key string) (json.RawMessage, bool) {
	var found json.RawMessage
	ok := false
	gjson.ParseBytes(r.Bytes()).ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = json.RawMessage(v.Raw)
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// SetKey sets a top-level key to raw JSON. Existing keys keep their position,
// new keys are appended. Keys are matched literally, so no path syntax applies.
func (r *Record) SetKey(key string, raw []byte) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	replaced := false
	gjson.ParseBytes(r.Bytes()).ForEach(func(k, v gjson.Result) bool {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.WriteString(k.Raw)
		buf.WriteByte(':')
		if k.String() == key && !replaced {
			buf.Write(raw)
			replaced = true
		} else {
			buf.WriteString(v.Raw)
		}
		return true
	})
	if !replaced {
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(EncodeString(key))
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')
	r.raw = buf.Bytes()
}

// PopKey removes a top-level key and returns its raw value.
func (r *Record) PopKey(key string) (json.RawMessage, bool) {
	var buf bytes.Buffer
	var popped json.RawMessage
	ok := false
	buf.WriteByte('{')
	n := 0
	gjson.ParseBytes(r.Bytes()).ForEach(func(k, v gjson.Result) bool {
		if k.String() == key && !ok {
			popped = json.RawMessage(v.Raw)
			ok = true
			return true
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		buf.WriteString(k.Raw)
		buf.WriteByte(':')
		buf.WriteString(v.Raw)
		return true
	})
	buf.WriteByte('}')
	if ok {
		r.raw = buf.Bytes()
	}
	return popped, ok
}

// Without returns a copy of the record with the given top-level keys removed.
func (r Record) Without(keys ...string) Record {
	out := Record{raw: append([]byte(nil), r.Bytes()...)}
	for _, k := range keys {
		out.PopKey(k)
	}
	return out
}

// Pretty renders the record with 2-space indentation and a trailing newline.
func (r Record) Pretty() ([]byte, error) {
	return Indent(r.Bytes())
}

// Indent formats raw JSON with 2-space indentation and a trailing newline.
func Indent(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// EncodeString returns s as a JSON string literal. Unlike json.Marshal it
// leaves <, > and & unescaped, since prompts routinely contain markup.
func EncodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
