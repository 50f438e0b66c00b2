// Package jsonfile edits JSON documents such as package.json and tsconfig.json
// in place. Key order of untouched objects is preserved and the document is
// re-indented with the indentation it was read with.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// ErrInvalidJSON is returned when a document cannot be parsed
var ErrInvalidJSON = errors.New("invalid JSON document")

const defaultIndent = "  "

// Document is a mutable JSON document
type Document struct {
	raw    []byte
	indent string
	dirty  bool
}

// New creates an empty object document
func New() *Document {
	return &Document{raw: []byte("{}"), indent: defaultIndent}
}

// Parse wraps existing JSON bytes. Empty input yields an empty object.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return &Document{raw: append([]byte(nil), data...), indent: detectIndent(data)}, nil
}

// Path joins keys into a gjson/sjson path, escaping characters that carry
// meaning in the path syntax (so "@nestjs/core" and "tsconfig.build.json" are
// treated as plain keys).
func Path(keys ...string) string {
	escaped := make([]string, len(keys))
	for i, key := range keys {
		escaped[i] = escapeKey(key)
	}
	return strings.Join(escaped, ".")
}

func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '!', '\\', '=', '<', '>', '%', '(', ')', '[', ']', '{', '}', ',', '"', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Exists reports whether a value is present at path
func (d *Document) Exists(path string) bool {
	return gjson.GetBytes(d.raw, path).Exists()
}

// Get returns the decoded value at path and whether it exists
func (d *Document) Get(path string) (interface{}, bool) {
	res := gjson.GetBytes(d.raw, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// GetString returns the string value at path
func (d *Document) GetString(path string) (string, bool) {
	res := gjson.GetBytes(d.raw, path)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}

// Equal reports whether the value at path is semantically equal to value
func (d *Document) Equal(path string, value interface{}) bool {
	res := gjson.GetBytes(d.raw, path)
	if !res.Exists() {
		return false
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return false
	}
	var have, want interface{}
	if err := json.Unmarshal([]byte(res.Raw), &have); err != nil {
		return false
	}
	if err := json.Unmarshal(encoded, &want); err != nil {
		return false
	}
	return reflect.DeepEqual(have, want)
}

// Set stores value at path, creating intermediate objects
func (d *Document) Set(path string, value interface{}) error {
	if d.Equal(path, value) {
		return nil
	}
	out, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	d.raw = out
	d.dirty = true
	return nil
}

// Delete removes the value at path. Deleting a missing path is a no-op.
func (d *Document) Delete(path string) error {
	if !d.Exists(path) {
		return nil
	}
	out, err := sjson.DeleteBytes(d.raw, path)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	d.raw = out
	d.dirty = true
	return nil
}

// Keys returns the keys of the object at path in document order.
// An empty path addresses the root object.
func (d *Document) Keys(path string) []string {
	res := d.lookup(path)
	if !res.IsObject() {
		return nil
	}
	keys := make([]string, 0)
	res.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// SortObject reorders the keys of the object at path alphabetically.
// npm keeps dependency maps sorted, so package.json edits call this before saving.
func (d *Document) SortObject(path string) error {
	res := d.lookup(path)
	if !res.IsObject() {
		return nil
	}

	type entry struct {
		key string
		raw string
	}
	entries := make([]entry, 0)
	res.ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, entry{key: key.String(), raw: value.Raw})
		return true
	})

	sorted := sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	if sorted {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(e.key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(e.raw)
	}
	buf.WriteByte('}')

	if path == "" {
		d.raw = buf.Bytes()
		d.dirty = true
		return nil
	}
	out, err := sjson.SetRawBytes(d.raw, path, buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to sort %s: %w", path, err)
	}
	d.raw = out
	d.dirty = true
	return nil
}

func (d *Document) lookup(path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(d.raw)
	}
	return gjson.GetBytes(d.raw, path)
}

// Dirty reports whether the document changed since it was parsed
func (d *Document) Dirty() bool {
	return d.dirty
}

// Bytes renders the document with its original indentation and a trailing newline
func (d *Document) Bytes() []byte {
	return pretty.PrettyOptions(d.raw, &pretty.Options{
		Width:    0,
		Prefix:   "",
		Indent:   d.indent,
		SortKeys: false,
	})
}

// detectIndent returns the whitespace used before the first nested key
func detectIndent(data []byte) string {
	lines := bytes.Split(data, []byte("\n"))
	for _, line := range lines[1:] {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || len(trimmed) == len(line) {
			continue
		}
		return string(line[:len(line)-len(trimmed)])
	}
	return defaultIndent
}
