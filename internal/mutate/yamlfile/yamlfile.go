// Package yamlfile edits YAML documents at the node level so that comments,
// key order and untouched formatting survive a round trip.
package yamlfile

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when the document root or an intermediate key is not a mapping
var ErrNotMapping = errors.New("yaml node is not a mapping")

// Document is a mutable YAML document whose root is a mapping
type Document struct {
	root  *yaml.Node
	dirty bool
}

// New creates a document with an empty root mapping
func New() *Document {
	return &Document{
		root: &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		},
	}
}

// Parse reads YAML bytes. Empty input yields an empty mapping.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return New(), nil
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	return &Document{root: &root}, nil
}

// SplitPath splits a dotted key path
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func (d *Document) mapping() *yaml.Node {
	return d.root.Content[0]
}

// Node returns the value node at the key path
func (d *Document) Node(keys ...string) (*yaml.Node, bool) {
	current := d.mapping()
	for _, key := range keys {
		if current.Kind != yaml.MappingNode {
			return nil, false
		}
		_, value := lookup(current, key)
		if value == nil {
			return nil, false
		}
		current = value
	}
	return current, true
}

// Has reports whether a value exists at the key path
func (d *Document) Has(keys ...string) bool {
	_, ok := d.Node(keys...)
	return ok
}

// Get decodes the value at the key path
func (d *Document) Get(keys ...string) (interface{}, bool) {
	node, ok := d.Node(keys...)
	if !ok {
		return nil, false
	}
	var value interface{}
	if err := node.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

// Keys lists the keys of the mapping at the key path in document order
func (d *Document) Keys(keys ...string) []string {
	node, ok := d.Node(keys...)
	if !ok || node.Kind != yaml.MappingNode {
		return nil
	}
	result := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		result = append(result, node.Content[i].Value)
	}
	return result
}

// Equal reports whether the value at the key path equals value once both are
// normalized through YAML
func (d *Document) Equal(value interface{}, keys ...string) bool {
	have, ok := d.Get(keys...)
	if !ok {
		return false
	}
	want, err := normalize(value)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(have, want)
}

// Set stores value at the key path, creating intermediate mappings.
// Comments attached to a replaced value are carried over.
func (d *Document) Set(value interface{}, keys ...string) error {
	if len(keys) == 0 {
		return errors.New("empty key path")
	}
	if d.Equal(value, keys...) {
		return nil
	}

	encoded := &yaml.Node{}
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", strings.Join(keys, "."), err)
	}

	current := d.mapping()
	for i, key := range keys {
		if current.Kind != yaml.MappingNode {
			return fmt.Errorf("%s: %w", strings.Join(keys[:i], "."), ErrNotMapping)
		}
		_, existing := lookup(current, key)
		last := i == len(keys)-1

		if last {
			if existing != nil {
				encoded.HeadComment = existing.HeadComment
				encoded.LineComment = existing.LineComment
				encoded.FootComment = existing.FootComment
				*existing = *encoded
			} else {
				current.Content = append(current.Content, keyNode(key), encoded)
			}
			break
		}

		if existing == nil || (existing.Kind == yaml.ScalarNode && existing.Tag == "!!null") {
			child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if existing != nil {
				*existing = *child
				child = existing
			} else {
				current.Content = append(current.Content, keyNode(key), child)
			}
			existing = child
		}
		current = existing
	}

	d.dirty = true
	return nil
}

// Delete removes the value at the key path. Parent mappings left empty by the
// removal are removed as well. Deleting a missing key is a no-op.
func (d *Document) Delete(keys ...string) error {
	if len(keys) == 0 {
		return errors.New("empty key path")
	}
	if !d.Has(keys...) {
		return nil
	}

	parents := make([]*yaml.Node, 0, len(keys))
	current := d.mapping()
	for _, key := range keys[:len(keys)-1] {
		parents = append(parents, current)
		_, current = lookup(current, key)
	}

	removeKey(current, keys[len(keys)-1])

	// prune empty ancestors, innermost first
	for i := len(parents) - 1; i >= 0; i-- {
		_, child := lookup(parents[i], keys[i])
		if child == nil || child.Kind != yaml.MappingNode || len(child.Content) > 0 {
			break
		}
		removeKey(parents[i], keys[i])
	}

	d.dirty = true
	return nil
}

// Dirty reports whether the document changed since it was parsed
func (d *Document) Dirty() bool {
	return d.dirty
}

// Bytes renders the document with two-space indentation
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(buf.Bytes()), []byte("{}")) {
		return []byte{}, nil
	}
	return buf.Bytes(), nil
}

// Decode unmarshals the whole document into out
func (d *Document) Decode(out interface{}) error {
	return d.root.Decode(out)
}

func lookup(mapping *yaml.Node, key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i], mapping.Content[i+1]
		}
	}
	return nil, nil
}

func removeKey(mapping *yaml.Node, key string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content = append(mapping.Content[:i], mapping.Content[i+2:]...)
			return
		}
	}
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func normalize(value interface{}) (interface{}, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
