package workspace

import "bytes"

// TextFile is a whole-file mutator used for generated sources
type TextFile struct {
	content []byte
	exists  bool
	dirty   bool
}

// Exists reports whether the file exists after pending edits
func (t *TextFile) Exists() bool {
	return t.exists
}

// Content returns the current content
func (t *TextFile) Content() []byte {
	return t.content
}

// Set replaces the content, creating the file if needed
func (t *TextFile) Set(content []byte) {
	if t.exists && bytes.Equal(t.content, content) {
		return
	}
	t.content = append([]byte(nil), content...)
	t.exists = true
	t.dirty = true
}

// Delete marks the file for removal
func (t *TextFile) Delete() {
	if !t.exists {
		return
	}
	t.content = nil
	t.exists = false
	t.dirty = true
}

// Dirty reports whether the file changed
func (t *TextFile) Dirty() bool {
	return t.dirty
}

func (t *TextFile) render() ([]byte, error) {
	return t.content, nil
}
