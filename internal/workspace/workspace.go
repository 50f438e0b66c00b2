// Package workspace is the in-memory view of a project tree. It hands out one
// cached mutator per file and persists the dirty ones on Flush.
package workspace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/envfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/jsonfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/tsfile"
	"github.com/robodev-projects/workers-e7408123-sub001/internal/mutate/yamlfile"
)

// document is a cached mutator
type document interface {
	Dirty() bool
	render() ([]byte, error)
}

type entry struct {
	doc      document
	original []byte
	existed  bool
}

// FileChange describes a file written (or that would be written) by Flush
type FileChange struct {
	Path    string
	Before  []byte
	After   []byte
	Created bool
	Deleted bool
}

// Workspace caches mutators over a project filesystem
type Workspace struct {
	fs      afero.Fs
	entries map[string]*entry
	mu      sync.Mutex
}

// New creates a workspace over fs. Paths are relative to the fs root.
func New(fs afero.Fs) *Workspace {
	return &Workspace{
		fs:      fs,
		entries: make(map[string]*entry),
	}
}

// NewOS creates a workspace rooted at dir on the real filesystem
func NewOS(dir string) *Workspace {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

// Fs returns the underlying filesystem
func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

// Clean normalizes a workspace path and rejects paths leaving the project
func Clean(p string) (string, error) {
	p = filepath.ToSlash(p)
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("invalid path: %s attempts to write outside project directory", p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid path: %s attempts to write outside project directory", p)
	}
	return cleaned, nil
}

// Exists reports whether a file exists, taking pending deletions and
// creations into account
func (w *Workspace) Exists(p string) (bool, error) {
	p, err := Clean(p)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	e, ok := w.entries[p]
	w.mu.Unlock()
	if ok {
		if t, isText := e.doc.(*TextFile); isText {
			return t.Exists(), nil
		}
		return true, nil
	}
	return afero.Exists(w.fs, p)
}

// Read returns the current on-disk content of a file
func (w *Workspace) Read(p string) ([]byte, bool, error) {
	p, err := Clean(p)
	if err != nil {
		return nil, false, err
	}
	data, err := afero.ReadFile(w.fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, true, nil
}

// Loaded reports whether a mutator for p is cached
func (w *Workspace) Loaded(p string) bool {
	p, err := Clean(p)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.entries[p]
	return ok
}

func (w *Workspace) load(p string, parse func(data []byte, existed bool) (document, error)) (document, error) {
	p, err := Clean(p)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.entries[p]; ok {
		return e.doc, nil
	}

	data, existed, err := w.Read(p)
	if err != nil {
		return nil, err
	}
	doc, err := parse(data, existed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}

	w.entries[p] = &entry{doc: doc, original: data, existed: existed}
	return doc, nil
}

// JSON returns the JSON mutator for p. A missing file starts as {}.
func (w *Workspace) JSON(p string) (*jsonfile.Document, error) {
	doc, err := w.load(p, func(data []byte, _ bool) (document, error) {
		d, err := jsonfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return jsonDoc{d}, nil
	})
	if err != nil {
		return nil, err
	}
	j, ok := doc.(jsonDoc)
	if !ok {
		return nil, fmt.Errorf("%s is already open as %T", p, doc)
	}
	return j.Document, nil
}

// YAML returns the YAML mutator for p
func (w *Workspace) YAML(p string) (*yamlfile.Document, error) {
	doc, err := w.load(p, func(data []byte, _ bool) (document, error) {
		d, err := yamlfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return yamlDoc{d}, nil
	})
	if err != nil {
		return nil, err
	}
	y, ok := doc.(yamlDoc)
	if !ok {
		return nil, fmt.Errorf("%s is already open as %T", p, doc)
	}
	return y.Document, nil
}

// Env returns the dotenv mutator for p
func (w *Workspace) Env(p string) (*envfile.File, error) {
	doc, err := w.load(p, func(data []byte, _ bool) (document, error) {
		f, err := envfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return envDoc{f}, nil
	})
	if err != nil {
		return nil, err
	}
	e, ok := doc.(envDoc)
	if !ok {
		return nil, fmt.Errorf("%s is already open as %T", p, doc)
	}
	return e.File, nil
}

// TypeScript returns the TypeScript mutator for p. The file must exist, either
// on disk or created earlier in the run through Text.
func (w *Workspace) TypeScript(p string) (*tsfile.File, error) {
	doc, err := w.load(p, func(data []byte, existed bool) (document, error) {
		if !existed {
			return nil, os.ErrNotExist
		}
		f, err := tsfile.Parse(data)
		if err != nil {
			return nil, err
		}
		return tsDoc{File: f}, nil
	})
	if err != nil {
		return nil, err
	}
	switch d := doc.(type) {
	case tsDoc:
		return d.File, nil
	case *TextFile:
		return w.promote(p, d)
	}
	return nil, fmt.Errorf("%s is already open as %T", p, doc)
}

// promote swaps a cached text file for a TypeScript mutator over its content
func (w *Workspace) promote(p string, text *TextFile) (*tsfile.File, error) {
	p, err := Clean(p)
	if err != nil {
		return nil, err
	}
	if !text.Exists() {
		return nil, fmt.Errorf("failed to parse %s: %w", p, os.ErrNotExist)
	}
	f, err := tsfile.Parse(text.Content())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", p, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[p].doc = tsDoc{File: f, pending: text.Dirty()}
	return f, nil
}

// Text returns a whole-file mutator for p
func (w *Workspace) Text(p string) (*TextFile, error) {
	doc, err := w.load(p, func(data []byte, existed bool) (document, error) {
		return &TextFile{content: data, exists: existed}, nil
	})
	if err != nil {
		return nil, err
	}
	t, ok := doc.(*TextFile)
	if !ok {
		return nil, fmt.Errorf("%s is already open as %T", p, doc)
	}
	return t, nil
}

// Pending returns the changes Flush would make without writing anything
func (w *Workspace) Pending() ([]FileChange, error) {
	return w.flush(true)
}

// Flush writes every dirty mutator. With dryRun nothing is written.
func (w *Workspace) Flush(dryRun bool) ([]FileChange, error) {
	return w.flush(dryRun)
}

func (w *Workspace) flush(dryRun bool) ([]FileChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.entries))
	for p := range w.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []FileChange
	for _, p := range paths {
		e := w.entries[p]
		if !e.doc.Dirty() {
			continue
		}

		if t, ok := e.doc.(*TextFile); ok && !t.Exists() {
			if !e.existed {
				continue
			}
			changes = append(changes, FileChange{Path: p, Before: e.original, Deleted: true})
			if !dryRun {
				if err := w.fs.Remove(p); err != nil && !os.IsNotExist(err) {
					return changes, fmt.Errorf("failed to remove %s: %w", p, err)
				}
				e.original, e.existed = nil, false
			}
			continue
		}

		after, err := e.doc.render()
		if err != nil {
			return changes, fmt.Errorf("failed to render %s: %w", p, err)
		}
		if e.existed && bytes.Equal(after, e.original) {
			continue
		}

		// a document emptied by edits goes away with its file
		if len(bytes.TrimSpace(after)) == 0 {
			if !e.existed || len(bytes.TrimSpace(e.original)) == 0 {
				continue
			}
			changes = append(changes, FileChange{Path: p, Before: e.original, Deleted: true})
			if !dryRun {
				if err := w.fs.Remove(p); err != nil && !os.IsNotExist(err) {
					return changes, fmt.Errorf("failed to remove %s: %w", p, err)
				}
				e.original, e.existed = nil, false
			}
			continue
		}
		changes = append(changes, FileChange{Path: p, Before: e.original, After: after, Created: !e.existed})
		if dryRun {
			continue
		}

		if dir := path.Dir(p); dir != "." {
			if err := w.fs.MkdirAll(dir, 0755); err != nil {
				return changes, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
		if err := afero.WriteFile(w.fs, p, after, 0644); err != nil {
			return changes, fmt.Errorf("failed to write %s: %w", p, err)
		}
		e.original, e.existed = after, true
	}

	return changes, nil
}

// Reset drops every cached mutator
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = make(map[string]*entry)
}

// Hash returns the sha256 of the on-disk content of p
func (w *Workspace) Hash(p string) (string, bool, error) {
	data, ok, err := w.Read(p)
	if err != nil || !ok {
		return "", ok, err
	}
	return HashBytes(data), true, nil
}

// HashBytes returns the hex sha256 of data
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type jsonDoc struct{ *jsonfile.Document }

func (d jsonDoc) render() ([]byte, error) { return d.Bytes(), nil }

type yamlDoc struct{ *yamlfile.Document }

func (d yamlDoc) render() ([]byte, error) { return d.Bytes() }

type envDoc struct{ *envfile.File }

func (d envDoc) render() ([]byte, error) { return d.Bytes(), nil }

type tsDoc struct {
	*tsfile.File
	pending bool
}

func (d tsDoc) Dirty() bool { return d.pending || d.File.Dirty() }

func (d tsDoc) render() ([]byte, error) { return d.Bytes(), nil }
