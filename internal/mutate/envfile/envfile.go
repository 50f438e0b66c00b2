// Package envfile edits dotenv files line by line, keeping comments, blank
// lines and the order of existing variables.
package envfile

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/subosito/gotenv"
)

var assignment = regexp.MustCompile(`^\s*(?:export\s+)?([A-Za-z_][A-Za-z0-9_.]*)\s*=`)

// File is a mutable dotenv file
type File struct {
	lines  []string
	values gotenv.Env
	dirty  bool
}

// Parse reads dotenv content
func Parse(data []byte) (*File, error) {
	values, err := gotenv.StrictParse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	if values == nil {
		values = gotenv.Env{}
	}

	text := strings.TrimSuffix(string(data), "\n")
	var lines []string
	if text != "" {
		lines = strings.Split(text, "\n")
	}

	return &File{lines: lines, values: values}, nil
}

// Get returns the parsed value of a variable
func (f *File) Get(name string) (string, bool) {
	value, ok := f.values[name]
	return value, ok
}

// Names lists variables in file order
func (f *File) Names() []string {
	names := make([]string, 0, len(f.values))
	for _, line := range f.lines {
		if m := assignment.FindStringSubmatch(line); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

// Set assigns a variable. An existing assignment is rewritten in place,
// otherwise the variable is appended. A comment is written above new variables.
func (f *File) Set(name, value, comment string) {
	if current, ok := f.values[name]; ok && current == value {
		return
	}

	line := name + "=" + quote(value)
	if idx := f.index(name); idx >= 0 {
		f.lines[idx] = line
	} else {
		if comment != "" {
			if len(f.lines) > 0 && strings.TrimSpace(f.lines[len(f.lines)-1]) != "" {
				f.lines = append(f.lines, "")
			}
			f.lines = append(f.lines, "# "+comment)
		}
		f.lines = append(f.lines, line)
	}

	f.values[name] = value
	f.dirty = true
}

// Delete removes a variable together with the comment block directly above it
func (f *File) Delete(name string) {
	idx := f.index(name)
	if idx < 0 {
		return
	}

	start := idx
	for start > 0 && strings.HasPrefix(strings.TrimSpace(f.lines[start-1]), "#") {
		start--
	}
	// drop the separating blank line when the block was preceded by one
	if start > 0 && strings.TrimSpace(f.lines[start-1]) == "" && (idx+1 >= len(f.lines) || strings.TrimSpace(f.lines[idx+1]) == "") {
		start--
	}

	f.lines = append(f.lines[:start], f.lines[idx+1:]...)
	delete(f.values, name)
	f.dirty = true
}

// Dirty reports whether the file changed since it was parsed
func (f *File) Dirty() bool {
	return f.dirty
}

// Bytes renders the file with a trailing newline
func (f *File) Bytes() []byte {
	if len(f.lines) == 0 {
		return []byte{}
	}
	return []byte(strings.Join(f.lines, "\n") + "\n")
}

func (f *File) index(name string) int {
	for i, line := range f.lines {
		if m := assignment.FindStringSubmatch(line); m != nil && m[1] == name {
			return i
		}
	}
	return -1
}

func quote(value string) string {
	if value == "" {
		return ""
	}
	if !strings.ContainsAny(value, " \t#'\"$\\") {
		return value
	}
	// single quotes disable variable expansion
	if !strings.Contains(value, "'") {
		return "'" + value + "'"
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
