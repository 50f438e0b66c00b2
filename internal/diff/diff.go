// Package diff renders file changes as unified diffs.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// Result represents the difference between the old and new content of a file
type Result struct {
	Path    string
	Before  string
	After   string
	Created bool
	Deleted bool
	Changed bool
}

// Diff compares before and after
func Diff(path string, before, after []byte) *Result {
	return &Result{
		Path:    path,
		Before:  string(before),
		After:   string(after),
		Changed: !bytes.Equal(before, after),
	}
}

// Unified returns the change in unified diff format
func (d *Result) Unified() string {
	if !d.Changed && !d.Created && !d.Deleted {
		return ""
	}

	from, to := "a/"+d.Path, "b/"+d.Path
	if d.Created {
		from = "/dev/null"
	}
	if d.Deleted {
		to = "/dev/null"
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(d.Before),
		B:        splitLines(d.After),
		FromFile: from,
		ToFile:   to,
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("--- %s\n+++ %s\n(diff unavailable: %v)\n", from, to, err)
	}
	return text
}

// String returns the unified diff with color highlighting
func (d *Result) String() string {
	text := d.Unified()
	if text == "" {
		return color.GreenString("No changes needed")
	}

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	var buf bytes.Buffer
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			bold.Fprint(&buf, line)
		case strings.HasPrefix(line, "@@"):
			cyan.Fprint(&buf, line)
		case strings.HasPrefix(line, "-"):
			red.Fprint(&buf, line)
		case strings.HasPrefix(line, "+"):
			green.Fprint(&buf, line)
		default:
			buf.WriteString(line)
		}
	}
	return buf.String()
}

// Stats returns statistics about the change
func (d *Result) Stats() (added, removed int) {
	for _, line := range strings.Split(d.Unified(), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// Summary is a one-line description such as "package.json (+3 -1)"
func (d *Result) Summary() string {
	added, removed := d.Stats()
	switch {
	case d.Created:
		return fmt.Sprintf("%s (new, +%d)", d.Path, added)
	case d.Deleted:
		return fmt.Sprintf("%s (deleted, -%d)", d.Path, removed)
	default:
		return fmt.Sprintf("%s (+%d -%d)", d.Path, added, removed)
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
