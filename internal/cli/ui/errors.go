package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a user-facing problem report
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Consequence string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders a message with its suggestions and hints
//
// Example output:
//
//	❌ MODULE NOT FOUND: Cannot find module 'emial'.
//
//	   Did you mean: email?
//
//	   → See all modules: scaffold list
func Format(m Message) string {
	var b strings.Builder

	var header, body *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, body, symbol = color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case LevelInfo:
		header, body, symbol = color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		header, body, symbol = color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
	hint := color.New(color.FgCyan)
	suggest := color.New(color.FgYellow)
	if m.NoColor {
		for _, c := range []*color.Color{header, body, hint, suggest} {
			c.DisableColor()
		}
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if m.Consequence != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(m.Consequence, "\n") {
			body.Fprintf(&b, "   %s\n", line)
		}
	}

	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		suggest.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}

	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range m.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write writes a formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// Success formats a success line
func Success(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, Success(message, noColor))
}

// ModuleNotFound reports an unknown module name
func ModuleNotFound(name string, known []string, noColor bool) Message {
	return Message{
		Context:     "module not found",
		Problem:     fmt.Sprintf("Cannot find module '%s'.", name),
		Suggestions: Suggest(name, known),
		Hints:       []string{"See all modules: scaffold list"},
		NoColor:     noColor,
	}
}

// InvalidConfig reports module or project configuration that failed validation
func InvalidConfig(problem, details string, noColor bool) Message {
	return Message{
		Context:     "invalid configuration",
		Problem:     problem,
		Consequence: details,
		Hints: []string{
			"Check the module fields: scaffold info <module>",
			"Edit the project file: scaffold.yaml",
		},
		NoColor: noColor,
	}
}

// Conflict reports two modules asking for incompatible changes
func Conflict(problem string, noColor bool) Message {
	return Message{
		Context:     "conflicting modules",
		Problem:     problem,
		Consequence: "Nothing was written.",
		Hints:       []string{"Disable one of the modules: scaffold disable <module>"},
		NoColor:     noColor,
	}
}

// Locked reports a project another run is applying
func Locked(problem string, noColor bool) Message {
	return Message{
		Level:   LevelWarning,
		Context: "project busy",
		Problem: problem,
		Hints:   []string{"Retry with a longer wait: scaffold apply --wait 1m"},
		NoColor: noColor,
	}
}
