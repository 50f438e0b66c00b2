package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
	"unicode"
)

//go:embed files
var builtinFiles embed.FS

// Suffix is the extension of template files
const Suffix = ".tmpl"

// Context contains all data for template execution
type Context struct {
	ProjectName string
	Module      string
	Config      map[string]interface{}
	Vars        map[string]interface{}
}

// Engine is the template rendering engine
type Engine struct {
	funcs template.FuncMap
	files fs.FS
}

// NewEngine creates an engine over the builtin templates
func NewEngine() *Engine {
	files, err := fs.Sub(builtinFiles, "files")
	if err != nil {
		panic(err)
	}
	return NewEngineFS(files)
}

// NewEngineFS creates an engine over templates in files
func NewEngineFS(files fs.FS) *Engine {
	return &Engine{
		files: files,
		funcs: template.FuncMap{
			"upper":  strings.ToUpper,
			"lower":  strings.ToLower,
			"title":  title,
			"pascal": pascal,
			"camel": func(s string) string {
				p := pascal(s)
				if p == "" {
					return p
				}
				return strings.ToLower(p[:1]) + p[1:]
			},
			"kebab": func(s string) string { return strings.Join(words(s), "-") },
			"snake": func(s string) string { return strings.Join(words(s), "_") },
			"default": func(def, val interface{}) interface{} {
				if val == nil || val == "" {
					return def
				}
				return val
			},
			"join": strings.Join,
		},
	}
}

// Exists checks if a template exists
func (e *Engine) Exists(name string) bool {
	_, err := fs.Stat(e.files, name+Suffix)
	return err == nil
}

// List returns the names of all templates
func (e *Engine) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(e.files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, Suffix) {
			names = append(names, strings.TrimSuffix(p, Suffix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Render executes the named template
func (e *Engine) Render(name string, ctx *Context) ([]byte, error) {
	if path.IsAbs(name) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid template name %q", name)
	}
	src, err := fs.ReadFile(e.files, name+Suffix)
	if err != nil {
		return nil, fmt.Errorf("template %s not found: %w", name, err)
	}
	out, err := e.RenderString(string(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return []byte(out), nil
}

// RenderString renders a template string with the given context
func (e *Engine) RenderString(tmplStr string, ctx *Context) (string, error) {
	tmpl, err := template.New("").Funcs(e.funcs).Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func title(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}

func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	return b.String()
}

// words splits identifiers like "push-notification", "pushNotification" and
// "push_notification" into lower-case words
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}
