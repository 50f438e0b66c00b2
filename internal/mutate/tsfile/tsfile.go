// Package tsfile performs targeted edits on TypeScript sources using a
// tree-sitter syntax tree: ES import specifiers and array properties of
// decorator arguments such as @Module({ imports: [...] }).
//
// Every edit is a byte-range replacement computed from the current tree. The
// source is re-parsed after each edit and an edit that would introduce a
// syntax error is rolled back.
package tsfile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var (
	// ErrSyntax is returned when the source does not parse cleanly
	ErrSyntax = errors.New("typescript syntax error")
	// ErrDecoratorNotFound is returned when no decorator with the given name exists
	ErrDecoratorNotFound = errors.New("decorator not found")
	// ErrNotArray is returned when a decorator property is not an array literal
	ErrNotArray = errors.New("decorator property is not an array literal")
)

// File is a TypeScript source under edit
type File struct {
	src    []byte
	tree   *sitter.Tree
	parser *sitter.Parser
	dirty  bool
}

type edit struct {
	start, end uint32
	text       string
}

// Parse parses TypeScript source. Sources that already contain syntax errors
// are rejected since edits could not be verified against them.
func Parse(src []byte) (*File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())

	f := &File{src: append([]byte(nil), src...), parser: parser}
	if err := f.reparse(); err != nil {
		return nil, err
	}
	if f.tree.RootNode().HasError() {
		return nil, ErrSyntax
	}
	return f, nil
}

func (f *File) reparse() error {
	tree, err := f.parser.ParseCtx(context.Background(), nil, f.src)
	if err != nil {
		return fmt.Errorf("failed to parse typescript: %w", err)
	}
	f.tree = tree
	return nil
}

func (f *File) apply(e edit) error {
	previous := f.src

	next := make([]byte, 0, len(f.src)+len(e.text))
	next = append(next, f.src[:e.start]...)
	next = append(next, e.text...)
	next = append(next, f.src[e.end:]...)
	f.src = next

	if err := f.reparse(); err != nil {
		f.src = previous
		return err
	}
	if f.tree.RootNode().HasError() {
		f.src = previous
		if err := f.reparse(); err != nil {
			return err
		}
		return fmt.Errorf("edit would break the source: %w", ErrSyntax)
	}

	f.dirty = true
	return nil
}

// Dirty reports whether the source changed since it was parsed
func (f *File) Dirty() bool {
	return f.dirty
}

// Bytes returns the current source
func (f *File) Bytes() []byte {
	return f.src
}

func (f *File) text(n *sitter.Node) string {
	return n.Content(f.src)
}

// importDecl is one import statement
type importDecl struct {
	node       *sitter.Node
	source     string
	quote      byte
	defaultID  *sitter.Node
	named      *sitter.Node
	specifiers []*sitter.Node
	typeOnly   bool
}

// specifier finds the specifier binding symbol locally: `{ symbol }` or
// `{ Other as symbol }`
func (d importDecl) specifier(f *File, symbol string) *sitter.Node {
	for _, spec := range d.specifiers {
		local := spec.ChildByFieldName("alias")
		if local == nil {
			local = spec.ChildByFieldName("name")
		}
		if local != nil && f.text(local) == symbol {
			return spec
		}
	}
	return nil
}

// valueSpecifier is like specifier but ignores `{ type symbol }`
func (d importDecl) valueSpecifier(f *File, symbol string) *sitter.Node {
	spec := d.specifier(f, symbol)
	if spec == nil || hasTypeKeyword(spec) {
		return nil
	}
	return spec
}

// hasTypeKeyword reports a leading `type` modifier on an import statement or
// specifier
func hasTypeKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			return false
		}
		if child.Type() == "type" {
			return true
		}
	}
	return false
}

func (f *File) imports() []importDecl {
	root := f.tree.RootNode()
	decls := make([]importDecl, 0)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}

		decl := importDecl{node: stmt, quote: '\'', typeOnly: hasTypeKeyword(stmt)}
		if source := stmt.ChildByFieldName("source"); source != nil {
			raw := f.text(source)
			if len(raw) >= 2 {
				decl.quote = raw[0]
				decl.source = raw[1 : len(raw)-1]
			}
		}

		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			clause := stmt.NamedChild(j)
			if clause.Type() != "import_clause" {
				continue
			}
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				part := clause.NamedChild(k)
				switch part.Type() {
				case "identifier":
					decl.defaultID = part
				case "named_imports":
					decl.named = part
					for s := 0; s < int(part.NamedChildCount()); s++ {
						if spec := part.NamedChild(s); spec.Type() == "import_specifier" {
							decl.specifiers = append(decl.specifiers, spec)
						}
					}
				}
			}
		}

		decls = append(decls, decl)
	}

	return decls
}

// HasImport reports whether symbol is bound by a value import from module
// source. Type-only imports do not count.
func (f *File) HasImport(symbol, from string) bool {
	for _, decl := range f.imports() {
		if decl.source != from || decl.typeOnly {
			continue
		}
		if decl.valueSpecifier(f, symbol) != nil {
			return true
		}
		if decl.defaultID != nil && f.text(decl.defaultID) == symbol {
			return true
		}
	}
	return false
}

// EnsureImport adds `import { symbol } from 'from'`, merging into an existing
// import of the same module when there is one. It reports whether the source changed.
func (f *File) EnsureImport(symbol, from string) (bool, error) {
	if f.HasImport(symbol, from) {
		return false, nil
	}

	decls := f.imports()
	for _, decl := range decls {
		if decl.source != from || decl.typeOnly {
			continue
		}
		if decl.named != nil {
			return true, f.apply(f.listInsert(decl.named, decl.specifiers, symbol, " "))
		}
		if decl.defaultID != nil {
			return true, f.apply(edit{start: decl.defaultID.EndByte(), end: decl.defaultID.EndByte(), text: ", { " + symbol + " }"})
		}
	}

	quote := byte('\'')
	semicolon := ";"
	if len(decls) > 0 {
		quote = decls[0].quote
		if !strings.HasSuffix(strings.TrimSpace(f.text(decls[0].node)), ";") {
			semicolon = ""
		}
	}
	stmt := fmt.Sprintf("import { %s } from %c%s%c%s", symbol, quote, from, quote, semicolon)

	if len(decls) > 0 {
		last := decls[len(decls)-1].node
		return true, f.apply(edit{start: last.EndByte(), end: last.EndByte(), text: "\n" + stmt})
	}

	suffix := "\n"
	if len(strings.TrimSpace(string(f.src))) > 0 {
		suffix = "\n\n"
	}
	return true, f.apply(edit{start: 0, end: 0, text: stmt + suffix})
}

// RemoveImport removes symbol from the import of module source. The whole
// statement goes when nothing else is imported by it.
func (f *File) RemoveImport(symbol, from string) (bool, error) {
	for _, decl := range f.imports() {
		if decl.source != from || decl.typeOnly {
			continue
		}

		if spec := decl.valueSpecifier(f, symbol); spec != nil {
			if len(decl.specifiers) == 1 && decl.defaultID == nil {
				return true, f.apply(f.statementRemoval(decl.node))
			}
			if len(decl.specifiers) == 1 {
				// `import A, { B } from 'x'` -> `import A from 'x'`
				return true, f.apply(edit{start: decl.defaultID.EndByte(), end: decl.named.EndByte(), text: ""})
			}
			return true, f.apply(f.listRemove(spec))
		}

		if decl.defaultID != nil && f.text(decl.defaultID) == symbol {
			if decl.named == nil {
				return true, f.apply(f.statementRemoval(decl.node))
			}
			return true, f.apply(edit{start: decl.defaultID.StartByte(), end: decl.named.StartByte(), text: ""})
		}
	}
	return false, nil
}

// decoratorArray locates `@decorator({ property: [...] })`. It returns the
// decorator call, the argument object (nil when absent), the property pair
// (nil when absent) and the array (nil when absent).
func (f *File) decoratorArray(decorator, property string) (call, object, pair, array *sitter.Node, err error) {
	var found *sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "decorator" {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				expr := n.NamedChild(i)
				if expr.Type() != "call_expression" {
					continue
				}
				if fn := expr.ChildByFieldName("function"); fn != nil && f.text(fn) == decorator {
					found = expr
					return
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(f.tree.RootNode())

	if found == nil {
		return nil, nil, nil, nil, fmt.Errorf("@%s: %w", decorator, ErrDecoratorNotFound)
	}
	call = found

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return call, nil, nil, nil, nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if arg := args.NamedChild(i); arg.Type() == "object" {
			object = arg
			break
		}
	}
	if object == nil {
		return call, nil, nil, nil, nil
	}

	for i := 0; i < int(object.NamedChildCount()); i++ {
		p := object.NamedChild(i)
		if p.Type() != "pair" {
			continue
		}
		key := p.ChildByFieldName("key")
		if key == nil || strings.Trim(f.text(key), `'"`) != property {
			continue
		}
		pair = p
		value := p.ChildByFieldName("value")
		if value == nil || value.Type() != "array" {
			return call, object, pair, nil, fmt.Errorf("@%s %s: %w", decorator, property, ErrNotArray)
		}
		array = value
		break
	}

	return call, object, pair, array, nil
}

// DecoratorArrayElements returns the source text of each element of
// `@decorator({ property: [...] })`
func (f *File) DecoratorArrayElements(decorator, property string) ([]string, error) {
	_, _, _, array, err := f.decoratorArray(decorator, property)
	if err != nil {
		return nil, err
	}
	if array == nil {
		return nil, nil
	}
	items := f.elements(array)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = f.text(item)
	}
	return result, nil
}

// HasDecoratorArrayElement reports whether the array already holds element.
// With a non-empty match, any element whose leading identifier equals match
// counts, so `EmailModule.forRoot({...})` matches "EmailModule" whatever its arguments.
func (f *File) HasDecoratorArrayElement(decorator, property, element, match string) (bool, error) {
	_, _, _, array, err := f.decoratorArray(decorator, property)
	if err != nil {
		return false, err
	}
	if array == nil {
		return false, nil
	}
	return f.findElement(array, element, match) != nil, nil
}

// EnsureDecoratorArrayElement appends element to `@decorator({ property: [...] })`,
// creating the argument object or the property when missing.
func (f *File) EnsureDecoratorArrayElement(decorator, property, element, match string) (bool, error) {
	call, object, pair, array, err := f.decoratorArray(decorator, property)
	if err != nil {
		return false, err
	}

	switch {
	case array != nil:
		if f.findElement(array, element, match) != nil {
			return false, nil
		}
		return true, f.apply(f.listInsert(array, f.elements(array), element, ""))

	case object != nil && pair == nil:
		entry := fmt.Sprintf("%s: [%s]", property, element)
		return true, f.apply(f.listInsert(object, f.elements(object), entry, " "))

	default:
		args := call.ChildByFieldName("arguments")
		if args == nil {
			return false, fmt.Errorf("@%s has no argument list", decorator)
		}
		text := fmt.Sprintf("({ %s: [%s] })", property, element)
		return true, f.apply(edit{start: args.StartByte(), end: args.EndByte(), text: text})
	}
}

// RemoveDecoratorArrayElement removes every element matching element/match
func (f *File) RemoveDecoratorArrayElement(decorator, property, element, match string) (bool, error) {
	changed := false
	for {
		_, _, _, array, err := f.decoratorArray(decorator, property)
		if err != nil {
			return changed, err
		}
		if array == nil {
			return changed, nil
		}
		item := f.findElement(array, element, match)
		if item == nil {
			return changed, nil
		}
		if err := f.apply(f.listRemove(item)); err != nil {
			return changed, err
		}
		changed = true
	}
}

func (f *File) elements(container *sitter.Node) []*sitter.Node {
	items := make([]*sitter.Node, 0, container.NamedChildCount())
	for i := 0; i < int(container.NamedChildCount()); i++ {
		child := container.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		items = append(items, child)
	}
	return items
}

func (f *File) findElement(array *sitter.Node, element, match string) *sitter.Node {
	want := normalize(element)
	for _, item := range f.elements(array) {
		text := f.text(item)
		if normalize(text) == want {
			return item
		}
		if match != "" && leadingIdentifier(text) == match {
			return item
		}
	}
	return nil
}

// listInsert appends text to a bracketed, comma separated list, following the
// list's layout: one item per line (with or without trailing comma) or inline.
// pad is placed inside the brackets of an empty list, e.g. "{ X }" vs "[X]".
func (f *File) listInsert(container *sitter.Node, items []*sitter.Node, text, pad string) edit {
	if len(items) == 0 {
		return edit{
			start: container.StartByte() + 1,
			end:   container.EndByte() - 1,
			text:  pad + text + pad,
		}
	}

	last := items[len(items)-1]
	multiline := last.StartPoint().Row != container.StartPoint().Row
	comma := last.NextSibling()
	hasTrailingComma := comma != nil && comma.Type() == ","

	switch {
	case multiline && hasTrailingComma:
		// after a comment trailing the last item, which stays on its line
		at := f.trailingCommentEnd(comma)
		return edit{start: at, end: at, text: "\n" + f.indentOf(last) + text + ","}
	case multiline:
		at := f.trailingCommentEnd(last)
		between := string(f.src[last.EndByte():at])
		return edit{start: last.EndByte(), end: at, text: "," + between + "\n" + f.indentOf(last) + text}
	default:
		return edit{start: last.EndByte(), end: last.EndByte(), text: ", " + text}
	}
}

// trailingCommentEnd returns the end of a comment following n on the same
// line, or the end of n
func (f *File) trailingCommentEnd(n *sitter.Node) uint32 {
	next := n.NextSibling()
	if next != nil && next.Type() == "comment" && next.StartPoint().Row == n.EndPoint().Row {
		return next.EndByte()
	}
	return n.EndByte()
}

// listRemove removes one list item together with the comma that separates it
func (f *File) listRemove(item *sitter.Node) edit {
	start, end := item.StartByte(), item.EndByte()

	next := item.NextSibling()
	if next != nil && next.Type() == "," {
		end = next.EndByte()
	}

	lineStart := f.lineStart(start)
	lineEnd, rest := f.lineEnd(end)
	if strings.TrimSpace(string(f.src[lineStart:start])) == "" && rest {
		if next != nil && next.Type() == "," {
			return edit{start: lineStart, end: lineEnd, text: ""}
		}
		// last item without trailing comma: the previous separator goes too,
		// keeping whatever follows it on that line
		if prev := f.prevNonComment(item); prev != nil && prev.Type() == "," {
			return edit{start: prev.StartByte(), end: lineEnd, text: string(f.src[prev.EndByte():lineStart])}
		}
		return edit{start: lineStart, end: lineEnd, text: ""}
	}

	if next != nil && next.Type() == "," {
		for end < uint32(len(f.src)) && (f.src[end] == ' ' || f.src[end] == '\t') {
			end++
		}
		return edit{start: start, end: end, text: ""}
	}

	if prev := item.PrevSibling(); prev != nil && prev.Type() == "," {
		return edit{start: prev.StartByte(), end: item.EndByte(), text: ""}
	}

	return edit{start: start, end: end, text: ""}
}

func (f *File) prevNonComment(n *sitter.Node) *sitter.Node {
	prev := n.PrevSibling()
	for prev != nil && prev.Type() == "comment" {
		prev = prev.PrevSibling()
	}
	return prev
}

// statementRemoval removes a top-level statement and its line when it stands alone
func (f *File) statementRemoval(stmt *sitter.Node) edit {
	start, end := stmt.StartByte(), stmt.EndByte()
	lineStart := f.lineStart(start)
	lineEnd, rest := f.lineEnd(end)
	if strings.TrimSpace(string(f.src[lineStart:start])) == "" && rest {
		return edit{start: lineStart, end: lineEnd, text: ""}
	}
	return edit{start: start, end: end, text: ""}
}

func (f *File) lineStart(offset uint32) uint32 {
	for offset > 0 && f.src[offset-1] != '\n' {
		offset--
	}
	return offset
}

// lineEnd returns the offset after the newline ending the line containing
// offset, and whether only whitespace follows offset on that line
func (f *File) lineEnd(offset uint32) (uint32, bool) {
	i := offset
	for i < uint32(len(f.src)) && f.src[i] != '\n' {
		if f.src[i] != ' ' && f.src[i] != '\t' && f.src[i] != '\r' {
			return offset, false
		}
		i++
	}
	if i < uint32(len(f.src)) {
		i++
	}
	return i, true
}

func (f *File) indentOf(n *sitter.Node) string {
	start := f.lineStart(n.StartByte())
	prefix := f.src[start:n.StartByte()]
	end := 0
	for end < len(prefix) && (prefix[end] == ' ' || prefix[end] == '\t') {
		end++
	}
	return string(prefix[:end])
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSuffix(strings.TrimSpace(s), ","))
}

func leadingIdentifier(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if !(r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return s[:i]
		}
	}
	return s
}
