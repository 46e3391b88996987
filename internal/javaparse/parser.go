// Package javaparse reads Java source files far enough to list their classes,
// methods and the literal arguments of every method annotation.
package javaparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/testhub/internal/contract"
	"github.com/huangsam/testhub/schema"
)

// File is the parsed form of one compilation unit.
type File struct {
	Path    string
	Package string
	Classes []*Class // Declaration order; nested types follow their enclosing type
}

// Class is a type declaration (class, interface, enum, record or annotation type).
type Class struct {
	Name    string // Nested types are dotted: "Outer.Inner"
	Line    int
	Methods []*Method
}

// Method is a method or constructor declaration.
type Method struct {
	Name        string
	Line        int      // First line of the declaration, annotations included
	Params      []string // Parameter types as written, without annotations or names
	Annotations []schema.Annotation
}

// Signature returns "name(Type1,Type2)".
func (m *Method) Signature() string {
	return m.Name + "(" + strings.Join(m.Params, ",") + ")"
}

// Annotation returns the first annotation with the given simple name.
func (m *Method) Annotation(name string) (schema.Annotation, bool) {
	for _, a := range m.Annotations {
		if a.Name == name {
			return a, true
		}
	}
	return schema.Annotation{}, false
}

var modifiers = map[string]struct{}{
	"public": {}, "protected": {}, "private": {}, "static": {}, "final": {},
	"abstract": {}, "default": {}, "synchronized": {}, "native": {},
	"transient": {}, "volatile": {}, "strictfp": {}, "sealed": {},
}

var typeKeywords = map[string]struct{}{
	"class": {}, "interface": {}, "enum": {}, "record": {},
}

type parser struct {
	path string
	toks []token
	pos  int
	file *File
}

// Parse parses one Java source file. Failures wrap contract.ErrParse.
func Parse(path string, src []byte) (*File, error) {
	toks, err := tokenize(path, src)
	if err != nil {
		return nil, err
	}
	p := &parser{path: path, toks: toks, file: &File{Path: path}}
	if err := p.parseFile(); err != nil {
		return nil, err
	}
	return p.file, nil
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) at(off int) token {
	if p.pos+off < len(p.toks) {
		return p.toks[p.pos+off]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(line int, format string, args ...any) error {
	return contract.Wrap(contract.ErrParse, fmt.Sprintf("%s:%d", p.path, line), fmt.Errorf(format, args...))
}

func (p *parser) expect(text string) error {
	t := p.next()
	if !t.punct(text) {
		return p.fail(t.line, "expected %q, found %q", text, t.text)
	}
	return nil
}

func (p *parser) parseFile() error {
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return nil
		case t.is(tokIdent, "package"):
			p.next()
			p.file.Package = p.qualifiedName()
			if err := p.expect(";"); err != nil {
				return err
			}
		case t.is(tokIdent, "import"):
			if err := p.skipPast(";"); err != nil {
				return err
			}
		case t.punct(";"):
			p.next()
		case t.punct("}"):
			return p.fail(t.line, "unbalanced '}'")
		default:
			if _, _, err := p.modifiersAndAnnotations(); err != nil {
				return err
			}
			if p.cur().kind == tokEOF {
				return nil
			}
			if p.cur().is(tokIdent, "package") { // annotated package-info
				continue
			}
			if !p.atTypeDecl() {
				return p.fail(p.cur().line, "unexpected %q at top level", p.cur().text)
			}
			if err := p.typeDecl(""); err != nil {
				return err
			}
		}
	}
}

func (p *parser) qualifiedName() string {
	var parts []string
	for p.cur().kind == tokIdent {
		parts = append(parts, p.next().text)
		if !p.cur().punct(".") || p.at(1).kind != tokIdent {
			break
		}
		p.next()
	}
	return strings.Join(parts, ".")
}

// modifiersAndAnnotations consumes any mix of modifiers and annotations.
// It returns the annotations and the line the declaration starts on.
func (p *parser) modifiersAndAnnotations() ([]schema.Annotation, int, error) {
	var anns []schema.Annotation
	line := p.cur().line
	for {
		t := p.cur()
		switch {
		case t.punct("@") && !p.at(1).is(tokIdent, "interface"):
			a, err := p.annotation()
			if err != nil {
				return nil, 0, err
			}
			anns = append(anns, a)
		case t.kind == tokIdent && isModifier(t.text):
			p.next()
		case t.is(tokIdent, "non") && p.at(1).punct("-") && p.at(2).is(tokIdent, "sealed"):
			p.pos += 3
		default:
			return anns, line, nil
		}
	}
}

func isModifier(s string) bool {
	_, ok := modifiers[s]
	return ok
}

func (p *parser) atTypeDecl() bool {
	t := p.cur()
	if t.punct("@") && p.at(1).is(tokIdent, "interface") {
		return true
	}
	if t.kind != tokIdent {
		return false
	}
	if t.text == "record" {
		return p.at(1).kind == tokIdent && (p.at(2).punct("(") || p.at(2).punct("<"))
	}
	_, ok := typeKeywords[t.text]
	return ok
}

// typeDecl parses a type declaration starting at its keyword.
func (p *parser) typeDecl(outer string) error {
	isEnum := p.cur().is(tokIdent, "enum")
	if p.cur().punct("@") {
		p.next()
	}
	p.next() // keyword
	nameTok := p.next()
	if nameTok.kind != tokIdent {
		return p.fail(nameTok.line, "expected type name, found %q", nameTok.text)
	}
	cls := &Class{Name: outer + nameTok.text, Line: nameTok.line}
	p.file.Classes = append(p.file.Classes, cls)

	// Type parameters, record header, extends, implements, permits.
	for !p.cur().punct("{") {
		switch t := p.cur(); {
		case t.kind == tokEOF:
			return p.fail(t.line, "missing body of %s", cls.Name)
		case t.punct("("), t.punct("<"):
			if err := p.skipBalanced(); err != nil {
				return err
			}
		default:
			p.next()
		}
	}
	p.next()
	return p.classBody(cls, isEnum)
}

// classBody parses members up to and including the closing brace.
func (p *parser) classBody(cls *Class, isEnum bool) error {
	if isEnum {
		done, err := p.skipEnumConstants()
		if err != nil || done {
			return err
		}
	}
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return p.fail(t.line, "unterminated body of %s", cls.Name)
		case t.punct("}"):
			p.next()
			return nil
		case t.punct(";"):
			p.next()
			continue
		}

		anns, line, err := p.modifiersAndAnnotations()
		if err != nil {
			return err
		}
		switch {
		case p.cur().punct("{"): // initializer block
			if err := p.skipBalanced(); err != nil {
				return err
			}
		case p.atTypeDecl():
			if err := p.typeDecl(cls.Name + "."); err != nil {
				return err
			}
		default:
			m, err := p.member(line)
			if err != nil {
				return err
			}
			if m != nil {
				m.Annotations = anns
				cls.Methods = append(cls.Methods, m)
			}
		}
	}
}

// skipEnumConstants skips the constant list. It reports true when the body
// closed without any further members.
func (p *parser) skipEnumConstants() (bool, error) {
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return false, p.fail(t.line, "unterminated enum body")
		case t.punct(";"):
			p.next()
			return false, nil
		case t.punct("}"):
			p.next()
			return true, nil
		case t.punct("("), t.punct("{"):
			if err := p.skipBalanced(); err != nil {
				return false, err
			}
		case t.punct("@"):
			if _, err := p.annotation(); err != nil {
				return false, err
			}
		default:
			p.next()
		}
	}
}

// member parses a field, method or constructor. Fields return nil.
func (p *parser) member(line int) (*Method, error) {
	if p.cur().punct("<") { // generic method type parameters
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
	}
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return nil, p.fail(t.line, "unterminated member declaration")
		case t.punct("}"):
			return nil, nil
		case t.punct(";"):
			p.next()
			return nil, nil
		case t.punct("="):
			return nil, p.skipPast(";")
		case t.punct("{"): // compact record constructor
			return nil, p.skipBalanced()
		case t.punct("@"):
			if _, err := p.annotation(); err != nil { // type annotation
				return nil, err
			}
		case t.punct("<"):
			if err := p.skipBalanced(); err != nil {
				return nil, err
			}
		case t.punct("("):
			name := p.at(-1)
			if name.kind != tokIdent {
				return nil, p.fail(t.line, "unexpected '('")
			}
			return p.method(name.text, line)
		default:
			p.next()
		}
	}
}

func (p *parser) method(name string, line int) (*Method, error) {
	params, err := p.params()
	if err != nil {
		return nil, err
	}
	m := &Method{Name: name, Line: line, Params: params}
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return nil, p.fail(t.line, "unterminated method %s", name)
		case t.punct(";"):
			p.next()
			return m, nil
		case t.punct("{"):
			return m, p.skipBalanced()
		case t.is(tokIdent, "default"): // annotation element default value
			return m, p.skipPast(";")
		default:
			p.next() // throws clause, legacy array brackets
		}
	}
}

// params reads a parenthesised parameter list and returns the parameter types.
func (p *parser) params() ([]string, error) {
	open := p.next()
	var params []string
	var cur []token
	angle := 0
	flush := func() {
		if typ := paramType(cur); typ != "" {
			params = append(params, typ)
		}
		cur = nil
	}
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return nil, p.fail(open.line, "unterminated parameter list")
		case t.punct(")"):
			p.next()
			flush()
			return params, nil
		case t.punct("@"):
			if _, err := p.annotation(); err != nil {
				return nil, err
			}
			continue
		case t.punct("<"):
			angle++
		case t.punct(">"):
			angle--
		case t.punct(",") && angle == 0:
			p.next()
			flush()
			continue
		}
		cur = append(cur, p.next())
	}
}

// paramType drops modifiers and the parameter name from one parameter's tokens.
func paramType(toks []token) string {
	var kept []token
	for _, t := range toks {
		if t.is(tokIdent, "final") {
			continue
		}
		kept = append(kept, t)
	}
	dims := 0
	for len(kept) >= 2 && kept[len(kept)-1].punct("]") && kept[len(kept)-2].punct("[") {
		kept = kept[:len(kept)-2]
		dims++
	}
	if len(kept) < 2 || kept[len(kept)-1].kind != tokIdent {
		return ""
	}
	if kept[len(kept)-1].text == "this" { // receiver parameter
		return ""
	}
	kept = kept[:len(kept)-1]

	var sb strings.Builder
	for i, t := range kept {
		if i > 0 && t.kind == tokIdent && (kept[i-1].kind == tokIdent || kept[i-1].punct("?")) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	for range dims {
		sb.WriteString("[]")
	}
	return sb.String()
}

// annotation parses "@Name", "@a.b.Name", "@Name(value)" or "@Name(k = v, ...)".
func (p *parser) annotation() (schema.Annotation, error) {
	at := p.next()
	name := p.qualifiedName()
	if name == "" {
		return schema.Annotation{}, p.fail(at.line, "annotation without name")
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	a := schema.Annotation{Name: name, Line: at.line}
	if !p.cur().punct("(") {
		return a, nil
	}
	p.next()
	a.Args = map[string][]string{}
	if p.cur().punct(")") {
		p.next()
		return a, nil
	}

	named := p.cur().kind == tokIdent && p.at(1).punct("=") && !p.at(2).punct("=")
	for {
		key := "value"
		if named {
			k := p.next()
			if k.kind != tokIdent {
				return a, p.fail(k.line, "expected attribute name in @%s", name)
			}
			key = k.text
			if err := p.expect("="); err != nil {
				return a, err
			}
		}
		vals, nested, err := p.elementValue()
		if err != nil {
			return a, err
		}
		a.Args[key] = append(a.Args[key], vals...)
		if a.Args[key] == nil {
			a.Args[key] = []string{}
		}
		if len(nested) > 0 {
			if a.Nested == nil {
				a.Nested = map[string][]schema.Annotation{}
			}
			a.Nested[key] = append(a.Nested[key], nested...)
		}

		t := p.next()
		switch {
		case t.punct(")"):
			return a, nil
		case t.punct(",") && named:
			continue
		default:
			return a, p.fail(t.line, "unexpected %q in @%s", t.text, name)
		}
	}
}

// elementValue parses one annotation element value: an array, a nested
// annotation, or an expression. String-literal concatenations are folded;
// any other expression is kept as its source text.
func (p *parser) elementValue() ([]string, []schema.Annotation, error) {
	switch t := p.cur(); {
	case t.punct("{"):
		p.next()
		var vals []string
		var nested []schema.Annotation
		for {
			if p.cur().punct("}") {
				p.next()
				if vals == nil {
					vals = []string{}
				}
				return vals, nested, nil
			}
			v, n, err := p.elementValue()
			if err != nil {
				return nil, nil, err
			}
			vals = append(vals, v...)
			nested = append(nested, n...)
			switch sep := p.cur(); {
			case sep.punct(","):
				p.next()
			case sep.punct("}"):
			default:
				return nil, nil, p.fail(sep.line, "unexpected %q in array value", sep.text)
			}
		}
	case t.punct("@"):
		a, err := p.annotation()
		if err != nil {
			return nil, nil, err
		}
		return nil, []schema.Annotation{a}, nil
	default:
		expr, err := p.expression()
		if err != nil {
			return nil, nil, err
		}
		return []string{expr}, nil, nil
	}
}

// expression collects tokens up to a ',', ')' or '}' at nesting depth zero.
func (p *parser) expression() (string, error) {
	start := p.cur()
	var toks []token
	depth := 0
	for {
		t := p.cur()
		if t.kind == tokEOF {
			return "", p.fail(start.line, "unterminated annotation value")
		}
		if depth == 0 && (t.punct(",") || t.punct(")") || t.punct("}")) {
			break
		}
		switch {
		case t.punct("("), t.punct("{"), t.punct("["):
			depth++
		case t.punct(")"), t.punct("}"), t.punct("]"):
			depth--
		}
		toks = append(toks, p.next())
	}
	if len(toks) == 0 {
		return "", p.fail(start.line, "empty annotation value")
	}
	if s, ok := foldStrings(toks); ok {
		return s, nil
	}
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.kind == tokIdent && toks[i-1].kind == tokIdent {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.source())
	}
	return sb.String(), nil
}

// foldStrings concatenates "a" + "b" + ... when every operand is a string literal.
func foldStrings(toks []token) (string, bool) {
	var sb strings.Builder
	for i, t := range toks {
		if i%2 == 1 {
			if !t.punct("+") {
				return "", false
			}
			continue
		}
		if t.kind != tokString {
			return "", false
		}
		sb.WriteString(t.text)
	}
	return sb.String(), len(toks)%2 == 1
}

var closers = map[string]string{"(": ")", "{": "}", "[": "]", "<": ">"}

// skipBalanced skips from an opening bracket past its matching closer.
// Inside angle brackets only angle brackets are tracked.
func (p *parser) skipBalanced() error {
	open := p.next()
	closer, ok := closers[open.text]
	if !ok || open.kind != tokPunct {
		return p.fail(open.line, "expected bracket, found %q", open.text)
	}
	var stack []string
	stack = append(stack, closer)
	for len(stack) > 0 {
		t := p.next()
		if t.kind == tokEOF {
			return p.fail(open.line, "unbalanced %q", open.text)
		}
		if t.kind != tokPunct {
			continue
		}
		top := stack[len(stack)-1]
		if t.text == top {
			stack = stack[:len(stack)-1]
			continue
		}
		if top == ">" {
			if t.text == "<" {
				stack = append(stack, ">")
			}
			continue
		}
		if c, ok := closers[t.text]; ok && t.text != "<" {
			stack = append(stack, c)
			continue
		}
		if t.text == ")" || t.text == "}" || t.text == "]" {
			return p.fail(t.line, "mismatched %q", t.text)
		}
	}
	return nil
}

// skipPast skips to the given punctuation at bracket depth zero and consumes it.
func (p *parser) skipPast(text string) error {
	start := p.cur()
	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			return p.fail(start.line, "missing %q", text)
		case t.punct(text):
			p.next()
			return nil
		case t.punct("("), t.punct("{"), t.punct("["):
			if err := p.skipBalanced(); err != nil {
				return err
			}
		case t.punct(")"), t.punct("}"), t.punct("]"):
			return p.fail(t.line, "unbalanced %q", t.text)
		default:
			p.next()
		}
	}
}

// IsParseError reports whether err came from Parse.
func IsParseError(err error) bool {
	return errors.Is(err, contract.ErrParse)
}
