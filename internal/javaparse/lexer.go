package javaparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/huangsam/testhub/internal/contract"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString // Text holds the unescaped value
	tokChar
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool {
	return t.is(tokPunct, text)
}

// source renders the token back roughly as written.
func (t token) source() string {
	switch t.kind {
	case tokString:
		return strconv.Quote(t.text)
	case tokChar:
		return "'" + t.text + "'"
	default:
		return t.text
	}
}

type lexer struct {
	path string
	src  string
	pos  int
	line int
	toks []token
}

// tokenize splits Java source into tokens, dropping whitespace and comments.
func tokenize(path string, src []byte) ([]token, error) {
	lx := &lexer{path: path, src: string(src), line: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.toks, nil
}

func (lx *lexer) fail(line int, msg string) error {
	return contract.Wrap(contract.ErrParse, fmt.Sprintf("%s:%d", lx.path, line), errors.New(msg))
}

func (lx *lexer) emit(kind tokenKind, text string, line int) {
	lx.toks = append(lx.toks, token{kind: kind, text: text, line: line})
}

func (lx *lexer) peek(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			lx.pos++
		case c == '/' && lx.peek(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '/' && lx.peek(1) == '*':
			if err := lx.blockComment(); err != nil {
				return err
			}
		case c == '"' && lx.peek(1) == '"' && lx.peek(2) == '"':
			if err := lx.textBlock(); err != nil {
				return err
			}
		case c == '"':
			if err := lx.quoted('"', tokString); err != nil {
				return err
			}
		case c == '\'':
			if err := lx.quoted('\'', tokChar); err != nil {
				return err
			}
		case c >= '0' && c <= '9' || c == '.' && lx.peek(1) >= '0' && lx.peek(1) <= '9':
			lx.number()
		case c == '.' && lx.peek(1) == '.' && lx.peek(2) == '.':
			lx.emit(tokPunct, "...", lx.line)
			lx.pos += 3
		default:
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if isIdentStart(r) {
				lx.ident()
				continue
			}
			lx.emit(tokPunct, string(r), lx.line)
			lx.pos += size
		}
	}
	lx.emit(tokEOF, "", lx.line)
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (lx *lexer) ident() {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !isIdentPart(r) {
			break
		}
		lx.pos += size
	}
	lx.emit(tokIdent, lx.src[start:lx.pos], lx.line)
}

func (lx *lexer) number() {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		isExp := (c == '+' || c == '-') && lx.pos > start && strings.ContainsRune("eEpP", rune(lx.src[lx.pos-1])) &&
			!strings.HasPrefix(strings.ToLower(lx.src[start:lx.pos]), "0x")
		if c == '.' || c == '_' || isExp || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			lx.pos++
			continue
		}
		break
	}
	lx.emit(tokNumber, lx.src[start:lx.pos], lx.line)
}

func (lx *lexer) blockComment() error {
	line := lx.line
	end := strings.Index(lx.src[lx.pos+2:], "*/")
	if end < 0 {
		return lx.fail(line, "unterminated comment")
	}
	body := lx.src[lx.pos : lx.pos+2+end+2]
	lx.line += strings.Count(body, "\n")
	lx.pos += len(body)
	return nil
}

// quoted reads a string or char literal and emits its unescaped value.
func (lx *lexer) quoted(q byte, kind tokenKind) error {
	line := lx.line
	lx.pos++
	var sb strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.src[lx.pos] == '\n' {
			return lx.fail(line, "unterminated literal")
		}
		c := lx.src[lx.pos]
		if c == q {
			lx.pos++
			break
		}
		if c == '\\' {
			if err := lx.escape(&sb, line); err != nil {
				return err
			}
			continue
		}
		sb.WriteByte(c)
		lx.pos++
	}
	lx.emit(kind, sb.String(), line)
	return nil
}

func (lx *lexer) escape(sb *strings.Builder, line int) error {
	if lx.pos+1 >= len(lx.src) {
		return lx.fail(line, "unterminated literal")
	}
	c := lx.src[lx.pos+1]
	lx.pos += 2
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 's':
		sb.WriteByte(' ')
	case '\n':
		lx.line++ // line continuation inside text blocks
	case 'u':
		for lx.pos < len(lx.src) && lx.src[lx.pos] == 'u' {
			lx.pos++
		}
		if lx.pos+4 > len(lx.src) {
			return lx.fail(line, "bad unicode escape")
		}
		v, err := strconv.ParseUint(lx.src[lx.pos:lx.pos+4], 16, 32)
		if err != nil {
			return lx.fail(line, "bad unicode escape")
		}
		sb.WriteRune(rune(v))
		lx.pos += 4
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v := int(c - '0')
		for i := 0; i < 2 && lx.pos < len(lx.src) && lx.src[lx.pos] >= '0' && lx.src[lx.pos] <= '7'; i++ {
			v = v*8 + int(lx.src[lx.pos]-'0')
			lx.pos++
		}
		sb.WriteRune(rune(v))
	default:
		sb.WriteByte(c)
	}
	return nil
}

// textBlock reads a """ block. Incidental indentation and the opening line break are removed.
func (lx *lexer) textBlock() error {
	line := lx.line
	lx.pos += 3
	var sb strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return lx.fail(line, "unterminated text block")
		}
		c := lx.src[lx.pos]
		if c == '"' && lx.peek(1) == '"' && lx.peek(2) == '"' {
			lx.pos += 3
			break
		}
		if c == '\\' {
			if err := lx.escape(&sb, line); err != nil {
				return err
			}
			continue
		}
		if c == '\n' {
			lx.line++
		}
		sb.WriteByte(c)
		lx.pos++
	}
	lx.emit(tokString, dedent(sb.String()), line)
	return nil
}

func dedent(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 && strings.TrimSpace(s[:i]) == "" {
		s = s[i+1:]
	}
	lines := strings.Split(s, "\n")
	indent := -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "" && i != len(lines)-1 {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, l := range lines {
		switch {
		case indent <= 0:
		case len(l) >= indent:
			lines[i] = l[indent:]
		default:
			lines[i] = strings.TrimLeft(l, " \t")
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.Join(lines, "\n")
}
