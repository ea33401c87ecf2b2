package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SyntaxError reports a malformed query with its position.
type SyntaxError struct {
	Line, Col int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Col, e.Msg)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokBlank
	tokString
	tokLangTag
	tokInteger
	tokDecimal
	tokWord
	tokPunct
)

var tokenNames = map[tokenKind]string{
	tokEOF:     "end of query",
	tokIRI:     "IRI",
	tokPName:   "prefixed name",
	tokVar:     "variable",
	tokBlank:   "blank node",
	tokString:  "string",
	tokLangTag: "language tag",
	tokInteger: "integer",
	tokDecimal: "decimal",
	tokWord:    "keyword",
	tokPunct:   "punctuation",
}

type token struct {
	kind      tokenKind
	val       string
	line, col int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokIRI:
		return "<" + t.val + ">"
	case tokVar:
		return "?" + t.val
	case tokString:
		return strconv.Quote(t.val)
	}
	return fmt.Sprintf("%q", t.val)
}

// is reports whether the token is the given keyword (case-insensitive) or
// punctuation.
func (t token) is(s string) bool {
	switch t.kind {
	case tokWord:
		return strings.EqualFold(t.val, s)
	case tokPunct:
		return t.val == s
	}
	return false
}

type lexer struct {
	src       string
	pos       int
	line, col int
	toks      []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.toks = append(l.toks, tok)
		if tok.kind == tokEOF {
			return l.toks, nil
		}
	}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isPrefixChar(c byte) bool {
	return isNameChar(c) || c == '-' || c == '.'
}

func isLocalChar(c byte) bool {
	return isPrefixChar(c) || c == ':' || c == '%'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) next() (token, error) {
	l.skipSpace()
	line, col := l.line, l.col
	mk := func(kind tokenKind, val string) token {
		return token{kind: kind, val: val, line: line, col: col}
	}
	if l.pos >= len(l.src) {
		return mk(tokEOF, ""), nil
	}

	c := l.src[l.pos]
	switch {
	case c == '<':
		end := l.pos + 1
		for end < len(l.src) && l.src[end] != '>' {
			if strings.IndexByte(" \t\r\n<\"{}|^`\\", l.src[end]) >= 0 {
				return token{}, l.errorf(line, col, "comparison operators are not supported")
			}
			end++
		}
		if end >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated IRI")
		}
		iri := l.src[l.pos+1 : end]
		l.advance(end + 1 - l.pos)
		return mk(tokIRI, iri), nil

	case c == '?' || c == '$':
		if isNameChar(l.peekByte(1)) {
			start := l.pos + 1
			end := start
			for end < len(l.src) && isNameChar(l.src[end]) {
				end++
			}
			name := l.src[start:end]
			l.advance(end - l.pos)
			return mk(tokVar, name), nil
		}
		l.advance(1)
		return mk(tokPunct, "?"), nil

	case c == '"' || c == '\'':
		s, err := l.lexString(line, col)
		if err != nil {
			return token{}, err
		}
		return mk(tokString, s), nil

	case c == '@':
		start := l.pos + 1
		end := start
		for end < len(l.src) && (isNameChar(l.src[end]) || l.src[end] == '-') {
			end++
		}
		if end == start {
			return token{}, l.errorf(line, col, "empty language tag")
		}
		tag := l.src[start:end]
		l.advance(end - l.pos)
		return mk(tokLangTag, tag), nil

	case c == '_' && l.peekByte(1) == ':':
		start := l.pos + 2
		end := start
		for end < len(l.src) && (isNameChar(l.src[end]) || l.src[end] == '-') {
			end++
		}
		if end == start {
			return token{}, l.errorf(line, col, "empty blank node label")
		}
		label := l.src[start:end]
		l.advance(end - l.pos)
		return mk(tokBlank, label), nil

	case isDigit(c):
		end := l.pos
		for end < len(l.src) && isDigit(l.src[end]) {
			end++
		}
		kind := tokInteger
		if end+1 < len(l.src) && l.src[end] == '.' && isDigit(l.src[end+1]) {
			kind = tokDecimal
			end++
			for end < len(l.src) && isDigit(l.src[end]) {
				end++
			}
		}
		num := l.src[l.pos:end]
		l.advance(end - l.pos)
		return mk(kind, num), nil

	case isNameStart(c) || c == ':':
		end := l.pos
		for end < len(l.src) && isPrefixChar(l.src[end]) {
			end++
		}
		// a prefix never ends in '.'
		for end > l.pos && l.src[end-1] == '.' {
			end--
		}
		if end < len(l.src) && l.src[end] == ':' {
			end++
			for end < len(l.src) && isLocalChar(l.src[end]) {
				end++
			}
			for l.src[end-1] == '.' {
				end--
			}
			name := l.src[l.pos:end]
			l.advance(end - l.pos)
			return mk(tokPName, name), nil
		}
		word := l.src[l.pos:end]
		if strings.ContainsAny(word, ".-") {
			return token{}, l.errorf(line, col, "unexpected %q", word)
		}
		l.advance(end - l.pos)
		return mk(tokWord, word), nil
	}

	for _, p := range []string{"^^", "!=", "&&", "||"} {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.advance(2)
			return mk(tokPunct, p), nil
		}
	}
	if strings.IndexByte("{}()[].;,*+/^|!=", c) >= 0 {
		l.advance(1)
		return mk(tokPunct, string(c)), nil
	}
	if c == '>' {
		return token{}, l.errorf(line, col, "comparison operators are not supported")
	}
	return token{}, l.errorf(line, col, "unexpected character %q", rune(c))
}

func (l *lexer) lexString(line, col int) (string, error) {
	q := l.src[l.pos]
	long := l.peekByte(1) == q && l.peekByte(2) == q
	delim := string(q)
	if long {
		delim = strings.Repeat(string(q), 3)
	}
	l.advance(len(delim))

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated string")
		}
		if strings.HasPrefix(l.src[l.pos:], delim) {
			l.advance(len(delim))
			return sb.String(), nil
		}
		c := l.src[l.pos]
		if !long && (c == '\n' || c == '\r') {
			return "", l.errorf(line, col, "newline in string")
		}
		if c != '\\' {
			sb.WriteByte(c)
			l.advance(1)
			continue
		}
		esc := l.peekByte(1)
		switch esc {
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(esc)
		case 'u', 'U':
			n := 4
			if esc == 'U' {
				n = 8
			}
			if l.pos+2+n > len(l.src) {
				return "", l.errorf(l.line, l.col, "short unicode escape")
			}
			r, err := strconv.ParseUint(l.src[l.pos+2:l.pos+2+n], 16, 32)
			if err != nil {
				return "", l.errorf(l.line, l.col, "bad unicode escape")
			}
			sb.WriteRune(rune(r))
			l.advance(2 + n)
			continue
		default:
			return "", l.errorf(l.line, l.col, "unknown escape \\%c", esc)
		}
		l.advance(2)
	}
}
