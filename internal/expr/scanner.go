package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	typ   tokenType
	text  string
	value interface{}
	pos   int
}

func (t token) String() string {
	if t.typ == tokEOF {
		return "end of expression"
	}
	return strconv.Quote(t.text)
}

// punctuators ordered longest first
var punctuators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "??",
	"!", "=", "+", "-", "*", "/", "%", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ".", "?", ":",
}

// SyntaxError is a malformed expression.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) errorf(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: pos, Message: fmt.Sprintf(format, args...)}
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		r, w := utf8.DecodeRuneInString(s.src[s.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		s.pos += w
	}
}

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (s *scanner) next() (token, error) {
	s.skipSpace()
	if s.pos >= len(s.src) {
		return token{typ: tokEOF, pos: s.pos}, nil
	}

	start := s.pos
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])

	switch {
	case isIdentStart(r):
		s.pos += w
		for s.pos < len(s.src) {
			r, w = utf8.DecodeRuneInString(s.src[s.pos:])
			if !isIdentPart(r) {
				break
			}
			s.pos += w
		}
		return token{typ: tokIdent, text: s.src[start:s.pos], pos: start}, nil

	case unicode.IsDigit(r) || (r == '.' && s.pos+1 < len(s.src) && isDigitByte(s.src[s.pos+1])):
		return s.number()

	case r == '\'' || r == '"' || r == '`':
		return s.str(byte(r))
	}

	for _, p := range punctuators {
		if strings.HasPrefix(s.src[s.pos:], p) {
			s.pos += len(p)
			return token{typ: tokPunct, text: p, pos: start}, nil
		}
	}

	return token{}, s.errorf(start, "Unexpected character %q", r)
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

func (s *scanner) number() (token, error) {
	start := s.pos
	for s.pos < len(s.src) && (isDigitByte(s.src[s.pos]) || s.src[s.pos] == '_') {
		s.pos++
	}
	if s.pos < len(s.src) && s.src[s.pos] == '.' {
		s.pos++
		for s.pos < len(s.src) && isDigitByte(s.src[s.pos]) {
			s.pos++
		}
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		s.pos++
		if s.pos < len(s.src) && (s.src[s.pos] == '+' || s.src[s.pos] == '-') {
			s.pos++
		}
		for s.pos < len(s.src) && isDigitByte(s.src[s.pos]) {
			s.pos++
		}
	}

	text := s.src[start:s.pos]
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil {
		return token{}, s.errorf(start, "Invalid number %q", text)
	}
	return token{typ: tokNumber, text: text, value: f, pos: start}, nil
}

func (s *scanner) str(quote byte) (token, error) {
	start := s.pos
	s.pos++

	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == quote:
			s.pos++
			return token{typ: tokString, text: s.src[start:s.pos], value: b.String(), pos: start}, nil
		case c == '\\' && s.pos+1 < len(s.src):
			s.pos++
			switch e := s.src[s.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0':
				b.WriteByte(0)
			case 'x', 'u':
				r, err := s.codePoint(e)
				if err != nil {
					return token{}, err
				}
				b.WriteRune(r)
				continue
			default:
				b.WriteByte(e)
			}
			s.pos++
		default:
			b.WriteByte(c)
			s.pos++
		}
	}

	return token{}, s.errorf(start, "Unterminated string literal")
}

// codePoint decodes the \xHH, \uHHHH and \u{H...} escapes. s.pos is at the
// escape letter on entry and past the escape on return. A pair of \u
// surrogate escapes decodes to a single rune.
func (s *scanner) codePoint(kind byte) (rune, error) {
	start := s.pos - 1
	s.pos++

	invalid := "Invalid Unicode escape sequence"
	if kind == 'x' {
		invalid = "Invalid hexadecimal escape sequence"
	}

	var digits string
	switch {
	case kind == 'x':
		digits = s.take(2)
	case s.pos < len(s.src) && s.src[s.pos] == '{':
		end := strings.IndexByte(s.src[s.pos:], '}')
		if end < 0 || end == 1 || end > 7 {
			return 0, s.errorf(start, "%s", invalid)
		}
		digits = s.src[s.pos+1 : s.pos+end]
		s.pos += end + 1
	default:
		digits = s.take(4)
		if len(digits) != 4 {
			return 0, s.errorf(start, "%s", invalid)
		}
	}
	if kind == 'x' && len(digits) != 2 {
		return 0, s.errorf(start, "%s", invalid)
	}

	n, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, s.errorf(start, "%s", invalid)
	}
	if n > unicode.MaxRune {
		return 0, s.errorf(start, "Undefined Unicode code-point")
	}

	r := rune(n)
	if utf16.IsSurrogate(r) && strings.HasPrefix(s.src[s.pos:], "\\u") {
		save := s.pos
		s.pos++
		if low, err := s.codePoint('u'); err == nil {
			if pair := utf16.DecodeRune(r, low); pair != unicode.ReplacementChar {
				return pair, nil
			}
		}
		s.pos = save
	}
	return r, nil
}

// take consumes up to n bytes.
func (s *scanner) take(n int) string {
	end := s.pos + n
	if end > len(s.src) {
		end = len(s.src)
	}
	text := s.src[s.pos:end]
	s.pos = end
	return text
}
