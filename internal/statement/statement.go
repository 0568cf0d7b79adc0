// Package statement extracts the name and argument of a tag header such as
// "@if(user.name === 'virk')".
//
// A Statement is fed one source line at a time. The first "(" after the tag
// name starts argument capture; nested parentheses and quoted strings are
// tracked so that parentheses inside literals do not affect depth. The
// statement ends when depth returns to zero at the matching ")". A tag
// without parentheses ends right after its name.
package statement

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/whitespace"
)

// Statement is the transient parse state of a tag header.
type Statement struct {
	Name string
	Arg  string

	// Started is set once the opening parenthesis was seen.
	Started bool
	// Ended is set when the statement is complete.
	Ended bool
	// SelfClosed is set by the "@!" prefix.
	SelfClosed bool

	depth   int
	quote   rune
	escaped bool
	fed     bool
	arg     *whitespace.Bucket

	filename string
	line     int
	column   int
}

// New creates a statement for a header starting at the given position.
func New(filename string, line, column int) *Statement {
	return &Statement{
		arg:      whitespace.New(whitespace.Controlled),
		filename: filename,
		line:     line,
		column:   column,
	}
}

// HasArg reports whether the header had a parenthesized argument.
func (s *Statement) HasArg() bool {
	return s.Started
}

// Feed consumes one line of the header. The first line must start with "@".
func (s *Statement) Feed(line string) error {
	if s.Ended {
		return s.seekError(line, "Unexpected content after the end of statement")
	}

	rest := line
	if !s.fed {
		s.fed = true
		var err error
		if rest, err = s.readName(line); err != nil {
			return err
		}
	} else {
		// continuation lines keep the newline that separated them
		s.arg.Feed('\n')
	}

	for i, r := range rest {
		if !s.Started {
			switch {
			case r == ' ' || r == '\t':
				continue
			case r == '(':
				s.Started = true
				s.depth = 1
				continue
			default:
				return s.seekError(strings.TrimSpace(line), fmt.Sprintf("Unexpected %q after @%s", r, s.Name))
			}
		}

		if s.quote != 0 {
			s.arg.FeedRaw(string(r))
			switch {
			case s.escaped:
				s.escaped = false
			case r == '\\':
				s.escaped = true
			case r == s.quote:
				s.quote = 0
			}
			continue
		}

		switch r {
		case '\'', '"', '`':
			s.quote = r
			s.arg.FeedRaw(string(r))
		case '(':
			s.depth++
			s.arg.Feed(r)
		case ')':
			s.depth--
			if s.depth == 0 {
				s.Ended = true
				s.Arg = strings.TrimSpace(s.arg.String())
				trailing := rest[i+len(string(r)):]
				if strings.TrimSpace(trailing) != "" {
					return s.seekError(strings.TrimSpace(trailing),
						fmt.Sprintf("Unclosed statement: unexpected %q after @%s(...)", strings.TrimSpace(trailing), s.Name))
				}
				return nil
			}
			s.arg.Feed(r)
		default:
			s.arg.Feed(r)
		}
	}

	if !s.Started {
		s.Ended = true
	}
	return nil
}

// Finish validates the statement once input is exhausted.
func (s *Statement) Finish() error {
	if s.Ended {
		return nil
	}
	return errors.NewUnclosedStatementError(errors.ErrCodeUnclosedParen,
		fmt.Sprintf("Missing token \")\" to close @%s(", s.Name)).
		WithSnippet("@" + s.Name + "(" + strings.TrimSpace(s.arg.String())).
		WithLocation(s.filename, s.line, s.column)
}

func (s *Statement) readName(line string) (string, error) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "@") {
		return "", s.seekError(trimmed, "Tag statements must start with @")
	}
	trimmed = trimmed[1:]
	if strings.HasPrefix(trimmed, "!") {
		s.SelfClosed = true
		trimmed = trimmed[1:]
	}

	end := 0
	for end < len(trimmed) && IsNameByte(trimmed[end]) {
		end++
	}
	if end == 0 {
		return "", s.seekError(line, "Missing tag name after @")
	}
	s.Name = trimmed[:end]

	return trimmed[end:], nil
}

func (s *Statement) seekError(snippet, message string) error {
	return errors.NewUnclosedStatementError(errors.ErrCodeCannotSeekStatement, message).
		WithSnippet(snippet).
		WithLocation(s.filename, s.line, s.column)
}

// IsNameByte reports whether c may appear in a tag name.
func IsNameByte(c byte) bool {
	return c == '_' || c < unicode.MaxASCII && (unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)))
}

// Name returns the tag name at the start of header ("@name" or "@!name")
// and whether the "!" prefix was present.
func Name(header string) (name string, bang bool) {
	h := strings.TrimLeft(header, " \t")
	if !strings.HasPrefix(h, "@") {
		return "", false
	}
	h = h[1:]
	if strings.HasPrefix(h, "!") {
		bang = true
		h = h[1:]
	}
	end := 0
	for end < len(h) && IsNameByte(h[end]) {
		end++
	}
	return h[:end], bang
}
