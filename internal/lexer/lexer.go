// Package lexer converts raw template text into a lazy sequence of tokens.
//
// Line boundaries are recognised first and drive position tracking. A line
// whose first non-blank characters are "@name" with a registered name is a
// tag line; its header is handed to the statement parser, possibly across
// several lines, and its own newline is consumed. Every other line is
// scanned for comments ("{{-- --}}"), escaped mustaches ("{{ }}"),
// unescaped mustaches ("{{{ }}}") and verbatim mustaches ("@{{ }}"), with
// the text between them emitted as Raw tokens. Mustaches and comments may
// span lines.
package lexer

import (
	"fmt"
	"strings"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/statement"
	"github.com/anhnt/edge/internal/whitespace"
)

// span is an open mustache or comment that may continue on later lines.
type span struct {
	comment  bool
	kind     MustacheKind
	closing  string
	pos      Position
	depth    int
	quote    rune
	escaped  bool
	expr     *whitespace.Bucket
	verbatim strings.Builder
}

// Lexer tokenizes one document. Create a new Lexer to restart.
type Lexer struct {
	filename string
	lines    []string
	tags     TagLookup

	line    int
	queue   []Token
	open    *span
	done    bool
	err     error
}

// New creates a lexer over source.
func New(filename, source string, tags TagLookup) *Lexer {
	if tags == nil {
		tags = TagMap{}
	}
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return &Lexer{
		filename: filename,
		lines:    strings.Split(source, "\n"),
		tags:     tags,
	}
}

// Tokenize returns every token of source, without the trailing EOF.
func Tokenize(filename, source string, tags TagLookup) ([]Token, error) {
	l := New(filename, source, tags)
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token. After the last token it returns an EOF
// token; after an error it keeps returning that error.
func (l *Lexer) Next() (Token, error) {
	for len(l.queue) == 0 {
		if l.err != nil {
			return Token{}, l.err
		}
		if l.done {
			return Token{Kind: EOF, Pos: Position{Filename: l.filename, Line: len(l.lines)}}, nil
		}
		if l.line >= len(l.lines) {
			l.done = true
			if l.open != nil {
				l.err = l.unclosedSpan()
			}
			continue
		}
		if err := l.scanLine(); err != nil {
			l.err = err
		}
	}

	tok := l.queue[0]
	l.queue = l.queue[1:]
	return tok, nil
}

func (l *Lexer) pos(line, column int) Position {
	return Position{Filename: l.filename, Line: line + 1, Column: column}
}

func (l *Lexer) emit(tok Token) {
	l.queue = append(l.queue, tok)
}

func (l *Lexer) hasNewline(line int) bool {
	return line < len(l.lines)-1
}

func (l *Lexer) scanLine() error {
	text := l.lines[l.line]

	if l.open == nil {
		handled, err := l.scanTagLine(text)
		if err != nil || handled {
			return err
		}
	}

	l.scanText(text, l.line)
	l.line++
	return nil
}

// scanTagLine handles "@name" lines. It reports false when the line is
// ordinary text.
func (l *Lexer) scanTagLine(text string) (bool, error) {
	trimmed := strings.TrimLeft(text, " \t")
	column := len(text) - len(trimmed)
	if !strings.HasPrefix(trimmed, "@") || strings.HasPrefix(trimmed, "@{{") {
		return false, nil
	}

	if strings.HasPrefix(trimmed, "@@") {
		name, _ := statement.Name(trimmed[1:])
		if name != "" {
			l.lines[l.line] = text[:column] + trimmed[1:]
			// rescanned as text so the escaped "@name" is not a tag
			l.scanText(l.lines[l.line], l.line)
			l.line++
			return true, nil
		}
		return false, nil
	}

	name, bang := statement.Name(trimmed)
	if name == "" {
		return false, nil
	}
	after := trimmed[1+len(name):]
	if bang {
		after = trimmed[2+len(name):]
	}

	info, ok := l.tags.Lookup(name)
	if !ok {
		if closeName, isClose := l.closingName(name); isClose {
			if strings.TrimSpace(after) != "" {
				return true, errors.NewUnclosedStatementError(errors.ErrCodeCannotSeekStatement,
					fmt.Sprintf("Unexpected %q after @%s", strings.TrimSpace(after), name)).
					WithSnippet(strings.TrimSpace(trimmed)).
					WithLocation(l.filename, l.line+1, column)
			}
			l.emit(Token{Kind: TagClose, Name: closeName, Pos: l.pos(l.line, column)})
			l.line++
			return true, nil
		}
		if strings.HasPrefix(after, "(") {
			return true, errors.NewUnknownTagError(name).WithLocation(l.filename, l.line+1, column)
		}
		return false, nil
	}

	startLine := l.line
	stmt := statement.New(l.filename, startLine+1, column)
	if err := stmt.Feed(text); err != nil {
		return true, err
	}
	for !stmt.Ended {
		l.line++
		if l.line >= len(l.lines) {
			return true, stmt.Finish()
		}
		if err := stmt.Feed(l.lines[l.line]); err != nil {
			return true, err
		}
	}

	if info.Seekable && stmt.Arg == "" {
		return true, errors.NewUnclosedStatementError(errors.ErrCodeCannotSeekStatement,
			fmt.Sprintf("Missing expression for @%s tag", name)).
			WithSnippet(strings.TrimSpace(trimmed)).
			WithLocation(l.filename, startLine+1, column)
	}

	l.emit(Token{
		Kind:       TagOpen,
		Name:       name,
		Expr:       stmt.Arg,
		Pos:        l.pos(startLine, column),
		Block:      info.Block,
		SelfClosed: !info.Block || stmt.SelfClosed,
	})
	l.line++
	return true, nil
}

func (l *Lexer) closingName(name string) (string, bool) {
	if name == "end" {
		return "", true
	}
	if !strings.HasPrefix(name, "end") {
		return "", false
	}
	info, ok := l.tags.Lookup(name[3:])
	if !ok || !info.Block {
		return "", false
	}
	return name[3:], true
}

// scanText tokenizes a non-tag line, continuing any open span.
func (l *Lexer) scanText(text string, line int) {
	var raw strings.Builder
	rawStart := 0
	start := len(l.queue)
	sawComment := l.open != nil && l.open.comment
	content := false

	flush := func() {
		if raw.Len() > 0 {
			if strings.TrimSpace(raw.String()) != "" {
				content = true
			}
			l.emit(Token{Kind: Raw, Text: raw.String(), Pos: l.pos(line, rawStart)})
			raw.Reset()
		}
	}

	for i := 0; i < len(text); {
		if l.open != nil {
			n, closed := l.feedSpan(text[i:])
			i += n
			if closed {
				if l.open.comment {
					sawComment = true
					l.emit(Token{Kind: Comment, Text: strings.TrimSpace(l.open.verbatim.String()), Pos: l.open.pos})
				} else {
					content = true
					l.emit(l.mustacheToken())
				}
				l.open = nil
				rawStart = i
			}
			continue
		}

		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "@{{{"):
			flush()
			l.openSpan(false, Verbatim, "}}}", line, i)
			i += 4
		case strings.HasPrefix(rest, "@{{"):
			flush()
			l.openSpan(false, Verbatim, "}}", line, i)
			i += 3
		case strings.HasPrefix(rest, "{{--"):
			flush()
			l.openSpan(true, Escaped, "--}}", line, i)
			sawComment = true
			i += 4
		case strings.HasPrefix(rest, "{{{"):
			flush()
			l.openSpan(false, Unescaped, "}}}", line, i)
			i += 3
		case strings.HasPrefix(rest, "{{"):
			flush()
			l.openSpan(false, Escaped, "}}", line, i)
			i += 2
		default:
			if raw.Len() == 0 {
				rawStart = i
			}
			raw.WriteByte(text[i])
			i++
		}
	}

	if l.open != nil {
		if l.hasNewline(line) {
			l.open.feedNewline()
		}
		if !l.open.comment {
			content = true
		}
		if !content && sawComment {
			l.dropBlankRaw(start)
		}
		return
	}

	flush()
	if sawComment && !content {
		// a line holding only a comment disappears with its newline
		l.dropBlankRaw(start)
		return
	}
	if l.hasNewline(line) {
		l.emit(Token{Kind: NewLine, Pos: l.pos(line, len(text))})
	}
}

func (l *Lexer) dropBlankRaw(from int) {
	kept := l.queue[:from]
	for _, tok := range l.queue[from:] {
		if tok.Kind == Raw && strings.TrimSpace(tok.Text) == "" {
			continue
		}
		kept = append(kept, tok)
	}
	l.queue = kept
}

func (l *Lexer) openSpan(comment bool, kind MustacheKind, closing string, line, column int) {
	l.open = &span{
		comment: comment,
		kind:    kind,
		closing: closing,
		pos:     l.pos(line, column),
		expr:    whitespace.New(whitespace.Controlled),
	}
}

// feedSpan consumes text until the span closes. It returns the number of
// bytes consumed.
func (l *Lexer) feedSpan(text string) (int, bool) {
	s := l.open
	for i := 0; i < len(text); i++ {
		c := text[i]

		if s.comment {
			if strings.HasPrefix(text[i:], s.closing) {
				return i + len(s.closing), true
			}
			s.verbatim.WriteByte(c)
			continue
		}

		if s.quote != 0 {
			s.expr.FeedRaw(string(c))
			s.verbatim.WriteByte(c)
			switch {
			case s.escaped:
				s.escaped = false
			case c == '\\':
				s.escaped = true
			case rune(c) == s.quote:
				s.quote = 0
			}
			continue
		}

		if s.depth == 0 && strings.HasPrefix(text[i:], s.closing) {
			return i + len(s.closing), true
		}

		switch c {
		case '\'', '"', '`':
			s.quote = rune(c)
			s.expr.FeedRaw(string(c))
		case '{', '(', '[':
			s.depth++
			s.expr.Feed(rune(c))
		case '}', ')', ']':
			if s.depth > 0 {
				s.depth--
			}
			s.expr.Feed(rune(c))
		default:
			s.expr.Feed(rune(c))
		}
		s.verbatim.WriteByte(c)
	}
	return len(text), false
}

func (s *span) feedNewline() {
	if s.comment {
		s.verbatim.WriteByte('\n')
		return
	}
	s.expr.Feed('\n')
	s.verbatim.WriteByte('\n')
}

func (l *Lexer) mustacheToken() Token {
	s := l.open
	tok := Token{
		Kind:     Mustache,
		Mustache: s.kind,
		Expr:     strings.TrimSpace(s.expr.String()),
		Pos:      s.pos,
	}
	if s.kind == Verbatim {
		opening := "{{"
		if s.closing == "}}}" {
			opening = "{{{"
		}
		tok.Text = opening + s.verbatim.String() + s.closing
	}
	return tok
}

func (l *Lexer) unclosedSpan() error {
	s := l.open
	opening := "{{"
	switch {
	case s.comment:
		opening = "{{--"
	case s.closing == "}}}":
		opening = "{{{"
	}
	if s.kind == Verbatim {
		opening = "@" + opening
	}
	return errors.NewLexError(fmt.Sprintf("Missing token %q to close %q", s.closing, opening)).
		WithSnippet(opening + strings.TrimRight(s.verbatim.String(), "\n")).
		WithLocation(s.pos.Filename, s.pos.Line, s.pos.Column)
}
