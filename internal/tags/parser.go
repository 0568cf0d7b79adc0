package tags

import (
	"fmt"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
)

// Parser walks the token stream of one template and drives the tag
// compilers. It is single use.
type Parser struct {
	lx       *lexer.Lexer
	registry *Registry
	filename string
	peeked   *lexer.Token
}

// NewParser creates a parser reading from lx.
func NewParser(filename string, lx *lexer.Lexer, registry *Registry) *Parser {
	if registry == nil {
		registry = Default()
	}
	return &Parser{lx: lx, registry: registry, filename: filename}
}

// Filename returns the template being compiled.
func (p *Parser) Filename() string {
	return p.filename
}

// Next consumes the next token.
func (p *Parser) Next() (lexer.Token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	return p.lx.Next()
}

// Peek returns the next token without consuming it.
func (p *Parser) Peek() (lexer.Token, error) {
	if p.peeked != nil {
		return *p.peeked, nil
	}
	tok, err := p.lx.Next()
	if err != nil {
		return lexer.Token{}, err
	}
	p.peeked = &tok
	return tok, nil
}

// Parse compiles every remaining token into buf.
func (p *Parser) Parse(buf *buffer.Buffer) error {
	for {
		tok, err := p.Next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.EOF {
			return nil
		}
		if err := p.Process(tok, buf); err != nil {
			return err
		}
	}
}

// ParseBody compiles the body of opener into buf. It stops at the end tag
// of opener, returned as a TagClose token, or at an inline tag whose name
// is in stops, returned as is.
func (p *Parser) ParseBody(buf *buffer.Buffer, opener lexer.Token, stops ...string) (lexer.Token, error) {
	for {
		tok, err := p.Next()
		if err != nil {
			return lexer.Token{}, err
		}

		switch tok.Kind {
		case lexer.EOF:
			return lexer.Token{}, errors.NewUnclosedTagError(opener.Name).
				WithLocation(opener.Pos.Filename, opener.Pos.Line, opener.Pos.Column)

		case lexer.TagClose:
			if tok.Name == "" || tok.Name == opener.Name {
				return tok, nil
			}
			return lexer.Token{}, p.positioned(errors.NewUnexpectedEndTagError("end"+tok.Name), tok).
				WithContext("expected", "@end"+opener.Name)

		case lexer.TagOpen:
			for _, stop := range stops {
				if tok.Name == stop {
					return tok, nil
				}
			}
		}

		if err := p.Process(tok, buf); err != nil {
			return lexer.Token{}, err
		}
	}
}

// Process compiles a single token.
func (p *Parser) Process(tok lexer.Token, buf *buffer.Buffer) error {
	switch tok.Kind {
	case lexer.Raw:
		buf.WriteText(tok.Text)
	case lexer.NewLine:
		buf.WriteText("\n")
	case lexer.Comment, lexer.EOF:
	case lexer.Mustache:
		return p.mustache(tok, buf)
	case lexer.TagOpen:
		return p.tag(tok, buf)
	case lexer.TagClose:
		return p.positioned(errors.NewUnexpectedEndTagError("end"+tok.Name), tok)
	}
	return nil
}

func (p *Parser) mustache(tok lexer.Token, buf *buffer.Buffer) error {
	if tok.Mustache == lexer.Verbatim {
		buf.WriteText(tok.Text)
		return nil
	}
	node, err := p.Expr(tok, expr.AssignmentExpression, expr.SequenceExpression)
	if err != nil {
		return err
	}
	buf.WriteStatement(vm.Instruction{
		Op:     vm.OpOutput,
		Expr:   node,
		Escape: tok.Mustache == lexer.Escaped,
		Pos:    tok.Pos,
	})
	return nil
}

func (p *Parser) tag(tok lexer.Token, buf *buffer.Buffer) error {
	d, ok := p.registry.Descriptor(tok.Name)
	if !ok {
		return p.positioned(errors.NewUnknownTagError(tok.Name), tok)
	}

	switch d.Tag {
	case If:
		return compileIf(p, buf, tok, false)
	case Unless:
		return compileIf(p, buf, tok, true)
	case ElseIf, Else:
		e := errors.NewUnexpectedEndTagError(tok.Name)
		e.Message = fmt.Sprintf("Unexpected @%s outside of an @if, @unless or @each block", tok.Name)
		return p.positioned(e, tok)
	case Each:
		return compileEach(p, buf, tok)
	case Include:
		return compileInclude(p, buf, tok)
	case IncludeIf:
		return compileIncludeIf(p, buf, tok)
	case Component:
		return compileComponent(p, buf, tok)
	case Slot:
		e := errors.NewUnexpectedEndTagError(tok.Name)
		e.Message = "@slot can only be used as a direct child of @component"
		return p.positioned(e, tok)
	case Set:
		return compileSet(p, buf, tok)
	}
	return d.Compile(p, buf, tok)
}

// Expr parses the argument of tok and rejects the given top-level shapes.
func (p *Parser) Expr(tok lexer.Token, disallowed ...string) (expr.Node, error) {
	node, err := expr.ParseAt(tok.Expr, tok.Pos.Filename, tok.Pos.Line, tok.Pos.Column)
	if err != nil {
		return nil, err
	}
	name := tok.Name
	if tok.Kind == lexer.Mustache {
		name = "mustache"
	}
	if e := expr.Reject(node, name, disallowed...); e != nil {
		return nil, p.invalid(e, tok)
	}
	return node, nil
}

// Invalid creates an E_INVALID_EXPRESSION error positioned at tok.
func (p *Parser) Invalid(tok lexer.Token, format string, args ...interface{}) error {
	return p.invalid(errors.NewInvalidExpressionError(tok.Expr, fmt.Sprintf(format, args...)), tok)
}

func (p *Parser) invalid(e *errors.EdgeError, tok lexer.Token) error {
	e.Message = fmt.Sprintf("%s (%s)", e.Message, tok.Expr)
	return p.positioned(e.WithSnippet(tok.Expr), tok)
}

func (p *Parser) positioned(e *errors.EdgeError, tok lexer.Token) *errors.EdgeError {
	filename := tok.Pos.Filename
	if filename == "" {
		filename = p.filename
	}
	return e.WithLocation(filename, tok.Pos.Line, tok.Pos.Column)
}
