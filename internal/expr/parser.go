package expr

import (
	"fmt"

	"github.com/anhnt/edge/internal/errors"
)

// binding powers of binary operators
var binaryPrecedence = map[string]int{
	"??":  1,
	"||":  2,
	"&&":  3,
	"==":  4,
	"!=":  4,
	"===": 4,
	"!==": 4,
	"<":   5,
	">":   5,
	"<=":  5,
	">=":  5,
	"in":  5,
	"+":   6,
	"-":   6,
	"*":   7,
	"/":   7,
	"%":   7,
}

var keywords = map[string]bool{
	"true": true, "false": true, "null": true, "undefined": true, "typeof": true, "in": true,
}

type parser struct {
	sc  *scanner
	tok token
}

// Parse parses src into a tree. Errors are *SyntaxError values.
func Parse(src string) (Node, error) {
	p := &parser{sc: &scanner{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.typ == tokEOF {
		return nil, p.sc.errorf(0, "Unexpected end of expression")
	}

	node, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokEOF {
		return nil, p.sc.errorf(p.tok.pos, "Unexpected token %s", p.tok)
	}
	return node, nil
}

// ParseAt parses src and reports failures as E_INVALID_EXPRESSION errors
// located at the given position.
func ParseAt(src, filename string, line, column int) (Node, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, errors.NewInvalidExpressionError(src, fmt.Sprintf("Invalid expression %q: %v", src, err)).
			WithLocation(filename, line, column).
			WithCause(err)
	}
	return node, nil
}

func (p *parser) advance() error {
	tok, err := p.sc.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) is(text string) bool {
	return (p.tok.typ == tokPunct || p.tok.typ == tokIdent) && p.tok.text == text
}

func (p *parser) expect(text string) error {
	if !p.is(text) {
		return p.sc.errorf(p.tok.pos, "Expected %q but found %s", text, p.tok)
	}
	return p.advance()
}

func (p *parser) parseSequence() (Node, error) {
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.is(",") {
		return first, nil
	}

	seq := &Sequence{Expressions: []Node{first}, Pos: first.Offset()}
	for p.is(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.Expressions = append(seq.Expressions, next)
	}
	return seq, nil
}

func (p *parser) parseAssign() (Node, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if !p.is("=") {
		return left, nil
	}

	switch left.(type) {
	case *Identifier, *Member:
	default:
		return nil, p.sc.errorf(p.tok.pos, "Invalid assignment target %s", left)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Assign{Target: left, Value: value, Pos: left.Offset()}, nil
}

func (p *parser) parseConditional() (Node, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.is("?") {
		return test, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	consequent, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	alternate, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &Conditional{Test: test, Consequent: consequent, Alternate: alternate, Pos: test.Offset()}, nil
}

func (p *parser) binaryOperator() (string, int, bool) {
	if p.tok.typ != tokPunct && !(p.tok.typ == tokIdent && p.tok.text == "in") {
		return "", 0, false
	}
	prec, ok := binaryPrecedence[p.tok.text]
	return p.tok.text, prec, ok
}

func (p *parser) parseBinary(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, prec, ok := p.binaryOperator()
		if !ok || prec <= minPrec {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		switch op {
		case "&&", "||", "??":
			left = &Logical{Operator: op, Left: left, Right: right, Pos: left.Offset()}
		default:
			left = &Binary{Operator: op, Left: left, Right: right, Pos: left.Offset()}
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.is("!") || p.is("-") || p.is("+") || p.is("typeof") {
		op, pos := p.tok.text, p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Operand: operand, Pos: pos}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.is("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.typ != tokIdent {
				return nil, p.sc.errorf(p.tok.pos, "Expected property name but found %s", p.tok)
			}
			prop := &Identifier{Name: p.tok.text, Pos: p.tok.pos}
			if err := p.advance(); err != nil {
				return nil, err
			}
			node = &Member{Object: node, Property: prop, Pos: node.Offset()}

		case p.is("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop, err := p.parseSequence()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			node = &Member{Object: node, Property: prop, Computed: true, Pos: node.Offset()}

		case p.is("("):
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			node = &Call{Callee: node, Args: args, Pos: node.Offset()}

		default:
			return node, nil
		}
	}
}

// parseList parses comma separated assignments up to closing. The current
// token is the opening delimiter.
func (p *parser) parseList(closing string) ([]Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var items []Node
	for !p.is(closing) {
		item, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.is(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.is(closing) {
			return nil, p.sc.errorf(p.tok.pos, "Expected %q but found %s", closing, p.tok)
		}
	}
	return items, p.advance()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.tok

	switch tok.typ {
	case tokEOF:
		return nil, p.sc.errorf(tok.pos, "Unexpected end of expression")

	case tokNumber:
		return &Literal{Kind: NumberLiteral, Value: tok.value, Raw: tok.text, Pos: tok.pos}, p.advance()

	case tokString:
		return &Literal{Kind: StringLiteral, Value: tok.value, Raw: tok.text, Pos: tok.pos}, p.advance()

	case tokIdent:
		switch tok.text {
		case "true", "false":
			return &Literal{Kind: BoolLiteral, Value: tok.text == "true", Raw: tok.text, Pos: tok.pos}, p.advance()
		case "null":
			return &Literal{Kind: NullLiteral, Raw: tok.text, Pos: tok.pos}, p.advance()
		case "undefined":
			return &Literal{Kind: UndefinedLiteral, Raw: tok.text, Pos: tok.pos}, p.advance()
		}
		if keywords[tok.text] {
			return nil, p.sc.errorf(tok.pos, "Unexpected keyword %s", tok)
		}
		return &Identifier{Name: tok.text, Pos: tok.pos}, p.advance()
	}

	switch tok.text {
	case "(":
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		return inner, p.expect(")")

	case "[":
		items, err := p.parseList("]")
		if err != nil {
			return nil, err
		}
		return &Array{Elements: items, Pos: tok.pos}, nil

	case "{":
		return p.parseObject()
	}

	return nil, p.sc.errorf(tok.pos, "Unexpected token %s", tok)
}

func (p *parser) parseObject() (Node, error) {
	obj := &Object{Pos: p.tok.pos}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for !p.is("}") {
		var key string
		switch p.tok.typ {
		case tokIdent:
			key = p.tok.text
		case tokString:
			key = p.tok.value.(string)
		case tokNumber:
			key = p.tok.text
		default:
			return nil, p.sc.errorf(p.tok.pos, "Expected property name but found %s", p.tok)
		}
		keyTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.is(":") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			value, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			obj.Properties = append(obj.Properties, Property{Key: key, Value: value})
		} else {
			if keyTok.typ != tokIdent {
				return nil, p.sc.errorf(keyTok.pos, "Shorthand property must be an identifier")
			}
			obj.Properties = append(obj.Properties, Property{
				Key:       key,
				Value:     &Identifier{Name: key, Pos: keyTok.pos},
				Shorthand: true,
			})
		}

		if p.is(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.is("}") {
			return nil, p.sc.errorf(p.tok.pos, "Expected \"}\" but found %s", p.tok)
		}
	}
	return obj, p.advance()
}
