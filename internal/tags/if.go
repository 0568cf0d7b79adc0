package tags

import (
	"fmt"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
)

// ifState tracks where an @if chain is.
type ifState int

const (
	awaitingIf ifState = iota
	inBody
	inElseIf
	inElse
)

// compileIf compiles an @if or @unless chain:
//
//	JUMP_IF_FALSE cond -> next
//	  body
//	JUMP -> end
//	next: JUMP_IF_FALSE cond2 -> next2   (@elseif)
//	  body
//	JUMP -> end
//	next2:                               (@else)
//	  body
//	end:
func compileIf(p *Parser, buf *buffer.Buffer, tok lexer.Token, negate bool) error {
	state := awaitingIf

	cond, err := p.Expr(tok, expr.SequenceExpression, expr.AssignmentExpression)
	if err != nil {
		return err
	}

	end := buf.NewLabel()
	next := buf.NewLabel()
	op := vm.OpJumpIfFalse
	if negate {
		op = vm.OpJumpIfTrue
	}
	buf.WriteJump(vm.Instruction{Op: op, Expr: cond, Pos: tok.Pos}, next)

	if tok.SelfClosed {
		buf.Mark(next)
		buf.Mark(end)
		return nil
	}

	buf.Indent(tok.Name, tok.Pos)
	state = inBody

	for {
		stop, err := p.ParseBody(buf, tok, "elseif", "else")
		if err != nil {
			return err
		}
		if stop.Kind == lexer.TagClose {
			break
		}

		if state == inElse {
			e := errors.NewUnexpectedEndTagError(stop.Name)
			e.Message = fmt.Sprintf("@%s cannot follow @else in the same @%s block", stop.Name, tok.Name)
			return p.positioned(e, stop)
		}

		buf.WriteJump(vm.Instruction{Op: vm.OpJump, Pos: stop.Pos}, end)
		buf.Mark(next)
		next = buf.NewLabel()

		if stop.Name == "else" {
			state = inElse
			continue
		}

		cond, err := p.Expr(stop, expr.SequenceExpression, expr.AssignmentExpression)
		if err != nil {
			return err
		}
		buf.WriteJump(vm.Instruction{Op: vm.OpJumpIfFalse, Expr: cond, Pos: stop.Pos}, next)
		state = inElseIf
	}

	buf.Mark(next)
	buf.Mark(end)
	return buf.Dedent()
}
