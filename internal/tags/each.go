package tags

import (
	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
)

const eachUsage = `@each expects "item in list" or "(item, index) in list"`

// compileEach compiles @each with an optional @else for empty collections:
//
//	ITER_INIT list -> empty
//	loop: ITER_NEXT item,index -> end
//	  body
//	JUMP -> loop
//	empty:
//	  else body
//	end:
func compileEach(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
	node, err := p.Expr(tok, expr.SequenceExpression, expr.AssignmentExpression)
	if err != nil {
		return err
	}
	in, ok := node.(*expr.Binary)
	if !ok || in.Operator != "in" {
		return p.Invalid(tok, eachUsage)
	}
	name, key, ok := loopNames(in.Left)
	if !ok {
		return p.Invalid(tok, eachUsage)
	}

	loop, empty, end := buf.NewLabel(), buf.NewLabel(), buf.NewLabel()

	buf.WriteJump(vm.Instruction{Op: vm.OpIterInit, Expr: in.Right, Pos: tok.Pos}, empty)
	buf.Mark(loop)
	buf.WriteJump(vm.Instruction{Op: vm.OpIterNext, Name: name, Key: key, Pos: tok.Pos}, end)

	if tok.SelfClosed {
		buf.WriteJump(vm.Instruction{Op: vm.OpJump}, loop)
		buf.Mark(empty)
		buf.Mark(end)
		return nil
	}

	buf.Indent(tok.Name, tok.Pos)
	stop, err := p.ParseBody(buf, tok, "else")
	if err != nil {
		return err
	}
	buf.WriteJump(vm.Instruction{Op: vm.OpJump}, loop)
	buf.Mark(empty)

	if stop.Kind == lexer.TagOpen {
		if _, err := p.ParseBody(buf, tok); err != nil {
			return err
		}
	}

	buf.Mark(end)
	return buf.Dedent()
}

func loopNames(n expr.Node) (name, key string, ok bool) {
	switch t := n.(type) {
	case *expr.Identifier:
		return t.Name, "", true
	case *expr.Sequence:
		if len(t.Expressions) != 2 {
			return "", "", false
		}
		item, ok1 := t.Expressions[0].(*expr.Identifier)
		index, ok2 := t.Expressions[1].(*expr.Identifier)
		if !ok1 || !ok2 {
			return "", "", false
		}
		return item.Name, index.Name, true
	}
	return "", "", false
}
