package tags

import (
	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
)

var includeShapes = []string{
	"Identifier", "Literal", "MemberExpression", "CallExpression",
	"ConditionalExpression", "LogicalExpression", "BinaryExpression",
}

// compileInclude renders another template inline, in the current scope.
func compileInclude(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
	node, err := p.Expr(tok)
	if err != nil {
		return err
	}
	if e := expr.Expect(node, tok.Name, includeShapes...); e != nil {
		return p.invalid(e, tok)
	}
	buf.WriteStatement(vm.Instruction{Op: vm.OpInclude, Expr: node, Pos: tok.Pos})
	return nil
}

// compileIncludeIf compiles @includeIf(cond, name) to a guarded include.
func compileIncludeIf(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
	node, err := p.Expr(tok)
	if err != nil {
		return err
	}
	args := expr.Args(node)
	if len(args) != 2 {
		return p.Invalid(tok, "@includeIf expects a condition and a template name")
	}
	if e := expr.Expect(args[1], tok.Name, includeShapes...); e != nil {
		return p.invalid(e, tok)
	}

	skip := buf.NewLabel()
	buf.WriteJump(vm.Instruction{Op: vm.OpJumpIfFalse, Expr: args[0], Pos: tok.Pos}, skip)
	buf.WriteStatement(vm.Instruction{Op: vm.OpInclude, Expr: args[1], Pos: tok.Pos})
	buf.Mark(skip)
	return nil
}

// compileSet compiles @set('name', value) to an assignment in the current
// scope.
func compileSet(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
	node, err := p.Expr(tok)
	if err != nil {
		return err
	}
	args := expr.Args(node)
	if len(args) != 2 {
		return p.Invalid(tok, "@set expects a variable name and a value")
	}
	name, ok := expr.IsStringLiteral(args[0])
	if !ok || name == "" {
		return p.Invalid(tok, "@set expects the variable name as a string literal")
	}
	buf.WriteStatement(vm.Instruction{Op: vm.OpSet, Name: name, Expr: args[1], Pos: tok.Pos})
	return nil
}
