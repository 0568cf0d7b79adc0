package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
	"github.com/anhnt/edge/internal/whitespace"
)

func mustParse(t *testing.T, src string) expr.Node {
	t.Helper()
	node, err := expr.Parse(src)
	require.NoError(t, err)
	return node
}

func TestTextIsMergedUntilStatement(t *testing.T) {
	b := New("index.edge", whitespace.All)
	b.WriteText("Hello ")
	b.WriteText("world")
	b.WriteStatement(vm.Instruction{Op: vm.OpOutput, Expr: mustParse(t, "name"), Escape: true})
	b.WriteText("!")

	prog, err := b.Flush()
	require.NoError(t, err)
	require.Len(t, prog.Code, 4)

	assert.Equal(t, vm.OpText, prog.Code[0].Op)
	assert.Equal(t, "Hello world", prog.Code[0].Text)
	assert.Equal(t, vm.OpOutput, prog.Code[1].Op)
	assert.Equal(t, "!", prog.Code[2].Text)
	assert.Equal(t, vm.OpReturn, prog.Code[3].Op)
	assert.Equal(t, "index.edge", prog.Filename)
}

func TestTextWhitespaceMode(t *testing.T) {
	b := New("", whitespace.Controlled)
	b.WriteText("a    b\n\n\nc")
	prog, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, "a b\nc", prog.Code[0].Text)
}

func TestIndentDepth(t *testing.T) {
	b := New("", whitespace.All)
	pos := lexer.Position{Line: 1}

	b.Indent("if", pos)
	idx := b.WriteStatement(vm.Instruction{Op: vm.OpText, Text: "x"})
	assert.Equal(t, 1, b.Depth())
	require.NoError(t, b.Dedent())
	assert.Equal(t, 0, b.Depth())

	prog, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Code[idx].Depth)

	assert.Error(t, b.Dedent())
}

func TestLabelsResolve(t *testing.T) {
	b := New("", whitespace.All)
	end := b.NewLabel()
	jump := b.WriteJump(vm.Instruction{Op: vm.OpJumpIfFalse, Expr: mustParse(t, "ok")}, end)
	b.WriteText("yes")
	b.Mark(end)
	b.WriteText("after")

	prog, err := b.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Code[jump].Target)
	assert.Equal(t, "after", prog.Code[2].Text)
}

func TestUnresolvedLabel(t *testing.T) {
	b := New("", whitespace.All)
	b.WriteJump(vm.Instruction{Op: vm.OpJump}, b.NewLabel())
	_, err := b.Flush()
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, errors.KindInternal, kind)
}

func TestFlushWithOpenBlock(t *testing.T) {
	b := New("page.edge", whitespace.All)
	b.Indent("if", lexer.Position{Filename: "page.edge", Line: 3, Column: 2})
	b.Indent("each", lexer.Position{Filename: "page.edge", Line: 4, Column: 4})
	require.NoError(t, b.Dedent())

	_, err := b.Flush()
	require.Error(t, err)
	assert.True(t, errors.IsUnclosedTagError(err))

	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	assert.Equal(t, errors.ErrCodeUnclosedTag, edgeErr.Code)
	assert.Equal(t, 3, edgeErr.Line)
	assert.Equal(t, 2, edgeErr.Column)
	assert.Contains(t, edgeErr.Message, "@if")
}

func TestSubBufferIsIndependent(t *testing.T) {
	b := New("page.edge", whitespace.All)
	b.Indent("component", lexer.Position{Line: 1})
	sub := b.Sub()
	sub.WriteText("slot body")

	prog, err := sub.Flush()
	require.NoError(t, err)
	assert.Equal(t, "page.edge", prog.Filename)
	assert.Equal(t, "slot body", prog.Code[0].Text)
	assert.Equal(t, 0, prog.Code[0].Depth)
	assert.Equal(t, 1, b.Depth())
}
