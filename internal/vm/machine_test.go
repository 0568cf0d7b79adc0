package vm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/scope"
)

func node(t *testing.T, src string) expr.Node {
	t.Helper()
	n, err := expr.Parse(src)
	require.NoError(t, err)
	return n
}

func render(t *testing.T, prog *Program, data map[string]interface{}, r Renderer) (string, error) {
	t.Helper()
	return Run(prog, scope.NewRenderContext(nil, data), r)
}

func programs(progs map[string]*Program) Renderer {
	return RendererFunc(func(name string) (*Program, error) {
		p, ok := progs[name]
		if !ok {
			return nil, errors.NewTemplateNotFoundError(name)
		}
		return p, nil
	})
}

func TestRunTextAndOutput(t *testing.T) {
	prog := &Program{Code: []Instruction{
		{Op: OpText, Text: "Hello "},
		{Op: OpOutput, Expr: node(t, "name"), Escape: true},
		{Op: OpText, Text: " "},
		{Op: OpOutput, Expr: node(t, "html"), Escape: false},
		{Op: OpReturn},
		{Op: OpText, Text: "never"},
	}}

	out, err := render(t, prog, map[string]interface{}{"name": "<virk>", "html": "<b>hi</b>"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello &lt;virk&gt; <b>hi</b>", out)
}

func TestRunConditionalJumps(t *testing.T) {
	// if ok: "yes" else "no"
	prog := &Program{Code: []Instruction{
		{Op: OpJumpIfFalse, Expr: node(t, "ok"), Target: 3},
		{Op: OpText, Text: "yes"},
		{Op: OpJump, Target: 4},
		{Op: OpText, Text: "no"},
		{Op: OpReturn},
	}}

	out, err := render(t, prog, map[string]interface{}{"ok": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "yes", out)

	out, err = render(t, prog, map[string]interface{}{"ok": 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, "no", out)
}

func loopProgram(t *testing.T) *Program {
	// each (user, i) in users: "{i}:{user}{sep}" else "none"
	return &Program{Code: []Instruction{
		{Op: OpIterInit, Expr: node(t, "users"), Target: 8},
		{Op: OpIterNext, Name: "user", Key: "i", Target: 9},
		{Op: OpOutput, Expr: node(t, "i")},
		{Op: OpText, Text: ":"},
		{Op: OpOutput, Expr: node(t, "user")},
		{Op: OpJumpIfTrue, Expr: node(t, "$loop.last"), Target: 7},
		{Op: OpText, Text: ","},
		{Op: OpJump, Target: 1},
		{Op: OpText, Text: "none"},
		{Op: OpOutput, Expr: node(t, "typeof user")},
		{Op: OpReturn},
	}}
}

func TestRunLoop(t *testing.T) {
	prog := loopProgram(t)

	out, err := render(t, prog, map[string]interface{}{"users": []string{"virk", "nikk"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0:virk,1:nikkundefined", out, "loop variables do not leak")

	out, err = render(t, prog, map[string]interface{}{"users": []string{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "noneundefined", out)

	out, err = render(t, prog, map[string]interface{}{"users": map[string]int{"b": 2, "a": 1}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a:1,b:2undefined", out)
}

func TestRunLoopMetadata(t *testing.T) {
	prog := &Program{Code: []Instruction{
		{Op: OpIterInit, Expr: node(t, "items"), Target: 4},
		{Op: OpIterNext, Name: "item", Target: 4},
		{Op: OpOutput, Expr: node(t, "$loop.index + '/' + $loop.total + ($loop.last ? '!' : ' ')")},
		{Op: OpJump, Target: 1},
		{Op: OpReturn},
	}}

	out, err := render(t, prog, map[string]interface{}{"items": []int{1, 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "0/2 1/2!", out)
}

func TestRunSetAndScopes(t *testing.T) {
	prog := &Program{Code: []Instruction{
		{Op: OpSet, Name: "x", Expr: node(t, "1")},
		{Op: OpPushScope},
		{Op: OpSet, Name: "x", Expr: node(t, "x + 1")},
		{Op: OpOutput, Expr: node(t, "x")},
		{Op: OpPopScope},
		{Op: OpOutput, Expr: node(t, "x")},
		{Op: OpReturn},
	}}

	out, err := render(t, prog, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "21", out)
}

func TestRunInclude(t *testing.T) {
	header := &Program{Filename: "header.edge", Code: []Instruction{
		{Op: OpText, Text: "<h1>"},
		{Op: OpOutput, Expr: node(t, "title"), Escape: true},
		{Op: OpText, Text: "</h1>\n"},
	}}
	page := &Program{Filename: "page.edge", Code: []Instruction{
		{Op: OpInclude, Expr: node(t, "'header'")},
		{Op: OpText, Text: "body"},
	}}

	out, err := render(t, page, map[string]interface{}{"title": "Home"}, programs(map[string]*Program{"header": header}))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1>\nbody", out)
}

func TestRunIncludeMissing(t *testing.T) {
	page := &Program{Filename: "page.edge", Code: []Instruction{
		{Op: OpInclude, Expr: node(t, "'nope'"), Pos: lexer.Position{Line: 2, Column: 0}},
	}}

	_, err := render(t, page, nil, programs(nil))
	require.Error(t, err)
	assert.True(t, errors.IsTemplateNotFoundError(err))

	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	assert.Equal(t, "page.edge", edgeErr.Filename)
	assert.Equal(t, 2, edgeErr.Line)

	_, err = render(t, page, nil, nil)
	assert.True(t, errors.IsTemplateNotFoundError(err))
}

func TestRunComponentIsolation(t *testing.T) {
	card := &Program{Filename: "card.edge", Code: []Instruction{
		{Op: OpText, Text: "<h1>"},
		{Op: OpOutput, Expr: node(t, "title"), Escape: true},
		{Op: OpText, Text: "</h1>"},
		{Op: OpOutput, Expr: node(t, "user"), Escape: true},
		{Op: OpOutput, Expr: node(t, "$slot.main"), Escape: true},
		{Op: OpText, Text: "\n"},
	}}
	slot := &Program{Code: []Instruction{
		{Op: OpText, Text: "<p>"},
		{Op: OpOutput, Expr: node(t, "user"), Escape: true},
		{Op: OpText, Text: "</p>"},
	}}
	page := &Program{Filename: "page.edge", Code: []Instruction{
		{
			Op:    OpComponent,
			Expr:  node(t, "'card'"),
			Props: []Prop{{Key: "title", Value: node(t, "'Hi'")}},
			Slots: map[string]*Program{"main": slot},
		},
		{Op: OpText, Text: "|"},
		{Op: OpOutput, Expr: node(t, "title")},
	}}

	out, err := render(t, page,
		map[string]interface{}{"title": "caller", "user": "virk"},
		programs(map[string]*Program{"card": card}))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Hi</h1><p>virk</p>|caller", out)
}

func TestRunComponentPropsObjectAndPresenter(t *testing.T) {
	card := &Program{Code: []Instruction{
		{Op: OpOutput, Expr: node(t, "title")},
		{Op: OpOutput, Expr: node(t, "size")},
	}}
	card = card.WithPresenter(func(data map[string]interface{}) map[string]interface{} {
		data["title"] = strings.ToUpper(fmt.Sprint(data["title"]))
		return data
	})

	page := &Program{Code: []Instruction{
		{Op: OpComponent, Expr: node(t, "'card'"), PropsExpr: node(t, "{ title: name, size: 2 }")},
	}}
	out, err := render(t, page, map[string]interface{}{"name": "hi"}, programs(map[string]*Program{"card": card}))
	require.NoError(t, err)
	assert.Equal(t, "HI2", out)

	bad := &Program{Code: []Instruction{
		{Op: OpComponent, Expr: node(t, "'card'"), PropsExpr: node(t, "42")},
	}}
	_, err = render(t, bad, nil, programs(map[string]*Program{"card": card}))
	assert.Error(t, err)
}

func TestRunRecursionLimit(t *testing.T) {
	loop := &Program{Filename: "loop.edge", Code: []Instruction{
		{Op: OpInclude, Expr: node(t, "'loop'")},
	}}
	_, err := render(t, loop, nil, programs(map[string]*Program{"loop": loop}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum render depth")
}

func TestRunRuntimeErrorPosition(t *testing.T) {
	prog := &Program{Filename: "page.edge", Code: []Instruction{
		{Op: OpOutput, Expr: node(t, "format(1)"), Pos: lexer.Position{Filename: "page.edge", Line: 5, Column: 3}},
	}}
	_, err := render(t, prog, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsUnregisteredFunctionError(err))

	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	assert.Equal(t, 5, edgeErr.Line)
	assert.Equal(t, 3, edgeErr.Column)
}

func TestProgramString(t *testing.T) {
	prog := &Program{Code: []Instruction{
		{Op: OpJumpIfFalse, Expr: node(t, "ok"), Target: 2},
		{Op: OpText, Text: "yes", Depth: 1},
		{Op: OpComponent, Expr: node(t, "'card'"), Props: []Prop{{Key: "a", Value: node(t, "1")}},
			Slots: map[string]*Program{"main": {Code: []Instruction{{Op: OpReturn}}}}},
		{Op: OpReturn},
	}}

	dump := prog.String()
	assert.Contains(t, dump, "0000 JUMP_IF_FALSE ok -> 0002")
	assert.Contains(t, dump, "0001   TEXT \"yes\"")
	assert.Contains(t, dump, "COMPONENT 'card' a=1")
	assert.Contains(t, dump, `slot "main"`)
	assert.Equal(t, "Op(99)", Op(99).String())
}
