package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/scope"
	"github.com/anhnt/edge/internal/vm"
	"github.com/anhnt/edge/internal/whitespace"
)

func compileWith(reg *Registry, filename, src string) (*vm.Program, error) {
	buf := buffer.New(filename, whitespace.All)
	p := NewParser(filename, lexer.New(filename, src, reg), reg)
	if err := p.Parse(buf); err != nil {
		return nil, err
	}
	return buf.Flush()
}

func mustCompile(t *testing.T, filename, src string) *vm.Program {
	t.Helper()
	prog, err := compileWith(Default(), filename, src)
	require.NoError(t, err)
	return prog
}

type templates map[string]string

func (ts templates) renderer(t *testing.T) vm.Renderer {
	return vm.RendererFunc(func(name string) (*vm.Program, error) {
		src, ok := ts[name]
		if !ok {
			return nil, errors.NewTemplateNotFoundError(name)
		}
		return compileWith(Default(), name+".edge", src)
	})
}

func renderString(t *testing.T, src string, data map[string]interface{}, ts templates) string {
	t.Helper()
	prog := mustCompile(t, "page.edge", src)
	out, err := vm.Run(prog, scope.NewRenderContext(nil, data), ts.renderer(t))
	require.NoError(t, err)
	return out
}

func compileError(t *testing.T, src string) *errors.EdgeError {
	t.Helper()
	_, err := compileWith(Default(), "page.edge", src)
	require.Error(t, err)
	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	return edgeErr
}

func TestIf(t *testing.T) {
	src := "@if(username === 'virk')\n  <p> Hello virk </p>\n@endif"

	assert.Equal(t, "  <p> Hello virk </p>\n",
		renderString(t, src, map[string]interface{}{"username": "virk"}, nil))
	assert.Equal(t, "",
		renderString(t, src, map[string]interface{}{"username": "nikk"}, nil))
}

func TestIfElseIfElse(t *testing.T) {
	src := strings.Join([]string{
		"@if(n > 10)",
		"big",
		"@elseif(n > 5)",
		"medium",
		"@elseif(n > 0)",
		"small",
		"@else",
		"none",
		"@endif",
	}, "\n")

	tests := []struct {
		n        int
		expected string
	}{
		{20, "big\n"},
		{7, "medium\n"},
		{1, "small\n"},
		{0, "none\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, renderString(t, src, map[string]interface{}{"n": tt.n}, nil), "n=%d", tt.n)
	}
}

func TestNestedIfAndBareEnd(t *testing.T) {
	src := "@if(a)\n@if(b)\nab\n@else\na\n@end\n@endif"

	assert.Equal(t, "ab\n", renderString(t, src, map[string]interface{}{"a": true, "b": true}, nil))
	assert.Equal(t, "a\n", renderString(t, src, map[string]interface{}{"a": true}, nil))
	assert.Equal(t, "", renderString(t, src, nil, nil))
}

func TestUnless(t *testing.T) {
	src := "@unless(admin)\nguest\n@else\nadmin\n@endunless"

	assert.Equal(t, "guest\n", renderString(t, src, nil, nil))
	assert.Equal(t, "admin\n", renderString(t, src, map[string]interface{}{"admin": true}, nil))
}

func TestIfErrors(t *testing.T) {
	t.Run("unclosed if is reported at the if", func(t *testing.T) {
		err := compileError(t, "<div>\n  @if(user)\n  hello\n")
		assert.Equal(t, errors.ErrCodeUnclosedTag, err.Code)
		assert.Equal(t, errors.KindUnclosedTag, err.Kind)
		assert.Equal(t, 2, err.Line)
		assert.Equal(t, 2, err.Column)
		assert.Contains(t, err.Message, "@if")
	})

	t.Run("else after else", func(t *testing.T) {
		err := compileError(t, "@if(a)\n@else\n@else\n@endif")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
		assert.Equal(t, 3, err.Line)
	})

	t.Run("elseif after else", func(t *testing.T) {
		err := compileError(t, "@if(a)\n@else\n@elseif(b)\n@endif")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
	})

	t.Run("sequence condition", func(t *testing.T) {
		err := compileError(t, "@if(a, b)\n@endif")
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
		assert.Contains(t, err.Message, "SequenceExpression")
		assert.Contains(t, err.Message, "a, b")
		assert.Equal(t, 1, err.Line)
	})

	assignments := []struct {
		name   string
		src    string
		line   int
		column int
	}{
		{name: "if", src: "@if(a = 1)\nyes\n@endif", line: 1, column: 0},
		{name: "elseif", src: "@if(b)\nno\n@elseif(a = 1)\nyes\n@endif", line: 3, column: 0},
		{name: "unless", src: "@unless(a = 1)\nyes\n@endunless", line: 1, column: 0},
	}
	for _, tt := range assignments {
		t.Run(tt.name+" assignment condition", func(t *testing.T) {
			err := compileError(t, tt.src)
			assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
			assert.Contains(t, err.Message, "AssignmentExpression")
			assert.Equal(t, "a = 1", err.Snippet)
			assert.Equal(t, tt.line, err.Line)
			assert.Equal(t, tt.column, err.Column)
		})
	}

	t.Run("assignment to data is rejected", func(t *testing.T) {
		err := compileError(t, "@if(username = 'virk')\nyes\n@endif")
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
		assert.Equal(t, "username = 'virk'", err.Snippet)
	})

	t.Run("stray else", func(t *testing.T) {
		err := compileError(t, "@else\n")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
	})

	t.Run("mismatched end tag", func(t *testing.T) {
		err := compileError(t, "@if(a)\n@endeach")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
		assert.Equal(t, 2, err.Line)
	})

	t.Run("stray end tag", func(t *testing.T) {
		err := compileError(t, "hello\n@endif")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
	})
}

func TestMustacheShapes(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; <b>",
		renderString(t, "{{ v }} {{{ v }}}", map[string]interface{}{"v": "<b>"}, nil))
	assert.Equal(t, "{{ v }}", renderString(t, "@{{ v }}", nil, nil))

	err := compileError(t, "\n  {{ a = 1 }}")
	assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
	assert.Equal(t, 2, err.Line)
	assert.Equal(t, 2, err.Column)
}

func TestEach(t *testing.T) {
	src := "@each((user, i) in users)\n{{ i }}:{{ user.name }}\n@else\nnobody\n@endeach"

	data := map[string]interface{}{"users": []map[string]interface{}{
		{"name": "virk"}, {"name": "nikk"},
	}}
	assert.Equal(t, "0:virk\n1:nikk\n", renderString(t, src, data, nil))
	assert.Equal(t, "nobody\n", renderString(t, src, nil, nil))

	plain := "@each(n in [1, 2, 3])\n{{ n }}{{ $loop.last ? '' : ',' }}\n@endeach"
	assert.Equal(t, "1,\n2,\n3\n", renderString(t, plain, nil, nil))
}

func TestEachErrors(t *testing.T) {
	for _, src := range []string{
		"@each(users)\n@endeach",
		"@each((a, b, c) in users)\n@endeach",
		"@each(a.b in users)\n@endeach",
	} {
		err := compileError(t, src)
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code, src)
	}
}

func TestInclude(t *testing.T) {
	ts := templates{"partials/header": "<header>{{ title }}</header>\n"}

	out := renderString(t, "@include('partials/header')\nbody", map[string]interface{}{"title": "Home"}, ts)
	assert.Equal(t, "<header>Home</header>\nbody", out)

	out = renderString(t, "@includeIf(show, 'partials/header')\nbody", map[string]interface{}{"title": "Home"}, ts)
	assert.Equal(t, "body", out)

	err := compileError(t, "@include({ a: 1 })")
	assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)

	err = compileError(t, "@includeIf('partials/header')")
	assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
}

func TestSet(t *testing.T) {
	out := renderString(t, "@set('total', price * qty)\n{{ total }}", map[string]interface{}{"price": 2, "qty": 3}, nil)
	assert.Equal(t, "6", out)

	err := compileError(t, "@set(total, 1)")
	assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
}

func TestComponent(t *testing.T) {
	ts := templates{"card": "<h1>{{ title }}</h1>"}

	out := renderString(t, "@component('card', title = 'Hi')\n@endcomponent",
		map[string]interface{}{"title": "caller"}, ts)
	assert.Equal(t, "<h1>Hi</h1>", out)

	out = renderString(t, "@!component('card', { title: name })", map[string]interface{}{"name": "obj"}, ts)
	assert.Equal(t, "<h1>obj</h1>", out)
}

func TestComponentSlots(t *testing.T) {
	ts := templates{
		"modal": strings.Join([]string{
			"<div>",
			"<h2>{{ $slot.title }}</h2>",
			"{{ $slot.main }}",
			"{{ user }}",
			"</div>",
			"",
		}, "\n"),
	}
	src := strings.Join([]string{
		"@component('modal')",
		"  <p>{{ user }}</p>",
		"  @slot('title')",
		"Hello {{ user }}",
		"  @endslot",
		"@endcomponent",
	}, "\n")

	out := renderString(t, src, map[string]interface{}{"user": "<virk>"}, ts)
	assert.Equal(t, "<div>\n<h2>Hello &lt;virk&gt;\n</h2>\n  <p>&lt;virk&gt;</p>\n\n\n</div>", out)

	t.Run("default slot is yield", func(t *testing.T) {
		ts := templates{"box": "[{{{ $slot.yield }}}][{{{ $slot.main }}}]"}
		out := renderString(t, "@component('box')\nbody\n@endcomponent", nil, ts)
		assert.Equal(t, "[body\n][body\n]", out)
	})

	t.Run("explicit yield slot wins", func(t *testing.T) {
		ts := templates{"box": "[{{{ $slot.yield }}}][{{{ $slot.main }}}]"}
		src := "@component('box')\nbody\n@slot('yield')\nnamed\n@endslot\n@endcomponent"
		out := renderString(t, src, nil, ts)
		assert.Equal(t, "[named\n][body\n]", out)
	})
}

func TestComponentSlotErrors(t *testing.T) {
	t.Run("identifier slot name", func(t *testing.T) {
		err := compileError(t, "@component('modal')\n@slot(title)\n@endslot\n@endcomponent")
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
		assert.Contains(t, err.Message, "Invalid name passed to slot. Only strings are allowed")
		assert.Equal(t, 2, err.Line)
	})

	t.Run("duplicate slot", func(t *testing.T) {
		err := compileError(t, "@component('modal')\n@slot('a')\n@endslot\n@slot('a')\n@endslot\n@endcomponent")
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
		assert.Equal(t, 4, err.Line)
	})

	t.Run("slot outside component", func(t *testing.T) {
		err := compileError(t, "@slot('a')\n@endslot")
		assert.Equal(t, errors.ErrCodeUnexpectedEndTag, err.Code)
	})

	t.Run("unclosed component", func(t *testing.T) {
		err := compileError(t, "@component('modal')\n@slot('a')\n@endslot\n")
		assert.Equal(t, errors.ErrCodeUnclosedTag, err.Code)
		assert.Equal(t, 1, err.Line)
	})

	t.Run("prop on member", func(t *testing.T) {
		err := compileError(t, "@!component('modal', a.b = 1)")
		assert.Equal(t, errors.ErrCodeInvalidExpression, err.Code)
	})
}

func TestComponentBlankMain(t *testing.T) {
	prog := mustCompile(t, "page.edge", "@component('card')\n  \n@endcomponent")
	require.Len(t, prog.Code, 2)
	assert.Equal(t, vm.OpComponent, prog.Code[0].Op)
	assert.Empty(t, prog.Code[0].Slots)
}

func TestCustomTags(t *testing.T) {
	reg := Default()

	_, err := reg.Register(Descriptor{
		Name: "hr",
		Compile: func(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
			buf.WriteText("<hr>")
			return nil
		},
	})
	require.NoError(t, err)

	_, err = reg.Register(Descriptor{
		Name:     "upper",
		Block:    true,
		Seekable: false,
		Compile: func(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
			body := buf.Sub()
			if _, err := p.ParseBody(body, tok); err != nil {
				return err
			}
			prog, err := body.Flush()
			if err != nil {
				return err
			}
			for _, ins := range prog.Code {
				if ins.Op == vm.OpText {
					buf.WriteText(strings.ToUpper(ins.Text))
				}
			}
			return nil
		},
	})
	require.NoError(t, err)

	prog, err := compileWith(reg, "page.edge", "@hr\n@upper\nshout\n@endupper")
	require.NoError(t, err)
	out, err := vm.Run(prog, scope.NewRenderContext(nil, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "<hr>SHOUT\n", out)
}

func TestRegistry(t *testing.T) {
	reg := Default()

	_, err := reg.Register(Descriptor{Name: "if", Tag: If})
	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	assert.Equal(t, errors.ErrCodeDuplicateRegistration, edgeErr.Code)

	_, err = reg.Register(Descriptor{Name: "bad name", Compile: noop})
	assert.Error(t, err)

	_, err = reg.Register(Descriptor{Name: "nocompile"})
	assert.Error(t, err)

	h, err := reg.Register(Descriptor{Name: "tmp", Compile: noop})
	require.NoError(t, err)
	assert.Equal(t, "tmp", h.Name())
	info, ok := reg.Lookup("tmp")
	assert.True(t, ok)
	assert.False(t, info.Block)

	clone := reg.Clone()
	h.Unregister()
	_, ok = reg.Lookup("tmp")
	assert.False(t, ok)
	_, ok = clone.Lookup("tmp")
	assert.True(t, ok)

	assert.Contains(t, reg.Names(), "component")
	assert.Equal(t, "includeIf", IncludeIf.String())
	assert.Equal(t, "unknown", Tag(99).String())
}

func noop(*Parser, *buffer.Buffer, lexer.Token) error { return nil }
