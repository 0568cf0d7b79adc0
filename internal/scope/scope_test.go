package scope

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
)

type profile struct {
	Name    string
	Email   string `json:"email_address"`
	private string
}

func (p profile) Greeting() string { return "Hello " + p.Name }

func (p *profile) Initial() string { return p.Name[:1] }

func eval(t *testing.T, ctx *Context, src string) interface{} {
	t.Helper()
	node, err := expr.Parse(src)
	require.NoError(t, err)
	v, err := ctx.Eval(node)
	require.NoError(t, err)
	return v
}

func TestScopeChain(t *testing.T) {
	root := FromMap(map[string]interface{}{"a": 1, "b": 2})
	child := root.Child()
	child.Set("b", 3)

	v, ok := child.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, _ = child.Lookup("b")
	assert.Equal(t, 3, v)

	_, ok = child.Get("a")
	assert.False(t, ok, "Get only reads the own frame")

	_, ok = child.Lookup("missing")
	assert.False(t, ok)

	assert.Same(t, root, child.Parent())
	assert.Equal(t, []string{"a", "b"}, child.Names())
}

func TestResolve(t *testing.T) {
	g := NewGlobals()
	g.Set("appName", "edge")
	require.NoError(t, g.Helper("upper", strings.ToUpper))

	ctx := NewRenderContext(g, map[string]interface{}{"appName": "local", "user": "virk"})

	assert.Equal(t, "local", ctx.Resolve("appName"), "scope shadows globals")
	assert.Equal(t, "virk", ctx.Resolve("user"))
	assert.Nil(t, ctx.Resolve("missing"), "missing names never fail")
	assert.NotNil(t, ctx.Resolve("upper"))
}

func TestHelperMustBeFunction(t *testing.T) {
	g := NewGlobals()
	assert.Error(t, g.Helper("bad", 42))
	assert.Error(t, g.Helper("nil", nil))
	assert.Empty(t, g.Helpers())
}

func TestAccessChild(t *testing.T) {
	ctx := NewRenderContext(nil, nil)
	p := &profile{Name: "Virk", Email: "virk@adonisjs.com", private: "x"}

	tests := []struct {
		name     string
		value    interface{}
		path     []interface{}
		expected interface{}
	}{
		{"nested maps", map[string]interface{}{"a": map[string]interface{}{"b": 1}}, []interface{}{"a", "b"}, 1},
		{"missing intermediate", map[string]interface{}{}, []interface{}{"a", "b", "c"}, nil},
		{"typed map", map[string]int{"x": 7}, []interface{}{"x"}, 7},
		{"int keyed map", map[int]string{1: "one"}, []interface{}{1.0}, "one"},
		{"slice index", []string{"a", "b"}, []interface{}{1.0}, "b"},
		{"slice out of range", []string{"a"}, []interface{}{3.0}, nil},
		{"slice length", []interface{}{1, 2, 3}, []interface{}{"length"}, 3},
		{"string index", "héllo", []interface{}{1.0}, "é"},
		{"string length", "héllo", []interface{}{"length"}, 5},
		{"struct field", p, []interface{}{"Name"}, "Virk"},
		{"struct field case folded", p, []interface{}{"name"}, "Virk"},
		{"json tag", p, []interface{}{"email_address"}, "virk@adonisjs.com"},
		{"unexported field", p, []interface{}{"private"}, nil},
		{"nil pointer", (*profile)(nil), []interface{}{"Name"}, nil},
		{"nil value", nil, []interface{}{"x"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ctx.AccessChild(tt.value, tt.path...))
		})
	}
}

func TestEscape(t *testing.T) {
	ctx := NewRenderContext(nil, nil)
	assert.Equal(t, "&lt;b&gt;Tom &amp; Jerry&lt;/b&gt;", ctx.Escape("<b>Tom & Jerry</b>"))
	assert.Equal(t, "<b>safe</b>", ctx.Escape(Safe("<b>safe</b>")))
	assert.Equal(t, "", ctx.Escape(nil))
	assert.Equal(t, "42", ctx.Escape(42))

	g := NewGlobals()
	g.SetEscaper(strings.ToUpper)
	assert.Equal(t, "ABC", NewRenderContext(g, nil).Escape("abc"))
}

func TestCallFn(t *testing.T) {
	g := NewGlobals()
	require.NoError(t, g.Helper("join", func(sep string, parts ...string) string {
		return strings.Join(parts, sep)
	}))
	require.NoError(t, g.Helper("fail", func() (string, error) {
		return "", fmt.Errorf("boom")
	}))
	require.NoError(t, g.Helper("add", func(a, b int) int { return a + b }))
	require.NoError(t, g.Helper("explode", func() string { panic("bad") }))

	ctx := NewRenderContext(g, map[string]interface{}{
		"local": func(s string) string { return "local:" + s },
	})

	v, err := ctx.CallFn("join", []interface{}{"-", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a-b", v)

	v, err = ctx.CallFn("add", []interface{}{2.0, 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = ctx.CallFn("local", []interface{}{"x"})
	require.NoError(t, err)
	assert.Equal(t, "local:x", v)

	_, err = ctx.CallFn("fail", nil)
	assert.EqualError(t, err, "boom")

	_, err = ctx.CallFn("explode", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	_, err = ctx.CallFn("missing", nil)
	require.Error(t, err)
	assert.True(t, errors.IsUnregisteredFunctionError(err))
}

func TestIsolation(t *testing.T) {
	ctx := NewRenderContext(nil, map[string]interface{}{"title": "caller", "user": "virk"})
	iso := ctx.NewContext(map[string]interface{}{"title": "Hi"}, map[string]interface{}{"main": "body"})

	var inside []interface{}
	err := ctx.Isolate(iso, func() error {
		inside = append(inside, ctx.Resolve("title"), ctx.Resolve("user"))
		inside = append(inside, eval(t, ctx, "$slot.main"), eval(t, ctx, "$props.title"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Hi", nil, "body", "Hi"}, inside)
	assert.Equal(t, "caller", ctx.Resolve("title"), "scope restored")
}

func TestIsolationRestoresOnErrorAndPanic(t *testing.T) {
	ctx := NewRenderContext(nil, map[string]interface{}{"name": "outer"})
	iso := ctx.NewContext(nil, nil)

	err := ctx.Isolate(iso, func() error { return fmt.Errorf("failed") })
	assert.EqualError(t, err, "failed")
	assert.Equal(t, "outer", ctx.Resolve("name"))

	assert.Panics(t, func() {
		_ = ctx.Isolate(iso, func() error { panic("boom") })
	})
	assert.Equal(t, "outer", ctx.Resolve("name"))
}

func TestPushPopScope(t *testing.T) {
	ctx := NewRenderContext(nil, map[string]interface{}{"x": 1})
	ctx.PushScope()
	ctx.Set("x", 2)
	assert.Equal(t, 2, ctx.Resolve("x"))
	ctx.PopScope()
	assert.Equal(t, 1, ctx.Resolve("x"))
	ctx.PopScope()
	assert.Equal(t, 1, ctx.Resolve("x"), "root scope is never popped")
}

func TestEval(t *testing.T) {
	g := NewGlobals()
	require.NoError(t, g.Helper("upper", strings.ToUpper))
	ctx := NewRenderContext(g, map[string]interface{}{
		"username": "virk",
		"count":    3,
		"items":    []string{"a", "b"},
		"user":     profile{Name: "Virk"},
		"ptr":      &profile{Name: "Nikk"},
		"empty":    "",
	})

	tests := []struct {
		src      string
		expected interface{}
	}{
		{"username === 'virk'", true},
		{"username === 'nikk'", false},
		{"count + 1", 4.0},
		{"count * 2 - 1", 5.0},
		{"'n' + count", "n3"},
		{"count == '3'", true},
		{"count === '3'", false},
		{"count > 2 && count < 4", true},
		{"missing.deep.value", nil},
		{"missing ?? 'fallback'", "fallback"},
		{"empty || 'default'", "default"},
		{"!empty", true},
		{"items.length", 2},
		{"items[0]", "a"},
		{"'b' in items", true},
		{"'z' in items", false},
		{"upper(username)", "VIRK"},
		{"user.Greeting()", "Hello Virk"},
		{"ptr.Initial()", "N"},
		{"count > 2 ? 'many' : 'few'", "many"},
		{"typeof username", "string"},
		{"typeof missing", "undefined"},
		{"-count", -3.0},
		{"7 % 4", 3.0},
		{"[1, username]", []interface{}{1.0, "virk"}},
		{"{ name: username }", map[string]interface{}{"name": "virk"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.expected, eval(t, ctx, tt.src))
		})
	}
}

func TestEvalErrors(t *testing.T) {
	ctx := NewRenderContext(nil, map[string]interface{}{"user": map[string]interface{}{}})

	node, err := expr.Parse("missingFn(1)")
	require.NoError(t, err)
	_, err = ctx.Eval(node)
	assert.True(t, errors.IsUnregisteredFunctionError(err))

	node, err = expr.Parse("user.name()")
	require.NoError(t, err)
	_, err = ctx.Eval(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user.name is not a function")
}

func TestEvalAssign(t *testing.T) {
	ctx := NewRenderContext(nil, nil)
	assert.Equal(t, 2.0, eval(t, ctx, "total = 1 + 1"))
	assert.Equal(t, 2.0, ctx.Resolve("total"))
}

func TestValues(t *testing.T) {
	t.Run("truthy", func(t *testing.T) {
		for _, v := range []interface{}{true, 1, -2.5, "x", []int{}, map[string]int{}, Safe("x")} {
			assert.True(t, Truthy(v), "%#v", v)
		}
		var nilSlice []int
		for _, v := range []interface{}{nil, false, 0, 0.0, "", math.NaN(), nilSlice, Safe("")} {
			assert.False(t, Truthy(v), "%#v", v)
		}
	})

	t.Run("to string", func(t *testing.T) {
		assert.Equal(t, "3", ToString(3.0))
		assert.Equal(t, "2.5", ToString(2.5))
		assert.Equal(t, "42", ToString(42))
		assert.Equal(t, "true", ToString(true))
		assert.Equal(t, "", ToString(nil))
		assert.Equal(t, "a,b", ToString([]string{"a", "b"}))
		assert.Equal(t, "Infinity", ToString(math.Inf(1)))
		assert.Equal(t, "1e+21", ToString(1e21))
		assert.Equal(t, "-1.5e+22", ToString(-1.5e22))
		assert.Equal(t, "100000000000000000000", ToString(1e20))
		assert.Equal(t, "1e-7", ToString(1e-7))
		assert.Equal(t, "0.000001", ToString(1e-6))
		assert.Equal(t, "0", ToString(math.Copysign(0, -1)))
		assert.Equal(t, "[object Object]", ToString(map[string]interface{}{}))
	})

	t.Run("to number", func(t *testing.T) {
		assert.Equal(t, 12.0, ToNumber(" 12 "))
		assert.Equal(t, 0.0, ToNumber(""))
		assert.Equal(t, 1.0, ToNumber(true))
		assert.Equal(t, 7.0, ToNumber(int64(7)))
		assert.True(t, math.IsNaN(ToNumber("abc")))
	})

	t.Run("equality", func(t *testing.T) {
		assert.True(t, StrictEqual(1, 1.0))
		assert.True(t, StrictEqual(nil, nil))
		assert.False(t, StrictEqual(1, "1"))
		assert.True(t, StrictEqual("a", Safe("a")))
		assert.True(t, LooseEqual(1, "1"))
		assert.True(t, LooseEqual(true, 1))
		assert.False(t, LooseEqual(nil, 0))
		assert.False(t, LooseEqual(true, false))
	})

	t.Run("compare", func(t *testing.T) {
		cmp, ok := Compare("a", "b")
		assert.True(t, ok)
		assert.Equal(t, -1, cmp)

		cmp, ok = Compare(10, "9")
		assert.True(t, ok)
		assert.Equal(t, 1, cmp)

		_, ok = Compare("x", 1)
		assert.False(t, ok)
	})

	t.Run("length", func(t *testing.T) {
		n, ok := Length(map[string]int{"a": 1})
		assert.True(t, ok)
		assert.Equal(t, 1, n)
		_, ok = Length(3)
		assert.False(t, ok)
	})
}
