package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/errors"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a - b - c", "((a - b) - c)"},
		{"!a && b", "(!a && b)"},
		{"-a - b", "(-a - b)"},
		{"a ?? b || c", "(a ?? (b || c))"},
		{"a || b && c", "(a || (b && c))"},
		{"a < b == c", "((a < b) == c)"},
		{"typeof x === 'string'", "(typeof x === 'string')"},
		{"x ? y : z", "(x ? y : z)"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"(a + b) * c", "((a + b) * c)"},
		{"item in items", "(item in items)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, node.String())
		})
	}
}

func TestParseNodeShapes(t *testing.T) {
	tests := []struct {
		src      string
		typeName string
		expected string
	}{
		{"user", "Identifier", "user"},
		{"user.profile.name", "MemberExpression", "user.profile.name"},
		{"users[0]", "MemberExpression", "users[0]"},
		{"format(a, 'x')", "CallExpression", "format(a, 'x')"},
		{"a.b[c](1)", "CallExpression", "a.b[c](1)"},
		{"[1, 2]", "ArrayExpression", "[1, 2]"},
		{"{ a: 1, b }", "ObjectExpression", "{ a: 1, b }"},
		{"{}", "ObjectExpression", "{  }"},
		{"a = 1", "AssignmentExpression", "a = 1"},
		{"'card', { title }", "SequenceExpression", "'card', { title }"},
		{"null", "Literal", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.typeName, TypeName(node))
			assert.Equal(t, tt.expected, node.String())
		})
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src   string
		kind  LiteralKind
		value interface{}
	}{
		{"42", NumberLiteral, 42.0},
		{"1_000", NumberLiteral, 1000.0},
		{"2.5e1", NumberLiteral, 25.0},
		{".5", NumberLiteral, 0.5},
		{"'a\\nb'", StringLiteral, "a\nb"},
		{`"it's"`, StringLiteral, "it's"},
		{"`tick`", StringLiteral, "tick"},
		{`"\xff"`, StringLiteral, "\u00ff"},
		{`'\u00e9t\u00E9'`, StringLiteral, "été"},
		{`'\u{1F600}'`, StringLiteral, "\U0001F600"},
		{`'\uD83D\uDE00'`, StringLiteral, "\U0001F600"},
		{`'\q'`, StringLiteral, "q"},
		{"true", BoolLiteral, true},
		{"false", BoolLiteral, false},
		{"undefined", UndefinedLiteral, nil},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := Parse(tt.src)
			require.NoError(t, err)
			lit, ok := node.(*Literal)
			require.True(t, ok)
			assert.Equal(t, tt.kind, lit.Kind)
			assert.Equal(t, tt.value, lit.Value)
		})
	}
}

func TestParseObjectKeys(t *testing.T) {
	node, err := Parse("{ 'data-id': id, title, 1: x }")
	require.NoError(t, err)

	obj := node.(*Object)
	require.Len(t, obj.Properties, 3)
	assert.Equal(t, "data-id", obj.Properties[0].Key)
	assert.False(t, obj.Properties[0].Shorthand)
	assert.Equal(t, "title", obj.Properties[1].Key)
	assert.True(t, obj.Properties[1].Shorthand)
	assert.Equal(t, "1", obj.Properties[2].Key)
}

func TestParseOffsets(t *testing.T) {
	node, err := Parse("a +  b")
	require.NoError(t, err)
	bin := node.(*Binary)
	assert.Equal(t, 0, bin.Offset())
	assert.Equal(t, 5, bin.Right.Offset())
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"a +",
		"(a",
		"a b",
		"1 = 2",
		"'abc",
		"a.",
		"a.1",
		"#",
		"{ 'a' }",
		"[1, 2",
		"f(1 2)",
		"a ? b",
		"in",
		`'\xg1'`,
		`'\x4'`,
		`'\u12'`,
		`'\u{}'`,
		`'\u{110000}'`,
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestParseAt(t *testing.T) {
	node, err := ParseAt("user.name", "index.edge", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "user.name", node.String())

	_, err = ParseAt("user.", "index.edge", 4, 2)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidExpressionError(err))

	var edgeErr *errors.EdgeError
	require.ErrorAs(t, err, &edgeErr)
	assert.Equal(t, errors.ErrCodeInvalidExpression, edgeErr.Code)
	assert.Equal(t, "index.edge", edgeErr.Filename)
	assert.Equal(t, 4, edgeErr.Line)
	assert.Equal(t, 2, edgeErr.Column)
	assert.Equal(t, "user.", edgeErr.Snippet)

	var syntaxErr *SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestIsStringLiteral(t *testing.T) {
	node, err := Parse("'partials/header'")
	require.NoError(t, err)
	s, ok := IsStringLiteral(node)
	assert.True(t, ok)
	assert.Equal(t, "partials/header", s)

	node, err = Parse("name")
	require.NoError(t, err)
	_, ok = IsStringLiteral(node)
	assert.False(t, ok)
}

func TestReject(t *testing.T) {
	node, err := Parse("a = 1")
	require.NoError(t, err)

	rejected := Reject(node, "if", AssignmentExpression, SequenceExpression)
	require.NotNil(t, rejected)
	assert.Equal(t, errors.ErrCodeInvalidExpression, rejected.Code)
	assert.Contains(t, rejected.Message, "AssignmentExpression is not supported by the @if tag")

	node, err = Parse("a === 1")
	require.NoError(t, err)
	assert.Nil(t, Reject(node, "if", AssignmentExpression, SequenceExpression))
}

func TestExpectAndArgs(t *testing.T) {
	node, err := Parse("'card', title = 'Hi'")
	require.NoError(t, err)
	assert.Nil(t, Expect(node, "component", SequenceExpression, "Literal"))

	args := Args(node)
	require.Len(t, args, 2)
	assert.Equal(t, "Literal", TypeName(args[0]))
	assert.Equal(t, "AssignmentExpression", TypeName(args[1]))

	single, err := Parse("name")
	require.NoError(t, err)
	assert.Len(t, Args(single), 1)
	assert.NotNil(t, Expect(single, "slot", "Literal"))
}
