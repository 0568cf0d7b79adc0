package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/errors"
)

var testTags = TagMap{
	"if":        {Block: true, Seekable: true},
	"else":      {Block: false, Seekable: false},
	"each":      {Block: true, Seekable: true},
	"include":   {Block: false, Seekable: true},
	"component": {Block: true, Seekable: true},
}

func kinds(tokens []Token) []Kind {
	out := make([]Kind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeText(t *testing.T) {
	tokens, err := Tokenize("index.edge", "Hello {{ username }}!", testTags)
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, Raw, tokens[0].Kind)
	assert.Equal(t, "Hello ", tokens[0].Text)

	assert.Equal(t, Mustache, tokens[1].Kind)
	assert.Equal(t, Escaped, tokens[1].Mustache)
	assert.Equal(t, "username", tokens[1].Expr)
	assert.Equal(t, Position{Filename: "index.edge", Line: 1, Column: 6}, tokens[1].Pos)

	assert.Equal(t, Raw, tokens[2].Kind)
	assert.Equal(t, "!", tokens[2].Text)
}

func TestTokenizeNewLines(t *testing.T) {
	tokens, err := Tokenize("", "a\r\nb\n", testTags)
	require.NoError(t, err)
	assert.Equal(t, []Kind{Raw, NewLine, Raw, NewLine}, kinds(tokens))
	assert.Equal(t, 2, tokens[2].Pos.Line)
}

func TestTokenizeMustacheKinds(t *testing.T) {
	tokens, err := Tokenize("", "{{{ html }}} @{{ name }} @{{{ raw }}}", testTags)
	require.NoError(t, err)
	require.Equal(t, []Kind{Mustache, Raw, Mustache, Raw, Mustache}, kinds(tokens))

	assert.Equal(t, Unescaped, tokens[0].Mustache)
	assert.Equal(t, "html", tokens[0].Expr)

	assert.Equal(t, Verbatim, tokens[2].Mustache)
	assert.Equal(t, "{{ name }}", tokens[2].Text)

	assert.Equal(t, Verbatim, tokens[4].Mustache)
	assert.Equal(t, "{{{ raw }}}", tokens[4].Text)
}

func TestTokenizeMultiLineMustache(t *testing.T) {
	tokens, err := Tokenize("", "{{\n  user.name\n}}", testTags)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "user.name", tokens[0].Expr)
	assert.Equal(t, 1, tokens[0].Pos.Line)
}

func TestTokenizeBracesInsideMustache(t *testing.T) {
	tokens, err := Tokenize("", "{{ format({ a: '}}' }) }}", testTags)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "format({ a: '}}' })", tokens[0].Expr)
}

func TestTokenizeTags(t *testing.T) {
	src := "@if(user)\n  Hi\n@else\n  Bye\n@endif"
	tokens, err := Tokenize("", src, testTags)
	require.NoError(t, err)
	require.Equal(t, []Kind{TagOpen, Raw, NewLine, TagOpen, Raw, NewLine, TagClose}, kinds(tokens))

	assert.Equal(t, "if", tokens[0].Name)
	assert.Equal(t, "user", tokens[0].Expr)
	assert.True(t, tokens[0].Block)
	assert.False(t, tokens[0].SelfClosed)

	assert.Equal(t, "else", tokens[3].Name)
	assert.True(t, tokens[3].SelfClosed)
	assert.Equal(t, 3, tokens[3].Pos.Line)

	assert.Equal(t, "if", tokens[6].Name)
}

func TestTokenizeBareEnd(t *testing.T) {
	tokens, err := Tokenize("", "@each(x in xs)\n{{ x }}\n@end", testTags)
	require.NoError(t, err)
	last := tokens[len(tokens)-1]
	assert.Equal(t, TagClose, last.Kind)
	assert.Empty(t, last.Name)
}

func TestTokenizeSelfClosedBlock(t *testing.T) {
	tokens, err := Tokenize("", "@!component('button', { text: 'Go' })", testTags)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.True(t, tokens[0].Block)
	assert.True(t, tokens[0].SelfClosed)
	assert.Equal(t, "'button', { text: 'Go' }", tokens[0].Expr)
}

func TestTokenizeMultiLineTag(t *testing.T) {
	src := "@include(\n  'partials/header'\n)\nbody"
	tokens, err := Tokenize("", src, testTags)
	require.NoError(t, err)
	require.Equal(t, []Kind{TagOpen, Raw}, kinds(tokens))
	assert.Equal(t, "'partials/header'", tokens[0].Expr)
	assert.Equal(t, 4, tokens[1].Pos.Line)
}

func TestTokenizeComments(t *testing.T) {
	t.Run("comment only line disappears", func(t *testing.T) {
		tokens, err := Tokenize("", "a\n  {{-- note --}}\nb", testTags)
		require.NoError(t, err)
		require.Equal(t, []Kind{Raw, NewLine, Comment, Raw}, kinds(tokens))
		assert.Equal(t, "note", tokens[2].Text)
	})

	t.Run("inline comment keeps line", func(t *testing.T) {
		tokens, err := Tokenize("", "a {{-- note --}} b\nc", testTags)
		require.NoError(t, err)
		assert.Equal(t, []Kind{Raw, Comment, Raw, NewLine, Raw}, kinds(tokens))
	})

	t.Run("multi line comment", func(t *testing.T) {
		tokens, err := Tokenize("", "{{--\n  {{ ignored }}\n--}}\nx", testTags)
		require.NoError(t, err)
		require.Equal(t, []Kind{Comment, Raw}, kinds(tokens))
		assert.Contains(t, tokens[0].Text, "{{ ignored }}")
	})
}

func TestTokenizeEscapedTag(t *testing.T) {
	tokens, err := Tokenize("", "@@if(x)", testTags)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, Raw, tokens[0].Kind)
	assert.Equal(t, "@if(x)", tokens[0].Text)
}

func TestTokenizeUnregisteredWords(t *testing.T) {
	tokens, err := Tokenize("", "@media (max-width: 600px) {\n@username", testTags)
	require.NoError(t, err)
	assert.Equal(t, []Kind{Raw, NewLine, Raw}, kinds(tokens))
	assert.Equal(t, "@username", tokens[2].Text)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		code  string
		line  int
		check func(error) bool
	}{
		{"unclosed mustache", "a\n{{ user", errors.ErrCodeUnclosedCurlyBrace, 2, errors.IsLexError},
		{"unclosed comment", "{{-- note", errors.ErrCodeUnclosedCurlyBrace, 1, errors.IsLexError},
		{"unclosed statement", "@if(user\nHi", errors.ErrCodeUnclosedParen, 1, errors.IsUnclosedStatementError},
		{"missing argument", "x\n@if", errors.ErrCodeCannotSeekStatement, 2, errors.IsUnclosedStatementError},
		{"unknown tag", "@foo(bar)", errors.ErrCodeUnknownTag, 1, errors.IsUnknownTagError},
		{"content after end tag", "@endif x", errors.ErrCodeCannotSeekStatement, 1, errors.IsUnclosedStatementError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize("page.edge", tt.src, testTags)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)

			var edgeErr *errors.EdgeError
			require.ErrorAs(t, err, &edgeErr)
			assert.Equal(t, tt.code, edgeErr.Code)
			assert.Equal(t, "page.edge", edgeErr.Filename)
			assert.Equal(t, tt.line, edgeErr.Line)
		})
	}
}

func TestLexerIsLazy(t *testing.T) {
	l := New("", "ok\n{{ broken", testTags)

	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, Raw, tok.Kind)

	tok, err = l.Next()
	require.NoError(t, err)
	assert.Equal(t, NewLine, tok.Kind)

	_, err = l.Next()
	require.Error(t, err)
	_, again := l.Next()
	assert.Equal(t, err, again)
}
