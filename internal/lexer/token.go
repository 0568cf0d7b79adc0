package lexer

import "fmt"

// Kind identifies a token variant.
type Kind int

const (
	EOF Kind = iota
	NewLine
	Raw
	Mustache
	TagOpen
	TagClose
	Comment
)

var kindNames = [...]string{
	EOF:      "EOF",
	NewLine:  "NewLine",
	Raw:      "Raw",
	Mustache: "Mustache",
	TagOpen:  "TagOpen",
	TagClose: "TagClose",
	Comment:  "Comment",
}

// String returns the string representation of the kind
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// MustacheKind distinguishes interpolation variants.
type MustacheKind int

const (
	// Escaped is "{{ expr }}"; output is HTML-escaped.
	Escaped MustacheKind = iota
	// Unescaped is "{{{ expr }}}"; output is written as is.
	Unescaped
	// Verbatim is "@{{ expr }}" or "@{{{ expr }}}"; the braces are output
	// literally and the expression is never evaluated.
	Verbatim
)

// String returns the string representation of the mustache kind
func (m MustacheKind) String() string {
	switch m {
	case Escaped:
		return "escaped"
	case Unescaped:
		return "unescaped"
	case Verbatim:
		return "verbatim"
	default:
		return "unknown"
	}
}

// Position locates a token. Line is 1-based and Column is the 0-based
// character offset in that line.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// String returns "file:line:column"
func (p Position) String() string {
	name := p.Filename
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Column)
}

// Token is an immutable lexical unit.
type Token struct {
	Kind Kind
	// Text holds raw text, comment text or the verbatim source of a
	// Verbatim mustache.
	Text string
	// Name is the tag name for TagOpen and TagClose. A bare "@end" has an
	// empty Name.
	Name string
	// Expr is the whitespace-normalized argument of a tag or the expression
	// of a mustache.
	Expr     string
	Mustache MustacheKind
	Pos      Position
	// SelfClosed is set for inline tags and for "@!name" block tags.
	SelfClosed bool
	// Block is set when the tag expects an end tag.
	Block bool
}

// String renders the token for debugging
func (t Token) String() string {
	switch t.Kind {
	case Raw, Comment:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Text)
	case Mustache:
		return fmt.Sprintf("Mustache[%s](%q)", t.Mustache, t.Expr)
	case TagOpen:
		return fmt.Sprintf("TagOpen(@%s %q self=%t)", t.Name, t.Expr, t.SelfClosed)
	case TagClose:
		return fmt.Sprintf("TagClose(@end%s)", t.Name)
	default:
		return t.Kind.String()
	}
}

// TagInfo describes a registered tag to the lexer.
type TagInfo struct {
	Block    bool
	Seekable bool
}

// TagLookup reports which names are tags.
type TagLookup interface {
	Lookup(name string) (TagInfo, bool)
}

// TagMap is a TagLookup backed by a map.
type TagMap map[string]TagInfo

// Lookup implements TagLookup.
func (m TagMap) Lookup(name string) (TagInfo, bool) {
	info, ok := m[name]
	return info, ok
}
