// Package expr parses the expressions embedded in tag arguments and
// mustaches into a small immutable syntax tree.
//
// The grammar is a JavaScript-like subset: identifiers, member access,
// calls, literals, arrays, objects, unary and binary operators, the
// conditional operator, and the assignment and sequence forms that some
// tags accept (component props, loop targets). Nodes carry no behaviour;
// evaluation against a runtime scope lives in package scope.
package expr

import (
	"strconv"
	"strings"
)

// Node is an expression tree node.
type Node interface {
	// Offset is the byte offset of the node in the source expression.
	Offset() int
	String() string
}

// LiteralKind identifies the type of a Literal.
type LiteralKind int

const (
	NumberLiteral LiteralKind = iota
	StringLiteral
	BoolLiteral
	NullLiteral
	UndefinedLiteral
)

type (
	// Identifier is a free name resolved against the scope.
	Identifier struct {
		Name string
		Pos  int
	}

	// Literal is a number, string, boolean, null or undefined.
	Literal struct {
		Kind  LiteralKind
		Value interface{}
		Raw   string
		Pos   int
	}

	// Array is "[a, b]".
	Array struct {
		Elements []Node
		Pos      int
	}

	// Property is one entry of an Object.
	Property struct {
		Key       string
		Value     Node
		Shorthand bool
	}

	// Object is "{ key: value, shorthand }".
	Object struct {
		Properties []Property
		Pos        int
	}

	// Member is "object.property" or "object[property]".
	Member struct {
		Object   Node
		Property Node
		Computed bool
		Pos      int
	}

	// Call is "callee(args)".
	Call struct {
		Callee Node
		Args   []Node
		Pos    int
	}

	// Unary is "!x", "-x", "+x" or "typeof x".
	Unary struct {
		Operator string
		Operand  Node
		Pos      int
	}

	// Binary is an arithmetic, comparison or "in" operation.
	Binary struct {
		Operator string
		Left     Node
		Right    Node
		Pos      int
	}

	// Logical is "&&", "||" or "??".
	Logical struct {
		Operator string
		Left     Node
		Right    Node
		Pos      int
	}

	// Conditional is "test ? consequent : alternate".
	Conditional struct {
		Test       Node
		Consequent Node
		Alternate  Node
		Pos        int
	}

	// Assign is "target = value".
	Assign struct {
		Target Node
		Value  Node
		Pos    int
	}

	// Sequence is "a, b, c".
	Sequence struct {
		Expressions []Node
		Pos         int
	}
)

func (n *Identifier) Offset() int  { return n.Pos }
func (n *Literal) Offset() int     { return n.Pos }
func (n *Array) Offset() int       { return n.Pos }
func (n *Object) Offset() int      { return n.Pos }
func (n *Member) Offset() int      { return n.Pos }
func (n *Call) Offset() int        { return n.Pos }
func (n *Unary) Offset() int       { return n.Pos }
func (n *Binary) Offset() int      { return n.Pos }
func (n *Logical) Offset() int     { return n.Pos }
func (n *Conditional) Offset() int { return n.Pos }
func (n *Assign) Offset() int      { return n.Pos }
func (n *Sequence) Offset() int    { return n.Pos }

func (n *Identifier) String() string { return n.Name }

func (n *Literal) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	switch n.Kind {
	case StringLiteral:
		return strconv.Quote(n.Value.(string))
	case NullLiteral:
		return "null"
	case UndefinedLiteral:
		return "undefined"
	case BoolLiteral:
		return strconv.FormatBool(n.Value.(bool))
	default:
		return strconv.FormatFloat(n.Value.(float64), 'g', -1, 64)
	}
}

func (n *Array) String() string {
	return "[" + joinNodes(n.Elements, ", ") + "]"
}

func (n *Object) String() string {
	parts := make([]string, len(n.Properties))
	for i, p := range n.Properties {
		if p.Shorthand {
			parts[i] = p.Key
			continue
		}
		parts[i] = p.Key + ": " + p.Value.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func (n *Member) String() string {
	if n.Computed {
		return n.Object.String() + "[" + n.Property.String() + "]"
	}
	return n.Object.String() + "." + n.Property.String()
}

func (n *Call) String() string {
	return n.Callee.String() + "(" + joinNodes(n.Args, ", ") + ")"
}

func (n *Unary) String() string {
	if n.Operator == "typeof" {
		return "typeof " + n.Operand.String()
	}
	return n.Operator + n.Operand.String()
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

func (n *Logical) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

func (n *Conditional) String() string {
	return "(" + n.Test.String() + " ? " + n.Consequent.String() + " : " + n.Alternate.String() + ")"
}

func (n *Assign) String() string {
	return n.Target.String() + " = " + n.Value.String()
}

func (n *Sequence) String() string {
	return joinNodes(n.Expressions, ", ")
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

// TypeName returns the grammatical name of a node, as used in diagnostics.
func TypeName(n Node) string {
	switch n.(type) {
	case *Identifier:
		return "Identifier"
	case *Literal:
		return "Literal"
	case *Array:
		return "ArrayExpression"
	case *Object:
		return "ObjectExpression"
	case *Member:
		return "MemberExpression"
	case *Call:
		return "CallExpression"
	case *Unary:
		return "UnaryExpression"
	case *Binary:
		return "BinaryExpression"
	case *Logical:
		return "LogicalExpression"
	case *Conditional:
		return "ConditionalExpression"
	case *Assign:
		return "AssignmentExpression"
	case *Sequence:
		return "SequenceExpression"
	default:
		return "Unknown"
	}
}

// IsStringLiteral reports whether n is a string literal and returns it.
func IsStringLiteral(n Node) (string, bool) {
	lit, ok := n.(*Literal)
	if !ok || lit.Kind != StringLiteral {
		return "", false
	}
	return lit.Value.(string), true
}
