// Package vm holds the compiled form of a template and the interpreter
// that renders it.
//
// A Program is a flat list of instructions. Control flow uses resolved
// jump targets; loops keep an iterator stack; includes and components load
// other programs through a Renderer and render them synchronously.
package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
)

// Op is an instruction opcode.
type Op int

const (
	// OpText appends Text.
	OpText Op = iota
	// OpOutput evaluates Expr and appends it, escaped when Escape is set.
	OpOutput
	// OpJumpIfFalse jumps to Target when Expr is falsy.
	OpJumpIfFalse
	// OpJumpIfTrue jumps to Target when Expr is truthy.
	OpJumpIfTrue
	// OpJump jumps to Target.
	OpJump
	// OpIterInit evaluates Expr as a collection. An empty collection jumps
	// to Target; otherwise an iterator and a loop scope are pushed.
	OpIterInit
	// OpIterNext binds the next element to Name (and Key) or, when the
	// iterator is exhausted, pops it with its scope and jumps to Target.
	OpIterNext
	// OpPushScope enters a child scope.
	OpPushScope
	// OpPopScope leaves it.
	OpPopScope
	// OpSet evaluates Expr and assigns it to Name in the active scope.
	OpSet
	// OpInclude renders the template named by Expr in the active scope.
	OpInclude
	// OpComponent renders the template named by Expr in an isolated scope.
	OpComponent
	// OpReturn ends the program.
	OpReturn
)

var opNames = [...]string{
	OpText:        "TEXT",
	OpOutput:      "OUTPUT",
	OpJumpIfFalse: "JUMP_IF_FALSE",
	OpJumpIfTrue:  "JUMP_IF_TRUE",
	OpJump:        "JUMP",
	OpIterInit:    "ITER_INIT",
	OpIterNext:    "ITER_NEXT",
	OpPushScope:   "PUSH_SCOPE",
	OpPopScope:    "POP_SCOPE",
	OpSet:         "SET",
	OpInclude:     "INCLUDE",
	OpComponent:   "COMPONENT",
	OpReturn:      "RETURN",
}

// String returns the string representation of the opcode
func (o Op) String() string {
	if int(o) < len(opNames) && opNames[o] != "" {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Prop is one "key = expr" pair passed to a component.
type Prop struct {
	Key   string
	Value expr.Node
}

// Instruction is one step of a Program.
type Instruction struct {
	Op     Op
	Text   string
	Expr   expr.Node
	Escape bool
	Target int
	Name   string
	Key    string

	// Props and PropsExpr carry component props: either key/value pairs or
	// a single expression evaluating to a map.
	Props     []Prop
	PropsExpr expr.Node
	// Slots maps slot names to their captured bodies.
	Slots map[string]*Program

	Depth int
	Pos   lexer.Position
}

// Presenter transforms the data a template is rendered with.
type Presenter func(data map[string]interface{}) map[string]interface{}

// Program is a compiled template. It is immutable once built and may be
// rendered concurrently.
type Program struct {
	Filename  string
	Code      []Instruction
	Presenter Presenter
}

// WithPresenter returns a shallow copy of p using presenter.
func (p *Program) WithPresenter(presenter Presenter) *Program {
	cp := *p
	cp.Presenter = presenter
	return &cp
}

// String renders a listing of the program, indented by block depth.
func (p *Program) String() string {
	var b strings.Builder
	p.dump(&b, "")
	return b.String()
}

func (p *Program) dump(b *strings.Builder, prefix string) {
	for i, ins := range p.Code {
		fmt.Fprintf(b, "%s%04d %s%s", prefix, i, strings.Repeat("  ", ins.Depth), ins.Op)
		switch ins.Op {
		case OpText:
			fmt.Fprintf(b, " %q", ins.Text)
		case OpOutput:
			fmt.Fprintf(b, " %s escape=%t", ins.Expr, ins.Escape)
		case OpJumpIfFalse, OpJumpIfTrue:
			fmt.Fprintf(b, " %s -> %04d", ins.Expr, ins.Target)
		case OpJump:
			fmt.Fprintf(b, " -> %04d", ins.Target)
		case OpIterInit:
			fmt.Fprintf(b, " %s empty -> %04d", ins.Expr, ins.Target)
		case OpIterNext:
			fmt.Fprintf(b, " %s", ins.Name)
			if ins.Key != "" {
				fmt.Fprintf(b, ", %s", ins.Key)
			}
			fmt.Fprintf(b, " done -> %04d", ins.Target)
		case OpSet:
			fmt.Fprintf(b, " %s = %s", ins.Name, ins.Expr)
		case OpInclude:
			fmt.Fprintf(b, " %s", ins.Expr)
		case OpComponent:
			fmt.Fprintf(b, " %s", ins.Expr)
			for _, prop := range ins.Props {
				fmt.Fprintf(b, " %s=%s", prop.Key, prop.Value)
			}
			if ins.PropsExpr != nil {
				fmt.Fprintf(b, " %s", ins.PropsExpr)
			}
		}
		b.WriteByte('\n')

		if ins.Op == OpComponent {
			names := make([]string, 0, len(ins.Slots))
			for name := range ins.Slots {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(b, "%s     slot %q\n", prefix, name)
				ins.Slots[name].dump(b, prefix+"       ")
			}
		}
	}
}
