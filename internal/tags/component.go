package tags

import (
	"strings"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/expr"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
)

// YieldSlot names the slot holding component content outside @slot blocks.
// The same content is also reachable as MainSlot.
const (
	YieldSlot = "yield"
	MainSlot  = "main"
)

// compileComponent compiles @component(name, key = value, ...) or
// @component(name, { ... }). Slot bodies compile into their own programs
// and are rendered by the VM in the caller's scope.
func compileComponent(p *Parser, buf *buffer.Buffer, tok lexer.Token) error {
	node, err := p.Expr(tok)
	if err != nil {
		return err
	}
	args := expr.Args(node)
	if _, ok := args[0].(*expr.Assign); ok {
		return p.Invalid(tok, "@%s expects the component name as its first argument", tok.Name)
	}

	ins := vm.Instruction{Op: vm.OpComponent, Expr: args[0], Pos: tok.Pos}
	for _, arg := range args[1:] {
		if assign, ok := arg.(*expr.Assign); ok {
			id, ok := assign.Target.(*expr.Identifier)
			if !ok {
				return p.Invalid(tok, "Invalid prop name %s. Props must be plain identifiers", assign.Target)
			}
			ins.Props = append(ins.Props, vm.Prop{Key: id.Name, Value: assign.Value})
			continue
		}
		if ins.PropsExpr != nil {
			return p.Invalid(tok, "@%s accepts a single props object", tok.Name)
		}
		ins.PropsExpr = arg
	}

	if tok.SelfClosed {
		buf.WriteStatement(ins)
		return nil
	}

	main := buf.Sub()
	slots := make(map[string]*vm.Program)
	for {
		stop, err := p.ParseBody(main, tok, "slot")
		if err != nil {
			return err
		}
		if stop.Kind == lexer.TagClose {
			break
		}

		name, err := slotName(p, stop)
		if err != nil {
			return err
		}
		if _, exists := slots[name]; exists {
			return p.Invalid(stop, "Slot %q is already defined for this component", name)
		}

		body := buf.Sub()
		if !stop.SelfClosed {
			if _, err := p.ParseBody(body, stop); err != nil {
				return err
			}
		}
		prog, err := body.Flush()
		if err != nil {
			return err
		}
		slots[name] = prog
	}

	prog, err := main.Flush()
	if err != nil {
		return err
	}
	if !blank(prog) {
		for _, name := range []string{YieldSlot, MainSlot} {
			if _, explicit := slots[name]; !explicit {
				slots[name] = prog
			}
		}
	}

	if len(slots) > 0 {
		ins.Slots = slots
	}
	buf.WriteStatement(ins)
	return nil
}

func slotName(p *Parser, tok lexer.Token) (string, error) {
	node, err := p.Expr(tok)
	if err != nil {
		return "", err
	}
	args := expr.Args(node)
	name, ok := expr.IsStringLiteral(args[0])
	if !ok || len(args) != 1 {
		return "", p.Invalid(tok, "Invalid name passed to slot. Only strings are allowed")
	}
	if name == "" {
		return "", p.Invalid(tok, "Slot name cannot be empty")
	}
	return name, nil
}

// blank reports whether prog only writes whitespace.
func blank(prog *vm.Program) bool {
	for _, ins := range prog.Code {
		switch ins.Op {
		case vm.OpReturn:
		case vm.OpText:
			if strings.TrimSpace(ins.Text) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
