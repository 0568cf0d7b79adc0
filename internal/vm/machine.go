package vm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/scope"
)

// MaxDepth bounds nested includes and components.
const MaxDepth = 100

// Renderer loads the programs referenced by includes and components.
type Renderer interface {
	Program(name string) (*Program, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(name string) (*Program, error)

// Program implements Renderer.
func (f RendererFunc) Program(name string) (*Program, error) {
	return f(name)
}

type machine struct {
	ctx      *scope.Context
	renderer Renderer
	depth    int
}

// Run renders prog against ctx. The renderer may be nil when the program
// uses neither includes nor components.
func Run(prog *Program, ctx *scope.Context, renderer Renderer) (string, error) {
	m := &machine{ctx: ctx, renderer: renderer}
	var out strings.Builder
	if err := m.exec(prog, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

type iterator struct {
	keys   []interface{}
	values []interface{}
	pos    int
}

func (m *machine) exec(prog *Program, out *strings.Builder) error {
	var iters []*iterator
	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			m.ctx.PopScope()
		}
	}()

	for pc := 0; pc < len(prog.Code); {
		ins := &prog.Code[pc]
		pc++

		switch ins.Op {
		case OpText:
			out.WriteString(ins.Text)

		case OpOutput:
			v, err := m.eval(prog, ins)
			if err != nil {
				return err
			}
			if ins.Escape {
				out.WriteString(m.ctx.Escape(v))
			} else {
				out.WriteString(scope.ToString(v))
			}

		case OpJumpIfFalse, OpJumpIfTrue:
			v, err := m.eval(prog, ins)
			if err != nil {
				return err
			}
			if scope.Truthy(v) == (ins.Op == OpJumpIfTrue) {
				pc = ins.Target
			}

		case OpJump:
			pc = ins.Target

		case OpIterInit:
			v, err := m.eval(prog, ins)
			if err != nil {
				return err
			}
			it := newIterator(v)
			if len(it.values) == 0 {
				pc = ins.Target
				continue
			}
			iters = append(iters, it)
			m.ctx.PushScope()
			pushed++

		case OpIterNext:
			it := iters[len(iters)-1]
			if it.pos >= len(it.values) {
				iters = iters[:len(iters)-1]
				m.ctx.PopScope()
				pushed--
				pc = ins.Target
				continue
			}
			i, total := it.pos, len(it.values)
			m.ctx.Set(ins.Name, it.values[i])
			if ins.Key != "" {
				m.ctx.Set(ins.Key, it.keys[i])
			}
			m.ctx.Set(scope.LoopKey, map[string]interface{}{
				"index":  i,
				"key":    it.keys[i],
				"first":  i == 0,
				"last":   i == total-1,
				"total":  total,
				"isOdd":  i%2 == 1,
				"isEven": i%2 == 0,
			})
			it.pos++

		case OpPushScope:
			m.ctx.PushScope()
			pushed++

		case OpPopScope:
			m.ctx.PopScope()
			pushed--

		case OpSet:
			v, err := m.eval(prog, ins)
			if err != nil {
				return err
			}
			m.ctx.Set(ins.Name, v)

		case OpInclude:
			if err := m.include(prog, ins, out); err != nil {
				return err
			}

		case OpComponent:
			if err := m.component(prog, ins, out); err != nil {
				return err
			}

		case OpReturn:
			return nil

		default:
			return errors.NewInternalError(errors.ErrCodeInternal,
				fmt.Sprintf("unknown opcode %s", ins.Op), nil).
				WithLocation(prog.Filename, ins.Pos.Line, ins.Pos.Column)
		}
	}
	return nil
}

func (m *machine) eval(prog *Program, ins *Instruction) (interface{}, error) {
	v, err := m.ctx.Eval(ins.Expr)
	if err != nil {
		return nil, m.locate(prog, ins, err)
	}
	return v, nil
}

func (m *machine) locate(prog *Program, ins *Instruction, err error) error {
	filename := ins.Pos.Filename
	if filename == "" {
		filename = prog.Filename
	}
	return errors.At(err, filename, ins.Pos.Line, ins.Pos.Column)
}

func (m *machine) load(prog *Program, ins *Instruction) (*Program, error) {
	v, err := m.eval(prog, ins)
	if err != nil {
		return nil, err
	}
	name := scope.ToString(v)
	if name == "" {
		return nil, m.locate(prog, ins, errors.NewRuntimeError(
			fmt.Sprintf("%s resolved to an empty template name", ins.Expr), nil))
	}
	if m.renderer == nil {
		return nil, m.locate(prog, ins, errors.NewTemplateNotFoundError(name))
	}
	if m.depth >= MaxDepth {
		return nil, m.locate(prog, ins, errors.NewRuntimeError(
			fmt.Sprintf("maximum render depth of %d exceeded while rendering %q", MaxDepth, name), nil))
	}
	target, err := m.renderer.Program(name)
	if err != nil {
		return nil, m.locate(prog, ins, err)
	}
	return target, nil
}

func (m *machine) nested(target *Program, out *strings.Builder) error {
	m.depth++
	defer func() { m.depth-- }()
	return m.exec(target, out)
}

func (m *machine) include(prog *Program, ins *Instruction, out *strings.Builder) error {
	target, err := m.load(prog, ins)
	if err != nil {
		return err
	}
	return m.nested(target, out)
}

func (m *machine) component(prog *Program, ins *Instruction, out *strings.Builder) error {
	target, err := m.load(prog, ins)
	if err != nil {
		return err
	}

	props, err := m.props(prog, ins)
	if err != nil {
		return err
	}
	if target.Presenter != nil {
		props = target.Presenter(props)
	}

	// slot bodies render in the caller's scope before isolation
	slots := make(map[string]interface{}, len(ins.Slots))
	for name, body := range ins.Slots {
		var captured strings.Builder
		if err := m.nested(body, &captured); err != nil {
			return err
		}
		slots[name] = scope.Safe(captured.String())
	}

	var rendered strings.Builder
	iso := m.ctx.NewContext(props, slots)
	err = m.ctx.Isolate(iso, func() error {
		return m.nested(target, &rendered)
	})
	if err != nil {
		return err
	}

	out.WriteString(strings.TrimSuffix(rendered.String(), "\n"))
	return nil
}

func (m *machine) props(prog *Program, ins *Instruction) (map[string]interface{}, error) {
	props := make(map[string]interface{}, len(ins.Props))
	if ins.PropsExpr != nil {
		v, err := m.ctx.Eval(ins.PropsExpr)
		if err != nil {
			return nil, m.locate(prog, ins, err)
		}
		if v != nil {
			src, err := cast.ToStringMapE(v)
			if err != nil {
				return nil, m.locate(prog, ins, errors.NewRuntimeError(
					fmt.Sprintf("component props must be an object, got %T", v), err))
			}
			for k, val := range src {
				props[k] = val
			}
		}
	}
	for _, p := range ins.Props {
		v, err := m.ctx.Eval(p.Value)
		if err != nil {
			return nil, m.locate(prog, ins, err)
		}
		props[p.Key] = v
	}
	return props, nil
}

func newIterator(v interface{}) *iterator {
	it := &iterator{}
	if v == nil {
		return it
	}

	switch t := v.(type) {
	case []interface{}:
		it.values = t
		it.keys = make([]interface{}, len(t))
		for i := range t {
			it.keys[i] = i
		}
		return it
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			it.keys = append(it.keys, k)
			it.values = append(it.values, t[k])
		}
		return it
	case string:
		for i, r := range []rune(t) {
			it.keys = append(it.keys, i)
			it.values = append(it.values, string(r))
		}
		return it
	}

	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			it.keys = append(it.keys, i)
			it.values = append(it.values, rv.Index(i).Interface())
		}
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			it.keys = append(it.keys, k.Interface())
			it.values = append(it.values, rv.MapIndex(k).Interface())
		}
	}
	return it
}
