package scope

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/expr"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Eval interprets node against the context.
func (c *Context) Eval(node expr.Node) (interface{}, error) {
	switch n := node.(type) {
	case *expr.Identifier:
		return c.Resolve(n.Name), nil

	case *expr.Literal:
		return n.Value, nil

	case *expr.Array:
		items, err := c.evalAll(n.Elements)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []interface{}{}
		}
		return items, nil

	case *expr.Object:
		obj := make(map[string]interface{}, len(n.Properties))
		for _, p := range n.Properties {
			v, err := c.Eval(p.Value)
			if err != nil {
				return nil, err
			}
			obj[p.Key] = v
		}
		return obj, nil

	case *expr.Member:
		obj, err := c.Eval(n.Object)
		if err != nil {
			return nil, err
		}
		key, err := c.memberKey(n)
		if err != nil {
			return nil, err
		}
		return c.AccessChild(obj, key), nil

	case *expr.Call:
		return c.evalCall(n)

	case *expr.Unary:
		v, err := c.Eval(n.Operand)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "!":
			return !Truthy(v), nil
		case "-":
			return -ToNumber(v), nil
		case "+":
			return ToNumber(v), nil
		case "typeof":
			return TypeOf(v), nil
		}
		return nil, errors.NewRuntimeError("unknown unary operator "+n.Operator, nil)

	case *expr.Binary:
		left, err := c.Eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.Eval(n.Right)
		if err != nil {
			return nil, err
		}
		return binary(n.Operator, left, right)

	case *expr.Logical:
		left, err := c.Eval(n.Left)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "&&":
			if !Truthy(left) {
				return left, nil
			}
		case "||":
			if Truthy(left) {
				return left, nil
			}
		case "??":
			if !isNil(left) {
				return left, nil
			}
		}
		return c.Eval(n.Right)

	case *expr.Conditional:
		test, err := c.Eval(n.Test)
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return c.Eval(n.Consequent)
		}
		return c.Eval(n.Alternate)

	case *expr.Assign:
		v, err := c.Eval(n.Value)
		if err != nil {
			return nil, err
		}
		id, ok := n.Target.(*expr.Identifier)
		if !ok {
			return nil, errors.NewRuntimeError("cannot assign to "+n.Target.String(), nil)
		}
		c.Set(id.Name, v)
		return v, nil

	case *expr.Sequence:
		var last interface{}
		for _, e := range n.Expressions {
			v, err := c.Eval(e)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}

	return nil, errors.NewRuntimeError(fmt.Sprintf("cannot evaluate %s", expr.TypeName(node)), nil)
}

func (c *Context) evalAll(nodes []expr.Node) ([]interface{}, error) {
	var out []interface{}
	for _, n := range nodes {
		v, err := c.Eval(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Context) memberKey(n *expr.Member) (interface{}, error) {
	if !n.Computed {
		return n.Property.(*expr.Identifier).Name, nil
	}
	return c.Eval(n.Property)
}

func (c *Context) evalCall(n *expr.Call) (interface{}, error) {
	args, err := c.evalAll(n.Args)
	if err != nil {
		return nil, err
	}

	switch callee := n.Callee.(type) {
	case *expr.Identifier:
		return c.CallFn(callee.Name, args)
	case *expr.Member:
		obj, err := c.Eval(callee.Object)
		if err != nil {
			return nil, err
		}
		key, err := c.memberKey(callee)
		if err != nil {
			return nil, err
		}
		fn := c.AccessChild(obj, key)
		if !isFunc(fn) {
			return nil, errors.NewRuntimeError(fmt.Sprintf("%s is not a function", callee), nil)
		}
		return c.Call(fn, args)
	}

	fn, err := c.Eval(n.Callee)
	if err != nil {
		return nil, err
	}
	return c.Call(fn, args)
}

// Call invokes a Go function with template arguments. Missing arguments
// are zero values, extra ones are dropped, and a trailing error result is
// returned as the error.
func (c *Context) Call(fn interface{}, args []interface{}) (result interface{}, err error) {
	switch f := fn.(type) {
	case func(...interface{}) interface{}:
		return f(args...), nil
	case func(...interface{}) (interface{}, error):
		return f(args...)
	}

	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, errors.NewRuntimeError(fmt.Sprintf("%T is not a function", fn), nil)
	}
	ft := fv.Type()

	in := make([]reflect.Value, 0, len(args))
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		var arg interface{}
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, ft.In(i))
		if err != nil {
			return nil, errors.NewRuntimeError(fmt.Sprintf("argument %d: %v", i+1, err), err)
		}
		in = append(in, v)
	}
	if ft.IsVariadic() {
		elem := ft.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := convertArg(args[i], elem)
			if err != nil {
				return nil, errors.NewRuntimeError(fmt.Sprintf("argument %d: %v", i+1, err), err)
			}
			in = append(in, v)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.NewRuntimeError(fmt.Sprintf("function panicked: %v", r), nil)
		}
	}()

	out := fv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			if e, _ := out[0].Interface().(error); e != nil {
				return nil, e
			}
			return nil, nil
		}
		return out[0].Interface(), nil
	default:
		if ft.Out(len(out)-1) == errorType {
			if e, _ := out[len(out)-1].Interface().(error); e != nil {
				return nil, e
			}
		}
		return out[0].Interface(), nil
	}
}

func convertArg(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	var converted interface{}
	var err error
	switch t.Kind() {
	case reflect.String:
		converted = ToString(arg)
	case reflect.Bool:
		converted = Truthy(arg)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		converted, err = cast.ToInt64E(arg)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		converted, err = cast.ToUint64E(arg)
	case reflect.Float32, reflect.Float64:
		converted, err = cast.ToFloat64E(arg)
	default:
		if v.Type().ConvertibleTo(t) {
			return v.Convert(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(converted).Convert(t), nil
}

func binary(op string, left, right interface{}) (interface{}, error) {
	switch op {
	case "+":
		return Add(left, right), nil
	case "-":
		return ToNumber(left) - ToNumber(right), nil
	case "*":
		return ToNumber(left) * ToNumber(right), nil
	case "/":
		return ToNumber(left) / ToNumber(right), nil
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right)), nil
	case "==":
		return LooseEqual(left, right), nil
	case "!=":
		return !LooseEqual(left, right), nil
	case "===":
		return StrictEqual(left, right), nil
	case "!==":
		return !StrictEqual(left, right), nil
	case "<", "<=", ">", ">=":
		cmp, ok := Compare(left, right)
		if !ok {
			return false, nil
		}
		switch op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "in":
		return contains(right, left), nil
	}
	return nil, errors.NewRuntimeError("unknown operator "+op, nil)
}

// contains reports map key membership, slice element membership or
// substring containment.
func contains(collection, item interface{}) bool {
	if s, ok := isStringLike(collection); ok {
		return strings.Contains(s, ToString(item))
	}
	if isNil(collection) {
		return false
	}
	rv := reflect.Indirect(reflect.ValueOf(collection))
	switch rv.Kind() {
	case reflect.Map:
		k, ok := mapKey(rv.Type().Key(), item)
		return ok && rv.MapIndex(k).IsValid()
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if LooseEqual(rv.Index(i).Interface(), item) {
				return true
			}
		}
	}
	return false
}
