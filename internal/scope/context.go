package scope

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"golang.org/x/net/html"

	"github.com/anhnt/edge/internal/errors"
)

// Escaper escapes text for safe interpolation.
type Escaper func(string) string

// DefaultEscaper escapes HTML special characters.
func DefaultEscaper(s string) string {
	return html.EscapeString(s)
}

// Globals holds the values and helper functions visible to every render.
// It is safe for concurrent use.
type Globals struct {
	mu      sync.RWMutex
	values  map[string]interface{}
	helpers map[string]interface{}
	escaper Escaper
}

// NewGlobals creates an empty table using DefaultEscaper.
func NewGlobals() *Globals {
	return &Globals{
		values:  make(map[string]interface{}),
		helpers: make(map[string]interface{}),
		escaper: DefaultEscaper,
	}
}

// Set registers a global value.
func (g *Globals) Set(name string, value interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[name] = value
}

// Helper registers a function callable from templates.
func (g *Globals) Helper(name string, fn interface{}) error {
	if reflect.TypeOf(fn) == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return errors.NewInternalError(errors.ErrCodeInternal,
			fmt.Sprintf("helper %q must be a function, got %T", name, fn), nil)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.helpers[name] = fn
	return nil
}

// SetEscaper replaces the escaping collaborator.
func (g *Globals) SetEscaper(e Escaper) {
	if e == nil {
		e = DefaultEscaper
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.escaper = e
}

// Helpers returns the sorted names of the registered helpers.
func (g *Globals) Helpers() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.helpers))
	for k := range g.helpers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (g *Globals) value(name string) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}

func (g *Globals) helper(name string) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.helpers[name]
	return fn, ok
}

func (g *Globals) escape(s string) string {
	g.mu.RLock()
	e := g.escaper
	g.mu.RUnlock()
	return e(s)
}

// Context is the state of one render call. It is not safe for concurrent
// use; every render creates its own.
type Context struct {
	scope   *Scope
	globals *Globals
}

// NewRenderContext creates a context whose root scope holds data.
func NewRenderContext(globals *Globals, data map[string]interface{}) *Context {
	if globals == nil {
		globals = NewGlobals()
	}
	return &Context{scope: FromMap(data), globals: globals}
}

// Scope returns the active scope.
func (c *Context) Scope() *Scope {
	return c.scope
}

// Globals returns the shared table.
func (c *Context) Globals() *Globals {
	return c.globals
}

// PushScope enters a child of the active scope.
func (c *Context) PushScope() *Scope {
	c.scope = c.scope.Child()
	return c.scope
}

// PopScope returns to the parent of the active scope. The root scope is
// never popped.
func (c *Context) PopScope() {
	if c.scope.parent != nil {
		c.scope = c.scope.parent
	}
}

// Set assigns a variable in the active scope.
func (c *Context) Set(name string, value interface{}) {
	c.scope.Set(name, value)
}

// Resolve looks name up in the scope chain, then in the globals, then in
// the helpers. Missing names resolve to nil.
func (c *Context) Resolve(name string) interface{} {
	if v, ok := c.scope.Lookup(name); ok {
		return v
	}
	if v, ok := c.globals.value(name); ok {
		return v
	}
	if fn, ok := c.globals.helper(name); ok {
		return fn
	}
	return nil
}

// AccessChild walks path from v. Any missing link yields nil.
func (c *Context) AccessChild(v interface{}, path ...interface{}) interface{} {
	for _, key := range path {
		if isNil(v) {
			return nil
		}
		v = child(v, key)
	}
	return v
}

// Escape converts v for output. SafeValue is written as is.
func (c *Context) Escape(v interface{}) string {
	switch t := v.(type) {
	case SafeValue:
		return string(t)
	case nil:
		return ""
	}
	return c.globals.escape(ToString(v))
}

// CallFn invokes a function by name with resolved arguments. Functions in
// the scope chain win over registered helpers.
func (c *Context) CallFn(name string, args []interface{}) (interface{}, error) {
	if fn, ok := c.scope.Lookup(name); ok && isFunc(fn) {
		return c.Call(fn, args)
	}
	if fn, ok := c.globals.helper(name); ok {
		return c.Call(fn, args)
	}
	if fn, ok := c.globals.value(name); ok && isFunc(fn) {
		return c.Call(fn, args)
	}
	return nil, errors.NewUnregisteredFunctionError(name)
}

// NewContext creates an isolated scope seeded with props and the slot
// captures. It has no parent, so the caller's variables are invisible.
func (c *Context) NewContext(props map[string]interface{}, slots map[string]interface{}) *Scope {
	iso := New(nil)
	if props == nil {
		props = map[string]interface{}{}
	}
	if slots == nil {
		slots = map[string]interface{}{}
	}
	for k, v := range props {
		iso.vars[k] = v
	}
	iso.vars[PropsKey] = props
	iso.vars[SlotKey] = slots
	return iso
}

// Isolate runs fn with iso as the active scope and restores the previous
// scope on every exit path.
func (c *Context) Isolate(iso *Scope, fn func() error) error {
	prev := c.scope
	c.scope = iso
	defer func() { c.scope = prev }()
	return fn()
}

func isFunc(v interface{}) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

func child(v interface{}, key interface{}) interface{} {
	name, isName := key.(string)

	switch t := v.(type) {
	case map[string]interface{}:
		if isName {
			if found, ok := t[name]; ok {
				return found
			}
			if name == "length" {
				return len(t)
			}
			return nil
		}
		return t[cast.ToString(key)]
	case []interface{}:
		if isName && name == "length" {
			return len(t)
		}
		return index(reflect.ValueOf(t), key)
	}

	if s, ok := isStringLike(v); ok {
		runes := []rune(s)
		if isName && name == "length" {
			return len(runes)
		}
		i, err := cast.ToIntE(key)
		if err != nil || i < 0 || i >= len(runes) {
			return nil
		}
		return string(runes[i])
	}

	rv := reflect.ValueOf(v)
	if isName {
		if m := method(rv, name); m.IsValid() {
			return m.Interface()
		}
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		k, ok := mapKey(rv.Type().Key(), key)
		if !ok {
			return nil
		}
		found := rv.MapIndex(k)
		if !found.IsValid() {
			if isName && name == "length" {
				return rv.Len()
			}
			return nil
		}
		return found.Interface()
	case reflect.Slice, reflect.Array:
		if isName && name == "length" {
			return rv.Len()
		}
		return index(rv, key)
	case reflect.Struct:
		if !isName {
			name = cast.ToString(key)
		}
		return field(rv, name)
	}
	return nil
}

func index(rv reflect.Value, key interface{}) interface{} {
	i, err := cast.ToIntE(key)
	if err != nil || i < 0 || i >= rv.Len() {
		return nil
	}
	return rv.Index(i).Interface()
}

func mapKey(t reflect.Type, key interface{}) (reflect.Value, bool) {
	kv := reflect.ValueOf(key)
	if !kv.IsValid() {
		return reflect.Value{}, false
	}
	if kv.Type().AssignableTo(t) {
		return kv, true
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(cast.ToString(key)).Convert(t), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(key)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(i).Convert(t), true
	}
	if kv.Type().ConvertibleTo(t) {
		return kv.Convert(t), true
	}
	return reflect.Value{}, false
}

// field finds an exported field by name, then by its json tag.
func field(rv reflect.Value, name string) interface{} {
	if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
		return f.Interface()
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == name || (tag == "" && strings.EqualFold(sf.Name, name)) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}

func method(rv reflect.Value, name string) reflect.Value {
	if !rv.IsValid() || name == "" {
		return reflect.Value{}
	}
	if m := rv.MethodByName(name); m.IsValid() {
		return m
	}
	if rv.Kind() != reflect.Ptr && rv.CanAddr() {
		return rv.Addr().MethodByName(name)
	}
	return reflect.Value{}
}
