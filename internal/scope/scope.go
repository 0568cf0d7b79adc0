// Package scope is the runtime model consumed by compiled programs: scope
// chains for variable lookup, the render Context with its escaping and
// function-calling rules, and the expression evaluator.
//
// Missing variables are tolerated and resolve to nil. Calling a function
// that is not registered is an error. Components render inside isolated
// scopes that see only their props, the reserved "$slot" and "$props"
// entries, and the globals and helpers shared by every render.
package scope

import "sort"

// Reserved names seeded into isolated scopes.
const (
	SlotKey  = "$slot"
	PropsKey = "$props"
	LoopKey  = "$loop"
)

// Scope maps identifiers to values with an optional parent used for
// fallback lookups. A child never owns its parent.
type Scope struct {
	vars   map[string]interface{}
	parent *Scope
}

// New creates a scope. A nil parent makes it a root scope.
func New(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]interface{}), parent: parent}
}

// FromMap creates a root scope holding a copy of data.
func FromMap(data map[string]interface{}) *Scope {
	s := New(nil)
	for k, v := range data {
		s.vars[k] = v
	}
	return s
}

// Get returns a variable of this frame only.
func (s *Scope) Get(name string) (interface{}, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Set defines or overwrites a variable in this frame.
func (s *Scope) Set(name string, value interface{}) {
	s.vars[name] = value
}

// Lookup walks the chain from this frame to the root.
func (s *Scope) Lookup(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Child creates a scope whose parent is s.
func (s *Scope) Child() *Scope {
	return New(s)
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Names returns the sorted names visible through the chain.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	for cur := s; cur != nil; cur = cur.parent {
		for k := range cur.vars {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
