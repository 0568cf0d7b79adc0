// Package tags implements the tag registry and the compilers that turn tag
// tokens into instructions.
//
// Built-in tags form a fixed enumeration dispatched with a switch; names
// are mapped to variants only at the lexer and parser boundary. Custom tags
// are registered with a compile function and receive the parser so that
// they can consume their own body.
package tags

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/statement"
)

// Tag is a built-in tag variant.
type Tag int

const (
	Custom Tag = iota
	If
	ElseIf
	Else
	Unless
	Each
	Include
	IncludeIf
	Component
	Slot
	Set
)

var tagNames = map[Tag]string{
	Custom:    "custom",
	If:        "if",
	ElseIf:    "elseif",
	Else:      "else",
	Unless:    "unless",
	Each:      "each",
	Include:   "include",
	IncludeIf: "includeIf",
	Component: "component",
	Slot:      "slot",
	Set:       "set",
}

// String returns the string representation of the tag
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// CompileFunc compiles one occurrence of a custom tag.
type CompileFunc func(p *Parser, buf *buffer.Buffer, tok lexer.Token) error

// Descriptor describes a tag.
type Descriptor struct {
	Name string
	Tag  Tag
	// Block tags expect a matching @end<name>.
	Block bool
	// Seekable tags require a non-empty argument.
	Seekable bool
	// Compile is required for custom tags and unused for built-ins.
	Compile CompileFunc
}

// Handle identifies a registration.
type Handle struct {
	name     string
	registry *Registry
}

// Name returns the registered tag name.
func (h *Handle) Name() string {
	return h.name
}

// Unregister removes the tag.
func (h *Handle) Unregister() {
	h.registry.mu.Lock()
	defer h.registry.mu.Unlock()
	delete(h.registry.tags, h.name)
}

// Registry maps tag names to descriptors. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	tags map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]*Descriptor)}
}

// Default returns a registry holding the built-in tags.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range []Descriptor{
		{Name: "if", Tag: If, Block: true, Seekable: true},
		{Name: "elseif", Tag: ElseIf, Seekable: true},
		{Name: "else", Tag: Else},
		{Name: "unless", Tag: Unless, Block: true, Seekable: true},
		{Name: "each", Tag: Each, Block: true, Seekable: true},
		{Name: "include", Tag: Include, Seekable: true},
		{Name: "includeIf", Tag: IncludeIf, Seekable: true},
		{Name: "component", Tag: Component, Block: true, Seekable: true},
		{Name: "slot", Tag: Slot, Block: true, Seekable: true},
		{Name: "set", Tag: Set, Seekable: true},
	} {
		d := d
		r.tags[d.Name] = &d
	}
	return r
}

// Register adds a tag. Names must be unique and custom tags need a
// compile function.
func (r *Registry) Register(d Descriptor) (*Handle, error) {
	if d.Name == "" {
		return nil, errors.NewInternalError(errors.ErrCodeInternal, "tag name cannot be empty", nil)
	}
	for i := 0; i < len(d.Name); i++ {
		if !statement.IsNameByte(d.Name[i]) {
			return nil, errors.NewInternalError(errors.ErrCodeInternal,
				fmt.Sprintf("invalid tag name %q", d.Name), nil)
		}
	}
	if d.Tag == Custom && d.Compile == nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternal,
			fmt.Sprintf("custom tag @%s has no compile function", d.Name), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tags[d.Name]; exists {
		return nil, errors.NewInternalError(errors.ErrCodeDuplicateRegistration,
			fmt.Sprintf("tag @%s is already registered", d.Name), nil)
	}
	r.tags[d.Name] = &d
	return &Handle{name: d.Name, registry: r}, nil
}

// Descriptor returns the descriptor registered under name.
func (r *Registry) Descriptor(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tags[name]
	return d, ok
}

// Lookup implements lexer.TagLookup.
func (r *Registry) Lookup(name string) (lexer.TagInfo, bool) {
	d, ok := r.Descriptor(name)
	if !ok {
		return lexer.TagInfo{}, false
	}
	return lexer.TagInfo{Block: d.Block, Seekable: d.Seekable}, true
}

// Names returns the sorted registered names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tags))
	for name := range r.tags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for name, d := range r.tags {
		cp := *d
		c.tags[name] = &cp
	}
	return c
}
