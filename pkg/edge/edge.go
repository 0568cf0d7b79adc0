// Package edge is the public API of the template engine.
//
// An Edge instance owns a loader, a compiled-template cache, global values
// and helpers, and the tag registry:
//
//	e := edge.New()
//	if err := e.Mount("", "./views"); err != nil {
//		return err
//	}
//	html, err := e.Render("home", map[string]interface{}{"user": user})
//
// Rendering is synchronous. An Edge may be used from several goroutines;
// registering tags or helpers while rendering is not supported.
package edge

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anhnt/edge/internal/compiler"
	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/loader"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/internal/scope"
	"github.com/anhnt/edge/internal/tags"
	"github.com/anhnt/edge/internal/vm"
	"github.com/anhnt/edge/internal/whitespace"
)

// DefaultCacheSize is the number of compiled templates kept by default.
const DefaultCacheSize = 512

// inlineName is the filename used in diagnostics for string templates.
const inlineName = "inline.edge"

// Edge compiles and renders templates.
type Edge struct {
	loader   loader.Loader
	fsLoader *loader.FSLoader
	globals  *scope.Globals
	tags     *tags.Registry
	logger   logging.Logger
	mode     whitespace.Mode

	cacheSize int
	cacheTTL  time.Duration
	cache     *compiler.Cache
	compiler  *compiler.Compiler
	group     singleflight.Group

	// generation advances on every invalidation. A compile that started
	// under an older generation does not store its program.
	generation atomic.Uint64
}

var _ vm.Renderer = (*Edge)(nil)

// New creates an Edge instance with the built-in tags and helpers.
func New(opts ...Option) *Edge {
	e := &Edge{
		globals:   scope.NewGlobals(),
		tags:      tags.Default(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.loader == nil {
		e.fsLoader = loader.NewFSLoader(nil)
		e.loader = e.fsLoader
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	e.logger = e.logger.WithComponent("edge")
	if e.cacheSize > 0 {
		e.cache = compiler.NewCache(e.cacheSize, e.cacheTTL)
	}
	e.compiler = compiler.New(compiler.Options{
		RawWhitespace: e.mode,
		Tags:          e.tags,
		Logger:        e.logger,
	})

	registerHelpers(e.globals)
	return e
}

// Loader returns the template loader.
func (e *Edge) Loader() loader.Loader {
	return e.loader
}

// Mount maps a disk name to a directory. An empty disk is the default disk.
func (e *Edge) Mount(disk, dir string) error {
	if e.fsLoader == nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "Mount requires the filesystem loader")
	}
	if err := e.fsLoader.Mount(disk, dir); err != nil {
		return err
	}
	e.invalidateDisk(disk)
	e.logger.Debug(context.Background(), "disk mounted", "disk", disk, "dir", dir)
	return nil
}

// Unmount removes a disk.
func (e *Edge) Unmount(disk string) {
	if e.fsLoader == nil {
		return
	}
	e.fsLoader.Unmount(disk)
	e.invalidateDisk(disk)
}

// List returns the names of all templates on the mounted disks.
func (e *Edge) List() ([]string, error) {
	if e.fsLoader == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "List requires the filesystem loader")
	}
	return e.fsLoader.List()
}

// Global shares a value with every template.
func (e *Edge) Global(name string, value interface{}) {
	e.globals.Set(name, value)
}

// Helper registers a function callable from templates.
func (e *Edge) Helper(name string, fn interface{}) error {
	return e.globals.Helper(name, fn)
}

// Globals returns the shared values and helpers.
func (e *Edge) Globals() *scope.Globals {
	return e.globals
}

// RegisterTag adds a custom tag. Cached programs are dropped since they
// were compiled without it.
func (e *Edge) RegisterTag(d tags.Descriptor) (*tags.Handle, error) {
	h, err := e.tags.Register(d)
	if err != nil {
		return nil, err
	}
	e.Invalidate()
	return h, nil
}

// RegisterPresenter attaches a presenter to a template. The presenter
// receives the props of every component rendering the template.
func (e *Edge) RegisterPresenter(name string, fn func(map[string]interface{}) map[string]interface{}) error {
	if e.fsLoader == nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "RegisterPresenter requires the filesystem loader")
	}
	if err := e.fsLoader.RegisterPresenter(name, fn); err != nil {
		return err
	}
	e.Invalidate(name)
	return nil
}

// Program implements vm.Renderer: it returns the compiled program of a
// template, compiling it on a cache miss. Concurrent misses for the same
// template share one compilation.
func (e *Edge) Program(name string) (*vm.Program, error) {
	key := cacheKey(name)
	if e.cache != nil {
		if prog, ok := e.cache.Get(key); ok {
			return prog, nil
		}
	}

	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		gen := e.generation.Load()
		tpl, err := e.loader.Resolve(name)
		if err != nil {
			return nil, err
		}
		filename := tpl.Path
		if filename == "" {
			filename = tpl.Name
		}
		prog, err := e.compiler.Compile(filename, tpl.Source)
		if err != nil {
			return nil, err
		}
		if tpl.Presenter != nil {
			prog = prog.WithPresenter(vm.Presenter(tpl.Presenter))
		}
		if e.cache != nil && e.generation.Load() == gen {
			e.cache.Set(key, prog)
		}
		return prog, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vm.Program), nil
}

// Compile compiles a template by name.
func (e *Edge) Compile(name string) (*Procedure, error) {
	prog, err := e.Program(name)
	if err != nil {
		return nil, err
	}
	return &Procedure{edge: e, prog: prog}, nil
}

// CompileString compiles template source that does not live on a disk.
func (e *Edge) CompileString(source string) (*Procedure, error) {
	prog, err := e.compiler.Compile(inlineName, source)
	if err != nil {
		return nil, err
	}
	return &Procedure{edge: e, prog: prog}, nil
}

// Tokens resolves a template and returns its token stream, for debugging
// the lexer.
func (e *Edge) Tokens(name string) ([]lexer.Token, error) {
	tpl, err := e.loader.Resolve(name)
	if err != nil {
		return nil, err
	}
	filename := tpl.Path
	if filename == "" {
		filename = tpl.Name
	}
	return e.compiler.Tokenize(filename, tpl.Source)
}

// Render renders a template by name.
func (e *Edge) Render(name string, data map[string]interface{}) (string, error) {
	proc, err := e.Compile(name)
	if err != nil {
		return "", err
	}
	return proc.Render(data)
}

// RenderString renders template source.
func (e *Edge) RenderString(source string, data map[string]interface{}) (string, error) {
	proc, err := e.CompileString(source)
	if err != nil {
		return "", err
	}
	return proc.Render(data)
}

// Invalidate drops cached programs. Without names the whole cache is
// cleared.
func (e *Edge) Invalidate(names ...string) {
	e.generation.Add(1)
	if e.cache == nil {
		return
	}
	if len(names) == 0 {
		e.cache.Clear()
		return
	}
	for _, name := range names {
		key := cacheKey(name)
		e.group.Forget(key)
		e.cache.Delete(key)
	}
}

// CacheStats returns the compiled-template cache counters.
func (e *Edge) CacheStats() compiler.CacheStats {
	if e.cache == nil {
		return compiler.CacheStats{}
	}
	return e.cache.Stats()
}

// TemplateFor maps a file path to the name of the template it holds.
func (e *Edge) TemplateFor(file string) (string, bool) {
	if e.fsLoader == nil {
		return "", false
	}
	return e.fsLoader.PathFor(file)
}

func (e *Edge) invalidateDisk(disk string) {
	e.generation.Add(1)
	if e.cache == nil {
		return
	}
	if disk == "" || disk == loader.DefaultDisk {
		e.cache.InvalidateFunc(func(key string) bool {
			return !strings.Contains(key, "::")
		})
		return
	}
	e.cache.InvalidatePrefix(disk + "::")
}

// cacheKey normalizes a template name so that "home", "home.edge" and
// "default::home" share one entry.
func cacheKey(name string) string {
	disk, rel, err := loader.Split(name)
	if err != nil {
		return name
	}
	return loader.Join(disk, rel)
}

// Procedure is a compiled template bound to its Edge instance.
type Procedure struct {
	edge *Edge
	prog *vm.Program
}

// Render renders the procedure with data.
func (p *Procedure) Render(data map[string]interface{}) (string, error) {
	if p.prog.Presenter != nil {
		data = p.prog.Presenter(copyData(data))
	}
	ctx := scope.NewRenderContext(p.edge.globals, data)
	return vm.Run(p.prog, ctx, p.edge)
}

// Program returns the compiled program.
func (p *Procedure) Program() *vm.Program {
	return p.prog
}

// String returns the instruction listing.
func (p *Procedure) String() string {
	return p.prog.String()
}

func copyData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
