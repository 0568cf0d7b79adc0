// Package compiler turns template source into vm programs.
//
// Compilation runs the lexer, the tag parser and the output buffer to
// completion and is fail-fast: the first structural error aborts with a
// positioned diagnostic and no partial program.
package compiler

import (
	"context"

	"github.com/anhnt/edge/internal/buffer"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/logging"
	"github.com/anhnt/edge/internal/tags"
	"github.com/anhnt/edge/internal/vm"
	"github.com/anhnt/edge/internal/whitespace"
)

// Options configures a Compiler.
type Options struct {
	// RawWhitespace is the whitespace policy for literal text.
	RawWhitespace whitespace.Mode
	// Tags defaults to the built-in registry.
	Tags   *tags.Registry
	Logger logging.Logger
}

// Compiler compiles templates. It holds no per-compilation state and is
// safe for concurrent use as long as its registry is not mutated
// concurrently with Register.
type Compiler struct {
	mode   whitespace.Mode
	tags   *tags.Registry
	logger logging.Logger
}

// New creates a compiler.
func New(opts Options) *Compiler {
	if opts.Tags == nil {
		opts.Tags = tags.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Compiler{
		mode:   opts.RawWhitespace,
		tags:   opts.Tags,
		logger: opts.Logger.WithComponent("compiler"),
	}
}

// Tags returns the registry used for compilation.
func (c *Compiler) Tags() *tags.Registry {
	return c.tags
}

// Compile compiles source. The filename is used in diagnostics only.
func (c *Compiler) Compile(filename, source string) (*vm.Program, error) {
	op := logging.StartOperation(c.logger, "compile", "template", filename)

	buf := buffer.New(filename, c.mode)
	p := tags.NewParser(filename, lexer.New(filename, source, c.tags), c.tags)
	if err := p.Parse(buf); err != nil {
		op.Debug(context.Background(), "compile failed", "error", err.Error())
		return nil, err
	}
	prog, err := buf.Flush()
	if err != nil {
		op.Debug(context.Background(), "compile failed", "error", err.Error())
		return nil, err
	}

	op.End(context.Background())
	return prog, nil
}

// Tokenize returns the tokens of source as the compiler sees them.
func (c *Compiler) Tokenize(filename, source string) ([]lexer.Token, error) {
	return lexer.Tokenize(filename, source, c.tags)
}
