// Package buffer assembles the instruction list of a compiled template.
//
// Literal text accumulates in a whitespace bucket and is flushed as one
// TEXT instruction whenever a statement is written. Indent and Dedent track
// the open block tags; Flush fails with E_UNCLOSED_TAG when a block is left
// open.
package buffer

import (
	"fmt"

	"github.com/anhnt/edge/internal/errors"
	"github.com/anhnt/edge/internal/lexer"
	"github.com/anhnt/edge/internal/vm"
	"github.com/anhnt/edge/internal/whitespace"
)

// Label is a jump target that is resolved when the buffer is flushed.
type Label int

type openTag struct {
	name string
	pos  lexer.Position
}

// Buffer is an indentation-aware instruction accumulator.
type Buffer struct {
	filename string
	mode     whitespace.Mode

	code   []vm.Instruction
	text   *whitespace.Bucket
	open   []openTag
	labels []int
	fixups []int
}

// New creates a buffer whose literal text follows mode.
func New(filename string, mode whitespace.Mode) *Buffer {
	return &Buffer{
		filename: filename,
		mode:     mode,
		text:     whitespace.New(mode),
	}
}

// Sub creates an independent buffer for a nested body such as a slot.
func (b *Buffer) Sub() *Buffer {
	return New(b.filename, b.mode)
}

// Filename returns the template the buffer compiles.
func (b *Buffer) Filename() string {
	return b.filename
}

// Depth returns the number of open blocks.
func (b *Buffer) Depth() int {
	return len(b.open)
}

// WriteText appends literal output.
func (b *Buffer) WriteText(s string) {
	b.text.FeedString(s)
}

// WriteStatement flushes pending text and appends ins at the current
// depth. It returns the index of the instruction.
func (b *Buffer) WriteStatement(ins vm.Instruction) int {
	b.flushText()
	ins.Depth = len(b.open)
	b.code = append(b.code, ins)
	return len(b.code) - 1
}

// WriteJump appends an instruction whose Target is label.
func (b *Buffer) WriteJump(ins vm.Instruction, label Label) int {
	ins.Target = int(label)
	idx := b.WriteStatement(ins)
	b.fixups = append(b.fixups, idx)
	return idx
}

// Indent opens a block for tag.
func (b *Buffer) Indent(tag string, pos lexer.Position) {
	b.flushText()
	b.open = append(b.open, openTag{name: tag, pos: pos})
}

// Dedent closes the innermost block.
func (b *Buffer) Dedent() error {
	if len(b.open) == 0 {
		return errors.NewInternalError(errors.ErrCodeInternal, "dedent below zero", nil).
			WithLocation(b.filename, 0, 0)
	}
	b.flushText()
	b.open = b.open[:len(b.open)-1]
	return nil
}

// NewLabel allocates an unresolved jump target.
func (b *Buffer) NewLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

// Mark resolves label to the next instruction.
func (b *Buffer) Mark(label Label) {
	b.flushText()
	b.labels[label] = len(b.code)
}

// Flush emits the pending text and the final RETURN, resolves jump targets
// and returns the program.
func (b *Buffer) Flush() (*vm.Program, error) {
	if n := len(b.open); n > 0 {
		tag := b.open[n-1]
		return nil, errors.NewUnclosedTagError(tag.name).
			WithLocation(tag.pos.Filename, tag.pos.Line, tag.pos.Column)
	}

	b.flushText()
	b.code = append(b.code, vm.Instruction{Op: vm.OpReturn})

	for _, idx := range b.fixups {
		label := b.code[idx].Target
		if label < 0 || label >= len(b.labels) || b.labels[label] < 0 {
			return nil, errors.NewInternalError(errors.ErrCodeInternal,
				fmt.Sprintf("unresolved jump label %d", label), nil).
				WithLocation(b.filename, b.code[idx].Pos.Line, b.code[idx].Pos.Column)
		}
		b.code[idx].Target = b.labels[label]
	}
	b.fixups = nil

	return &vm.Program{Filename: b.filename, Code: b.code}, nil
}

func (b *Buffer) flushText() {
	if b.text.Len() == 0 {
		return
	}
	b.code = append(b.code, vm.Instruction{
		Op:    vm.OpText,
		Text:  b.text.String(),
		Depth: len(b.open),
	})
	b.text = whitespace.New(b.mode)
}
