// Package whitespace accumulates characters under a whitespace policy.
//
// Buckets are used while scanning literal text and expression substrings so
// that template-source indentation does not leak into rendered output except
// where the literal content intends it.
package whitespace

import (
	"fmt"
	"strings"
	"unicode"
)

// Mode is the whitespace policy of a Bucket.
type Mode int

const (
	// All keeps every character.
	All Mode = iota
	// Controlled collapses a run of whitespace to its first character.
	Controlled
	// None drops every whitespace character.
	None
)

// String returns the string representation of the mode
func (m Mode) String() string {
	switch m {
	case All:
		return "all"
	case Controlled:
		return "controlled"
	case None:
		return "none"
	default:
		return "unknown"
	}
}

// ParseMode parses the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "controlled", "collapse":
		return Controlled, nil
	case "none", "strip":
		return None, nil
	}
	return All, fmt.Errorf("unknown whitespace mode %q", s)
}

// Bucket accumulates runes under a Mode.
type Bucket struct {
	mode Mode
	buf  strings.Builder
	last rune
	size int
}

// New creates an empty bucket.
func New(mode Mode) *Bucket {
	return &Bucket{mode: mode, last: -1}
}

// Mode returns the bucket policy.
func (b *Bucket) Mode() Mode {
	return b.mode
}

// Feed offers r to the bucket.
func (b *Bucket) Feed(r rune) {
	if unicode.IsSpace(r) {
		switch b.mode {
		case None:
			return
		case Controlled:
			if b.last != -1 && unicode.IsSpace(b.last) {
				return
			}
		}
	}
	b.buf.WriteRune(r)
	b.last = r
	b.size++
}

// FeedString offers every rune of s.
func (b *Bucket) FeedString(s string) {
	for _, r := range s {
		b.Feed(r)
	}
}

// FeedRaw appends s without applying the policy. It is used for string
// literals inside expressions.
func (b *Bucket) FeedRaw(s string) {
	for _, r := range s {
		b.buf.WriteRune(r)
		b.last = r
		b.size++
	}
}

// Len returns the number of runes emitted so far.
func (b *Bucket) Len() int {
	return b.size
}

// String returns the accumulated text.
func (b *Bucket) String() string {
	return b.buf.String()
}

// Reset empties the bucket and keeps its mode.
func (b *Bucket) Reset() {
	b.buf.Reset()
	b.last = -1
	b.size = 0
}
