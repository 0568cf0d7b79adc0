//go:build property

package watcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebouncerProperties checks that a burst of events collapses into one
// batch holding each path once.
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("burst collapses into unique sorted paths", prop.ForAll(
		func(ids []int) bool {
			if len(ids) == 0 {
				return true
			}
			d := NewDebouncer(time.Hour)
			defer d.Stop()

			unique := map[string]bool{}
			for _, id := range ids {
				path := fmt.Sprintf("t%02d.edge", id)
				unique[path] = true
				d.Add(ChangeEvent{Path: path})
			}
			d.Flush()

			events := <-d.Output()
			if len(events) != len(unique) {
				return false
			}
			for i := 1; i < len(events); i++ {
				if events[i-1].Path >= events[i].Path {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)),
	))

	properties.TestingRun(t)
}
