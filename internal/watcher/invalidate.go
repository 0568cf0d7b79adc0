package watcher

import (
	"context"
	"sort"

	"github.com/anhnt/edge/internal/logging"
)

// Cache is the part of an edge instance the watcher invalidates.
type Cache interface {
	TemplateFor(file string) (string, bool)
	Invalidate(names ...string)
}

// Templates maps changed files to template names, skipping files outside the
// mounted disks. Names are sorted and unique.
func Templates(c Cache, events []ChangeEvent) []string {
	seen := make(map[string]bool, len(events))
	names := make([]string, 0, len(events))
	for _, event := range events {
		name, ok := c.TemplateFor(event.Path)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InvalidateHandler drops the compiled programs of changed templates. Since
// any template may include or render a changed one, the whole cache is
// cleared whenever a mounted template changes. notify, when set, receives
// the changed names afterwards.
func InvalidateHandler(c Cache, logger logging.Logger, notify func(ctx context.Context, names []string)) ChangeHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return func(ctx context.Context, events []ChangeEvent) error {
		names := Templates(c, events)
		if len(names) == 0 {
			return nil
		}
		c.Invalidate()
		logger.Info(ctx, "templates changed", "templates", names)
		if notify != nil {
			notify(ctx, names)
		}
		return nil
	}
}
