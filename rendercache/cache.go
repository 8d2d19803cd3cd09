package rendercache

import (
	"fmt"
	"log/slog"
	"slices"

	coil "github.com/quyse/coil-core-sub001"
)

type entry struct {
	key  Key
	knob Knob
}

// Cache queues knobs until Flush. A Cache is reused across frames and must
// be driven by one goroutine at a time.
type Cache struct {
	entries []entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Render queues k. Its key is taken now.
func (c *Cache) Render(k Knob) {
	c.entries = append(c.entries, entry{key: k.Key(), knob: k})
}

// Len returns the number of queued knobs.
func (c *Cache) Len() int { return len(c.entries) }

// Reset drops the queued knobs without applying them.
func (c *Cache) Reset() {
	clear(c.entries)
	c.entries = c.entries[:0]
}

// Flush sorts the queued knobs by key and applies them to ctx, ending an
// instance after each one, then flushes ctx. The queue is empty afterwards,
// also on error.
func (c *Cache) Flush(ctx Context) error {
	defer c.Reset()
	if len(c.entries) == 0 {
		return ctx.Flush()
	}
	slices.SortStableFunc(c.entries, func(a, b entry) int { return a.key.Compare(b.key) })

	applied := 0
	for i, e := range c.entries {
		var err error
		if i == 0 {
			err = e.knob.Apply(ctx)
		} else {
			var changed bool
			changed, err = e.knob.ApplyDiff(ctx, c.entries[i-1].knob)
			if changed {
				applied++
			}
		}
		if err != nil {
			return fmt.Errorf("rendercache: flush: %w", err)
		}
		if err := ctx.EndInstance(); err != nil {
			return fmt.Errorf("rendercache: flush: %w", err)
		}
	}
	coil.Logger().Debug("rendercache: flushed",
		slog.Int("knobs", len(c.entries)),
		slog.Int("state_changes", applied+1))
	return ctx.Flush()
}
