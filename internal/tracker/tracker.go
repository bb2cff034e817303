// Package tracker keeps the set of keys currently believed to be held down.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"keyoverlay/internal/keys"
)

// Tracker owns the held-key set. Every method takes the lock for the
// duration of the mutation only and returns a copy of the set, so callers
// can synthesize and hand off results without holding it.
type Tracker struct {
	mu   sync.Mutex
	held keys.Set
	last time.Time
	meta string

	now func() time.Time
}

// New creates an empty tracker. meta is the Meta spelling used when
// modifiers arrive as a flag bitset.
func New(meta string) *Tracker {
	return &Tracker{
		held: keys.NewSet(),
		meta: meta,
		now:  time.Now,
	}
}

// KeyDown records a press. fresh is false when name is a modifier that is
// already held: auto-repeat, or the same press already reported through
// SetModifiers. Such presses must not be emitted again.
func (t *Tracker) KeyDown(name string) (held keys.Set, fresh bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.now()
	if keys.IsModifier(name) && t.held.Has(name) {
		return t.held.Clone(), false
	}
	t.held.Add(name)
	return t.held.Clone(), true
}

// KeyUp removes name.
func (t *Tracker) KeyUp(name string) keys.Set {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.now()
	t.held.Remove(name)
	return t.held.Clone()
}

// SetModifiers replaces the four flag-reported modifiers with m and returns
// the ones that went from released to pressed, in display order. Releases
// are applied but never reported.
func (t *Tracker) SetModifiers(m keys.Modifiers) (held keys.Set, pressed []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.now()

	var before keys.Modifiers
	for _, name := range keys.MetaNames {
		if t.held.Has(name) {
			before |= keys.ModMeta
		}
		t.held.Remove(name)
	}
	for _, f := range []struct {
		name string
		bit  keys.Modifiers
	}{{keys.Ctrl, keys.ModCtrl}, {keys.Alt, keys.ModAlt}, {keys.Shift, keys.ModShift}} {
		if t.held.Has(f.name) {
			before |= f.bit
		}
		t.held.Remove(f.name)
	}

	for _, name := range m.Names(t.meta) {
		t.held.Add(name)
	}
	pressed = (m &^ before).Names(t.meta)
	return t.held.Clone(), pressed
}

// Held returns a copy of the held set.
func (t *Tracker) Held() keys.Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held.Clone()
}

// Clear empties the held set.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.held = keys.NewSet()
	t.mu.Unlock()
}

// Reap clears the held set when nothing happened for longer than idle. It
// reports whether anything was cleared.
func (t *Tracker) Reap(now time.Time, idle time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.held) == 0 || now.Sub(t.last) <= idle {
		return false
	}
	t.held = keys.NewSet()
	return true
}

// RunReaper calls Reap every interval until ctx is done.
func (t *Tracker) RunReaper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.Reap(t.now(), idle) {
				log.Debug().Str("component", "tracker").Dur("idle", idle).Msg("Cleared stale held keys")
			}
		}
	}
}
