// Package keys maps native key and button codes to stable display names and
// models the set of keys currently held down.
package keys

// Display names shared by every platform table.
const (
	Shift = "Shift"
	Ctrl  = "Ctrl"
	Alt   = "Alt"
	Caps  = "Caps"
	Fn    = "Fn"

	// Meta is spelled differently per platform.
	Command = "⌘"
	Win     = "Win"
	Meta    = "Meta"

	LeftClick  = "LClick"
	RightClick = "RClick"
)

// MetaNames lists every spelling of the Meta modifier, in lookup order.
var MetaNames = []string{Command, Win, Meta}

// IsModifier reports whether name is a pure modifier: a key that combines
// with others rather than standing alone.
func IsModifier(name string) bool {
	switch name {
	case Command, Win, Meta, Shift, Ctrl, Alt, Caps, Fn:
		return true
	}
	return false
}

// IsMeta reports whether name is one of the Meta spellings.
func IsMeta(name string) bool {
	return name == Command || name == Win || name == Meta
}

// Set is a set of key names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name.
func (s Set) Add(name string) { s[name] = struct{}{} }

// Remove deletes name.
func (s Set) Remove(name string) { delete(s, name) }

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// HasModifier reports whether any pure modifier is in the set.
func (s Set) HasModifier() bool {
	for k := range s {
		if IsModifier(k) {
			return true
		}
	}
	return false
}

// Modifiers is the bitset of the four flag-reported modifiers.
type Modifiers uint8

const (
	ModMeta Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModShift
)

// Has reports whether every bit of f is set.
func (m Modifiers) Has(f Modifiers) bool { return m&f == f }

// Names returns the set modifiers in display order, using meta as the Meta
// spelling.
func (m Modifiers) Names(meta string) []string {
	var out []string
	if m.Has(ModMeta) {
		out = append(out, meta)
	}
	if m.Has(ModCtrl) {
		out = append(out, Ctrl)
	}
	if m.Has(ModAlt) {
		out = append(out, Alt)
	}
	if m.Has(ModShift) {
		out = append(out, Shift)
	}
	return out
}
