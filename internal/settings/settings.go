// Package settings holds the behaviour settings consulted on every input
// event. Settings arrive as JSON from the host; anything unparseable falls
// back to defaults so capture never stops because of bad input.
package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
)

// Settings is an immutable snapshot of the combo behaviour flags.
type Settings struct {
	ComboMode            bool   `json:"comboMode"`
	ShowModifiersAlone   bool   `json:"showModifiersAlone"`
	ShowMouseClicks      bool   `json:"showMouseClicks"`
	ShowMouseClickCombos bool   `json:"showMouseClickCombos"`
	KeyFilter            string `json:"keyFilter"`
	KeyFilterEnabled     bool   `json:"keyFilterEnabled"`

	filter []string
}

// Default returns the settings used when a field is missing or the input
// cannot be parsed.
func Default() Settings {
	return Settings{
		ComboMode:            true,
		ShowModifiersAlone:   false,
		ShowMouseClicks:      false,
		ShowMouseClickCombos: true,
		KeyFilter:            "",
		KeyFilterEnabled:     true,
	}
}

// Parse decodes data over the defaults. Unknown fields are ignored, missing
// fields keep their default, and any decode error yields Default().
func Parse(data []byte) Settings {
	s := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			s = Default()
		}
	}
	s.filter = ParseFilter(s.KeyFilter)
	return s
}

// ParseFilter splits a comma or space separated key list into upper-cased
// tokens. An empty or blank list yields nil.
func ParseFilter(filter string) []string {
	fields := strings.FieldsFunc(filter, func(r rune) bool {
		return r == ',' || r == ' '
	})
	var tokens []string
	for _, f := range fields {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Allows reports whether the key filter lets name through. A disabled or
// empty filter allows everything.
func (s Settings) Allows(name string) bool {
	if !s.KeyFilterEnabled {
		return true
	}
	tokens := s.filter
	if tokens == nil {
		// Settings built as a literal rather than through Parse.
		tokens = ParseFilter(s.KeyFilter)
	}
	if len(tokens) == 0 {
		return true
	}
	upper := strings.ToUpper(name)
	for _, t := range tokens {
		if t == upper {
			return true
		}
	}
	return false
}

// Snapshot pairs parsed settings with the raw JSON they came from. Raw is nil
// when the input was not a JSON object.
type Snapshot struct {
	Settings Settings
	Raw      json.RawMessage
}

// Store publishes the current snapshot. Readers on the input path never
// block: updates swap a pointer to a freshly parsed snapshot.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

// NewStore returns a store holding the defaults.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{Settings: Parse(nil)})
	return s
}

// Update parses raw and makes it current.
func (s *Store) Update(raw []byte) Snapshot {
	snap := &Snapshot{Settings: Parse(raw)}
	if IsObject(raw) {
		snap.Raw = append(json.RawMessage(nil), raw...)
	}
	s.cur.Store(snap)
	return *snap
}

// Current returns the settings in effect.
func (s *Store) Current() Settings {
	return s.cur.Load().Settings
}

// Snapshot returns the current snapshot including the raw JSON.
func (s *Store) Snapshot() Snapshot {
	return *s.cur.Load()
}
