// Package combo turns the held-key set and a triggering key into the text
// shown on the overlay, e.g. "Ctrl+Shift+A".
package combo

import (
	"strings"

	"keyoverlay/internal/keys"
	"keyoverlay/internal/settings"
)

// Separator joins the parts of a combo.
const Separator = "+"

// unknown is never worth showing on its own.
const unknown = "?"

// modifiers returns the held modifiers in display order: Meta, Ctrl, Alt,
// Shift. trigger is counted as held when it is itself a modifier.
func modifiers(held keys.Set, trigger string) []string {
	has := func(name string) bool {
		return name == trigger || held.Has(name)
	}

	parts := make([]string, 0, 4)
	for _, m := range keys.MetaNames {
		if has(m) {
			parts = append(parts, m)
			break
		}
	}
	for _, m := range []string{keys.Ctrl, keys.Alt, keys.Shift} {
		if has(m) {
			parts = append(parts, m)
		}
	}
	return parts
}

// Build joins the held modifiers and trigger. A modifier trigger takes its
// own slot in the fixed order; Caps and Fn have no slot and go last.
func Build(held keys.Set, trigger string) string {
	if keys.IsModifier(trigger) {
		parts := modifiers(held, trigger)
		if trigger == keys.Caps || trigger == keys.Fn {
			parts = append(parts, trigger)
		}
		return strings.Join(parts, Separator)
	}

	parts := modifiers(held, "")
	parts = append(parts, trigger)
	return strings.Join(parts, Separator)
}

// Key decides what a key press shows. ok is false when the press is
// suppressed.
func Key(held keys.Set, trigger string, s settings.Settings) (string, bool) {
	if keys.IsModifier(trigger) && !s.ShowModifiersAlone {
		return "", false
	}
	if !s.Allows(trigger) {
		return "", false
	}

	out := trigger
	if s.ComboMode {
		out = Build(held, trigger)
	}
	return out, valid(out)
}

// Click decides what a mouse button press shows. With a modifier held the
// click is shown as a combo when mouse-click combos are on; without one the
// bare button name is shown when plain clicks are on.
func Click(held keys.Set, button string, s settings.Settings) (string, bool) {
	hasModifier := held.HasModifier()
	switch {
	case hasModifier && s.ShowMouseClickCombos:
		out := Build(held, button)
		return out, valid(out)
	case !hasModifier && s.ShowMouseClicks:
		return button, valid(button)
	}
	return "", false
}

func valid(out string) bool {
	return out != "" && out != unknown
}
