package settings

import (
	"bytes"
	"encoding/json"
)

// DefaultFilter is the key filter shipped with the stock overlay presets.
const DefaultFilter = "Q,W,E,R,1,2,3,4,5,6"

// DefaultOverlay returns the full overlay settings document used when nothing
// has been persisted yet. Display fields are opaque to capture and only
// forwarded to subscribers.
func DefaultOverlay() map[string]any {
	return map[string]any{
		"fontFamily":           "monospace",
		"fontSize":             28,
		"textColor":            "#ffffff",
		"borderColor":          "#ffffff",
		"backgroundColor":      "rgba(0,0,0,0.35)",
		"borderWidth":          1,
		"borderRadius":         8,
		"backgroundBlur":       4,
		"textShadow":           false,
		"textShadowColor":      "#000000",
		"keyDisplayDuration":   1200,
		"showModifiersAlone":   false,
		"showMouseClicks":      false,
		"showMouseClickCombos": true,
		"comboMode":            true,
		"keyFilter":            DefaultFilter,
		"keyFilterEnabled":     true,
		"layout":               "horizontal",
		"animationStyle":       "pop",
		"maxVisibleKeys":       5,
		"preset":               "minimal",
	}
}

// Migrate merges persisted overlay settings over DefaultOverlay and applies
// the upgrades older saved files need: an empty key filter is restored to the
// default, mouse-click combos are switched on and bare clicks off. Invalid
// input yields the defaults.
func Migrate(saved []byte) []byte {
	merged := DefaultOverlay()

	var stored map[string]any
	if len(saved) > 0 && json.Unmarshal(saved, &stored) == nil {
		for k, v := range stored {
			merged[k] = v
		}
	}

	if f, _ := merged["keyFilter"].(string); f == "" {
		merged["keyFilter"] = DefaultFilter
		merged["keyFilterEnabled"] = true
	}
	merged["showMouseClickCombos"] = true
	merged["showMouseClicks"] = false

	out, err := json.Marshal(merged)
	if err != nil {
		out, _ = json.Marshal(DefaultOverlay())
	}
	return out
}

// IsObject reports whether raw is a single JSON object.
func IsObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{' && json.Valid(raw)
}

// Merge applies the fields of patch over base and returns the combined
// document. A nil or unusable base starts from DefaultOverlay. ok is false
// when patch is not a JSON object.
func Merge(base, patch []byte) (merged []byte, ok bool) {
	var fields map[string]any
	if !IsObject(patch) || json.Unmarshal(patch, &fields) != nil {
		return nil, false
	}

	doc := DefaultOverlay()
	if IsObject(base) {
		var current map[string]any
		if json.Unmarshal(base, &current) == nil {
			doc = current
		}
	}
	for k, v := range fields {
		doc[k] = v
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, false
	}
	return out, true
}
