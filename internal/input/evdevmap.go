package input

import "keyoverlay/internal/keys"

// evdev button codes reported as mouse clicks.
const (
	btnLeft  = 0x110
	btnRight = 0x111

	btnFirst = 0x100
	btnLast  = 0x15f
)

// evdevEvent converts an EV_KEY event into an Event. Value is 0 for release,
// 1 for press and 2 for auto-repeat. Buttons other than left and right, and
// button releases, are dropped.
func evdevEvent(code uint16, value int32) (Event, bool) {
	switch {
	case code == btnLeft || code == btnRight:
		if value != 1 {
			return Event{}, false
		}
		name := keys.LeftClick
		if code == btnRight {
			name = keys.RightClick
		}
		return Event{Kind: MouseDown, Key: name}, true
	case code >= btnFirst && code <= btnLast:
		return Event{}, false
	}

	kind := KeyDown
	if value == 0 {
		kind = KeyUp
	}
	return Event{Kind: kind, Key: keys.Linux(code)}, true
}
