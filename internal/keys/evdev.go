package keys

import "strconv"

// linuxNames maps evdev key codes (linux/input-event-codes.h).
var linuxNames = map[uint16]string{
	1: "Esc", 14: "⌫", 15: "Tab", 28: "↩", 57: "Space", 111: "Del",

	2: "1", 3: "2", 4: "3", 5: "4", 6: "5", 7: "6", 8: "7", 9: "8", 10: "9", 11: "0",
	12: "-", 13: "=", 26: "[", 27: "]", 39: ";", 40: "'", 41: "`", 43: "\\",
	51: ",", 52: ".", 53: "/",

	16: "Q", 17: "W", 18: "E", 19: "R", 20: "T", 21: "Y", 22: "U", 23: "I", 24: "O", 25: "P",
	30: "A", 31: "S", 32: "D", 33: "F", 34: "G", 35: "H", 36: "J", 37: "K", 38: "L",
	44: "Z", 45: "X", 46: "C", 47: "V", 48: "B", 49: "N", 50: "M",

	29: Ctrl, 97: Ctrl,
	42: Shift, 54: Shift,
	56: Alt, 100: Alt,
	125: Meta, 126: Meta,
	58: Caps,
	464: Fn,

	59: "F1", 60: "F2", 61: "F3", 62: "F4", 63: "F5", 64: "F6",
	65: "F7", 66: "F8", 67: "F9", 68: "F10", 87: "F11", 88: "F12",

	102: "Home", 104: "PgUp", 107: "End", 109: "PgDn",
	103: "↑", 105: "←", 106: "→", 108: "↓",
}

// Linux resolves an evdev key code. Unknown codes resolve to "#<code>".
func Linux(code uint16) string {
	if name, ok := linuxNames[code]; ok {
		return name
	}
	return "#" + strconv.FormatUint(uint64(code), 10)
}
