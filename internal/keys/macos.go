package keys

import "strconv"

// darwinNames maps macOS virtual key codes (CGKeyCode, ANSI layout positions).
var darwinNames = map[uint16]string{
	// Letters
	0: "A", 1: "S", 2: "D", 3: "F", 4: "H", 5: "G", 6: "Z", 7: "X",
	8: "C", 9: "V", 11: "B", 12: "Q", 13: "W", 14: "E", 15: "R", 16: "Y",
	17: "T", 31: "O", 32: "U", 34: "I", 35: "P", 37: "L", 38: "J", 40: "K",
	45: "N", 46: "M",

	// Digits
	18: "1", 19: "2", 20: "3", 21: "4", 23: "5", 22: "6", 26: "7", 28: "8",
	25: "9", 29: "0",

	// Symbols
	24: "=", 27: "-", 30: "]", 33: "[", 39: "'", 41: ";", 42: "\\", 43: ",",
	44: "/", 47: ".", 50: "`",

	36: "↩", 48: "Tab", 49: "Space", 51: "⌫", 53: "Esc",

	54: Command, 55: Command,
	56: Shift, 60: Shift,
	57: Caps,
	58: Alt, 61: Alt,
	59: Ctrl, 62: Ctrl,
	63: Fn,

	122: "F1", 120: "F2", 99: "F3", 118: "F4", 96: "F5", 97: "F6",
	98: "F7", 100: "F8", 101: "F9", 109: "F10", 103: "F11", 111: "F12",

	115: "Home", 116: "PgUp", 117: "Del", 119: "End", 121: "PgDn",
	123: "←", 124: "→", 125: "↓", 126: "↑",
}

// Darwin resolves a macOS virtual key code. Unknown codes resolve to "#<code>".
func Darwin(code uint16) string {
	if name, ok := darwinNames[code]; ok {
		return name
	}
	return "#" + strconv.FormatUint(uint64(code), 10)
}
