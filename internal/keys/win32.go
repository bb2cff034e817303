package keys

import "fmt"

var windowsNames = map[uint32]string{
	0x0D: "↩",
	0x09: "Tab",
	0x20: "Space",
	0x08: "⌫",
	0x1B: "Esc",
	0x2E: "Del",

	0xA0: Shift, 0xA1: Shift,
	0xA2: Ctrl, 0xA3: Ctrl,
	0xA4: Alt, 0xA5: Alt,
	0x5B: Win, 0x5C: Win,
	0x14: Caps,

	0x24: "Home", 0x23: "End", 0x21: "PgUp", 0x22: "PgDn",
	0x25: "←", 0x26: "↑", 0x27: "→", 0x28: "↓",

	// OEM symbols (US layout)
	0xBB: "=", 0xBD: "-", 0xDB: "[", 0xDD: "]", 0xDE: "'", 0xBA: ";",
	0xDC: "\\", 0xBC: ",", 0xBF: "/", 0xBE: ".", 0xC0: "`",
}

func init() {
	// A-Z and 0-9 share their ASCII values.
	for vk := uint32('A'); vk <= 'Z'; vk++ {
		windowsNames[vk] = string(rune(vk))
	}
	for vk := uint32('0'); vk <= '9'; vk++ {
		windowsNames[vk] = string(rune(vk))
	}
	for i := uint32(0); i < 12; i++ {
		windowsNames[0x70+i] = fmt.Sprintf("F%d", i+1)
	}
}

// Windows resolves a Windows virtual key code. Unknown codes resolve to
// "#<hex code>".
func Windows(vk uint32) string {
	if name, ok := windowsNames[vk]; ok {
		return name
	}
	return fmt.Sprintf("#%02X", vk)
}
