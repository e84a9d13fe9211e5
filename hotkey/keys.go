package hotkey

import (
	"strings"

	hook "github.com/robotn/gohook"
)

// Modifier tokens normalize to a canonical name before keycode lookup.
// Display order is fixed: Ctrl, Alt, Shift, Meta.
var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"meta":    "cmd",
	"cmd":     "cmd",
	"win":     "cmd",
}

var modifierDisplay = map[string]string{
	"ctrl":  "Ctrl",
	"alt":   "Alt",
	"shift": "Shift",
	"cmd":   "Meta",
}

// modifierOrder is the canonical display order.
var modifierOrder = []string{"ctrl", "alt", "shift", "cmd"}

// namedKeys maps accepted main-key tokens to gohook keycode-table names.
var namedKeys = map[string]string{
	"space":     "space",
	"enter":     "enter",
	"return":    "enter",
	"escape":    "esc",
	"esc":       "esc",
	"tab":       "tab",
	"backspace": "backspace",
	"delete":    "delete",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
	"home":      "home",
	"end":       "end",
	"pageup":    "pageup",
	"pagedown":  "pagedown",
}

var namedKeyDisplay = map[string]string{
	"space":     "Space",
	"enter":     "Enter",
	"esc":       "Escape",
	"tab":       "Tab",
	"backspace": "Backspace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
}

// rightVariants folds right-hand modifier codes into their left-hand
// counterparts so a chord matches regardless of which side is held.
var rightVariants = map[uint16]uint16{}

func init() {
	for r, l := range map[string]string{
		"rctrl":  "ctrl",
		"ralt":   "alt",
		"rshift": "shift",
		"rcmd":   "cmd",
	} {
		rc, ok := hook.Keycode[r]
		if !ok {
			continue
		}
		if lc, ok := hook.Keycode[l]; ok {
			rightVariants[rc] = lc
		}
	}
}

// NormalizeCode folds side-specific modifier codes into the canonical
// code used by chord matching.
func NormalizeCode(code uint16) uint16 {
	if c, ok := rightVariants[code]; ok {
		return c
	}
	return code
}

// lookupMain resolves a non-modifier token to its keycode and display name.
func lookupMain(token string) (uint16, string, bool) {
	if name, ok := namedKeys[token]; ok {
		code, ok := hook.Keycode[name]
		return code, namedKeyDisplay[name], ok
	}

	// Single letters and digits.
	if len(token) == 1 {
		c := token[0]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			code, ok := hook.Keycode[token]
			return code, strings.ToUpper(token), ok
		}
	}

	// Function keys F1-F12.
	if len(token) >= 2 && len(token) <= 3 && token[0] == 'f' {
		if code, ok := hook.Keycode[token]; ok {
			switch token {
			case "f1", "f2", "f3", "f4", "f5", "f6",
				"f7", "f8", "f9", "f10", "f11", "f12":
				return code, "F" + token[1:], true
			}
		}
	}

	return 0, "", false
}
