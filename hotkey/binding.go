// Package hotkey parses key-chord strings and matches them against the
// live pressed-key set fed by the global keyboard hook.
package hotkey

import (
	"fmt"
	"strings"

	hook "github.com/robotn/gohook"
)

// ErrInvalidHotkey is returned when a chord string cannot be parsed.
var ErrInvalidHotkey = fmt.Errorf("invalid hotkey")

// Binding is a parsed key chord: zero or more modifiers plus exactly one
// main key. Bindings are immutable after Parse; reconfiguration replaces
// them wholesale.
type Binding struct {
	modifiers []uint16
	main      uint16
	display   string
	codes     []uint16
}

// Parse parses a chord string of "+"-joined tokens, case-insensitive,
// with surrounding whitespace ignored ("Ctrl + Shift + F4").
// A chord must contain exactly one main key; modifiers alone are rejected.
func Parse(s string) (*Binding, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty chord", ErrInvalidHotkey)
	}

	seen := make(map[string]bool)
	var mods []string
	var mainCode uint16
	var mainDisplay string
	haveMain := false

	for _, raw := range strings.Split(s, "+") {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrInvalidHotkey, s)
		}

		if canon, ok := modifierAliases[token]; ok {
			if !seen[canon] {
				seen[canon] = true
				mods = append(mods, canon)
			}
			continue
		}

		code, display, ok := lookupMain(token)
		if !ok {
			return nil, fmt.Errorf("%w: unrecognized token %q", ErrInvalidHotkey, raw)
		}
		if haveMain {
			return nil, fmt.Errorf("%w: multiple main keys in %q", ErrInvalidHotkey, s)
		}
		mainCode = code
		mainDisplay = display
		haveMain = true
	}

	if !haveMain {
		return nil, fmt.Errorf("%w: no main key in %q", ErrInvalidHotkey, s)
	}

	b := &Binding{main: mainCode}

	// Canonical order for both the code list and the display string.
	for _, canon := range modifierOrder {
		if !seen[canon] {
			continue
		}
		code, ok := hook.Keycode[canon]
		if !ok {
			return nil, fmt.Errorf("%w: modifier %q has no keycode", ErrInvalidHotkey, canon)
		}
		b.modifiers = append(b.modifiers, code)
		if b.display != "" {
			b.display += " + "
		}
		b.display += modifierDisplay[canon]
	}

	if b.display != "" {
		b.display += " + "
	}
	b.display += mainDisplay

	b.codes = append(append([]uint16{}, b.modifiers...), b.main)
	return b, nil
}

// Matches reports whether every code in the chord is present in the
// pressed set. Extra held keys do not prevent a match.
func (b *Binding) Matches(pressed *PressedKeys) bool {
	for _, code := range b.codes {
		if !pressed.Has(code) {
			return false
		}
	}
	return true
}

// Codes returns the chord's key codes, modifiers first.
func (b *Binding) Codes() []uint16 {
	out := make([]uint16, len(b.codes))
	copy(out, b.codes)
	return out
}

// String returns the canonical display form: modifiers in the order
// Ctrl, Alt, Shift, Meta, then the main key.
func (b *Binding) String() string {
	return b.display
}
