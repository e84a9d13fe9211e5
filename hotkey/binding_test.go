package hotkey

import (
	"errors"
	"testing"
)

func TestParseSimpleKey(t *testing.T) {
	b, err := Parse("F4")
	if err != nil {
		t.Fatalf("Parse(F4): %v", err)
	}
	if b.String() != "F4" {
		t.Errorf("display = %q, want F4", b.String())
	}
	if len(b.Codes()) != 1 {
		t.Errorf("codes = %v, want one code", b.Codes())
	}
}

func TestParseWithModifiers(t *testing.T) {
	b, err := Parse("Ctrl + Shift + F4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if b.String() != "Ctrl + Shift + F4" {
		t.Errorf("display = %q, want Ctrl + Shift + F4", b.String())
	}
	if len(b.Codes()) != 3 {
		t.Errorf("codes = %v, want three codes", b.Codes())
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	a, err := Parse("ctrl+shift+f4")
	if err != nil {
		t.Fatalf("Parse lowercase: %v", err)
	}
	b, err := Parse("CTRL + SHIFT + F4")
	if err != nil {
		t.Fatalf("Parse uppercase: %v", err)
	}
	if a.String() != b.String() {
		t.Errorf("case-sensitive display: %q vs %q", a.String(), b.String())
	}
}

func TestParseCanonicalModifierOrder(t *testing.T) {
	// Modifiers given out of order still display Ctrl, Alt, Shift, Meta.
	b, err := Parse("shift + meta + alt + ctrl + a")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := b.String(); got != "Ctrl + Alt + Shift + Meta + A" {
		t.Errorf("display = %q", got)
	}
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Control + A", "Ctrl + A"},
		{"Win + Space", "Meta + Space"},
		{"Cmd + Return", "Meta + Enter"},
		{"Esc", "Escape"},
	}
	for _, tt := range tests {
		b, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if b.String() != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.in, b.String(), tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	chords := []string{"F4", "Ctrl + F4", "Ctrl + Alt + Shift + Meta + Z", "Shift + Space", "Alt + PageDown"}
	for _, s := range chords {
		b, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		again, err := Parse(b.String())
		if err != nil {
			t.Fatalf("re-Parse(%q): %v", b.String(), err)
		}
		if again.String() != b.String() {
			t.Errorf("round trip %q -> %q -> %q", s, b.String(), again.String())
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{"", "   ", "Ctrl", "Ctrl + Shift", "Ctrl + Bogus", "+", "Ctrl +"} {
		if _, err := Parse(s); !errors.Is(err, ErrInvalidHotkey) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidHotkey", s, err)
		}
	}
}

func TestMatches(t *testing.T) {
	b, err := Parse("Ctrl + F4")
	if err != nil {
		t.Fatal(err)
	}

	pressed := NewPressedKeys()
	for _, code := range b.Codes() {
		pressed.Press(code)
	}
	if !b.Matches(pressed) {
		t.Error("full chord should match")
	}

	// Removing any single code breaks the match.
	for _, code := range b.Codes() {
		pressed.Release(code)
		if b.Matches(pressed) {
			t.Errorf("chord matched with code %d released", code)
		}
		pressed.Press(code)
	}

	// Extra held keys do not prevent a match.
	extra, _ := Parse("Z")
	pressed.Press(extra.Codes()[0])
	if !b.Matches(pressed) {
		t.Error("chord should match with extra key held")
	}
}

func TestMatchOrderInsensitive(t *testing.T) {
	b, err := Parse("Ctrl + Shift + A")
	if err != nil {
		t.Fatal(err)
	}
	codes := b.Codes()

	// Press in reverse order.
	pressed := NewPressedKeys()
	for i := len(codes) - 1; i >= 0; i-- {
		pressed.Press(codes[i])
	}
	if !b.Matches(pressed) {
		t.Error("match should not depend on press order")
	}
}

func TestPressedKeysRepeatIdempotent(t *testing.T) {
	p := NewPressedKeys()
	p.Press(42)
	p.Press(42)
	p.Press(42)
	p.Release(42)
	if !p.Empty() {
		t.Error("repeat presses should not require repeat releases")
	}
}

func TestPressedKeysClear(t *testing.T) {
	p := NewPressedKeys()
	p.Press(1)
	p.Press(2)
	p.Clear()
	if !p.Empty() {
		t.Error("Clear should empty the set")
	}
}
