// Package inject types text into the focused window of whatever
// application has keyboard focus, as if the user typed it.
package inject

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// Delays holds the five pacing values in milliseconds.
type Delays struct {
	ClipboardUpdate      int
	KeyboardEventsSettle int
	TypingComplete       int
	CharacterInterval    int
	ShortOperation       int
}

// DefaultDelays returns the stock pacing.
func DefaultDelays() Delays {
	return Delays{
		ClipboardUpdate:      100,
		KeyboardEventsSettle: 300,
		TypingComplete:       500,
		CharacterInterval:    100,
		ShortOperation:       100,
	}
}

// keyboard abstracts the synthesis primitives so tests can observe
// injector behavior without touching the real input system.
type keyboard interface {
	paste() error
	typeChar(r rune) error
	backspace() error
	readClipboard() (string, error)
	writeClipboard(text string) error
}

// Injector emits text and backspaces into the focused window. Ephemeral
// status text is tracked by a running character counter so it can be
// erased exactly before final text lands.
type Injector struct {
	mu        sync.Mutex
	delays    Delays
	kb        keyboard
	ephemeral int
}

// New creates an injector using the system clipboard and keystroke
// synthesis.
func New(delays Delays) *Injector {
	return &Injector{delays: delays, kb: systemKeyboard{}}
}

// SetDelays swaps the pacing values. Safe between injections.
func (in *Injector) SetDelays(d Delays) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.delays = d
}

// TypeText makes text appear at the caret. Any outstanding ephemeral
// text is erased first. The clipboard-assisted paste path is primary;
// per-character synthesis is the fallback. Failures are logged and
// swallowed.
func (in *Injector) TypeText(text string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	// Let the chord's own key-up events drain before synthesizing
	// keys, or held modifiers combine with the injected keystrokes.
	sleepMS(in.delays.KeyboardEventsSettle)

	in.eraseEphemeralLocked()
	in.emitLocked(text)
}

// ShowEphemeral types transient status text and adds its length to the
// ephemeral counter so a later TypeText or ClearEphemeral removes it.
func (in *Injector) ShowEphemeral(text string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.emitLocked(text)
	in.ephemeral += len([]rune(text))
}

// ClearEphemeral erases all outstanding ephemeral text. The coordinator
// calls this on every transition back to Idle, so counter drift from
// user keystrokes flushes there rather than accumulating.
func (in *Injector) ClearEphemeral() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.eraseEphemeralLocked()
}

// EphemeralLen reports the outstanding ephemeral character count.
func (in *Injector) EphemeralLen() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ephemeral
}

// Backspace deletes n characters backward.
func (in *Injector) Backspace(n int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.backspaceLocked(n)
}

func (in *Injector) eraseEphemeralLocked() {
	if in.ephemeral > 0 {
		in.backspaceLocked(in.ephemeral)
		in.ephemeral = 0
	}
}

func (in *Injector) backspaceLocked(n int) {
	for i := 0; i < n; i++ {
		if err := in.kb.backspace(); err != nil {
			slog.Warn("backspace", "error", err)
			return
		}
		sleepMS(in.delays.ShortOperation / 10)
	}
}

func (in *Injector) emitLocked(text string) {
	if text == "" {
		return
	}
	if err := in.pasteLocked(text); err != nil {
		slog.Warn("clipboard paste failed, typing directly", "error", err)
		in.typeDirectLocked(text)
	}
}

// pasteLocked runs the clipboard-assisted path: save clipboard, set the
// payload, paste, wait for the target to consume it, restore.
func (in *Injector) pasteLocked(text string) error {
	saved, err := in.kb.readClipboard()
	if err != nil {
		return err
	}
	if err := in.kb.writeClipboard(text); err != nil {
		return err
	}
	sleepMS(in.delays.ClipboardUpdate)

	if err := in.kb.paste(); err != nil {
		// Put the user's clipboard back before falling through.
		if rerr := in.kb.writeClipboard(saved); rerr != nil {
			slog.Warn("restore clipboard", "error", rerr)
		}
		return err
	}
	sleepMS(in.delays.TypingComplete)

	if err := in.kb.writeClipboard(saved); err != nil {
		slog.Warn("restore clipboard", "error", err)
	}
	return nil
}

func (in *Injector) typeDirectLocked(text string) {
	for _, r := range text {
		if err := in.kb.typeChar(r); err != nil {
			slog.Warn("type char", "error", err)
			return
		}
		sleepMS(in.delays.CharacterInterval)
	}
}

func sleepMS(ms int) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

// systemKeyboard is the production keyboard backed by robotgo and the
// system clipboard.
type systemKeyboard struct{}

func (systemKeyboard) paste() error {
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return robotgo.KeyTap("v", mod)
}

func (systemKeyboard) typeChar(r rune) error {
	robotgo.TypeStr(string(r))
	return nil
}

func (systemKeyboard) backspace() error {
	return robotgo.KeyTap("backspace")
}

func (systemKeyboard) readClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (systemKeyboard) writeClipboard(text string) error {
	return clipboard.WriteAll(text)
}
