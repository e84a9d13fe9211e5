package hotkey

import (
	"log/slog"
	"time"

	hook "github.com/robotn/gohook"
)

// tickInterval drives debounce re-checks while a chord is held.
const tickInterval = 50 * time.Millisecond

// Listener runs the global keyboard hook on a dedicated goroutine and
// maintains the pressed-key set. The handler is invoked on the listener
// goroutine after every key event and on a periodic tick, so it must not
// block; it posts work to the coordinator's workers instead.
type Listener struct {
	pressed *PressedKeys
	handler func(pressed *PressedKeys)
	stop    chan struct{}
	done    chan struct{}
}

// NewListener creates a listener. handler receives the live pressed-key
// set after every press, release, and tick.
func NewListener(handler func(pressed *PressedKeys)) *Listener {
	return &Listener{
		pressed: NewPressedKeys(),
		handler: handler,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Pressed returns the live pressed-key set.
func (l *Listener) Pressed() *PressedKeys {
	return l.pressed
}

// Start begins consuming hook events. It returns immediately; events are
// processed on a background goroutine until Stop.
func (l *Listener) Start() {
	events := hook.Start()
	go l.run(events)
}

// Stop tears down the hook and waits for the event goroutine to exit.
func (l *Listener) Stop() {
	close(l.stop)
	hook.End()
	<-l.done
}

func (l *Listener) run(events chan hook.Event) {
	defer close(l.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			// Re-check held chords so the trigger delay can elapse
			// without further key events arriving.
			l.handler(l.pressed)
		case ev, ok := <-events:
			if !ok {
				slog.Info("keyboard hook channel closed")
				return
			}
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				l.pressed.Press(ev.Keycode)
			case hook.KeyUp:
				l.pressed.Release(ev.Keycode)
			default:
				continue
			}
			l.handler(l.pressed)
		}
	}
}
