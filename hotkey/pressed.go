package hotkey

import "sync"

// PressedKeys tracks the set of key codes currently held. It is mutated
// only by the listener goroutine; the mutex covers reads from the
// coordinator when it inspects the set outside the event callback.
type PressedKeys struct {
	mu   sync.Mutex
	keys map[uint16]bool
}

// NewPressedKeys returns an empty pressed-key set.
func NewPressedKeys() *PressedKeys {
	return &PressedKeys{keys: make(map[uint16]bool)}
}

// Press records a key-down event. Repeat events for a held key are
// idempotent.
func (p *PressedKeys) Press(code uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[NormalizeCode(code)] = true
}

// Release records a key-up event.
func (p *PressedKeys) Release(code uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.keys, NormalizeCode(code))
}

// Has reports whether the code is currently held.
func (p *PressedKeys) Has(code uint16) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[NormalizeCode(code)]
}

// Empty reports whether no key is held.
func (p *PressedKeys) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys) == 0
}

// Clear empties the set, as when focus is lost and key-up events may
// never arrive.
func (p *PressedKeys) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.keys)
}
