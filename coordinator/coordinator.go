// Package coordinator owns the push-to-talk state machine. It turns
// key-set updates from the hotkey listener into recording sessions,
// hands captured audio to an ASR backend on a worker goroutine, and
// injects the recognized text into the focused application.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"

	"voxkey/asr"
	"voxkey/audiocapture"
	"voxkey/hotkey"
	"voxkey/store"
	"voxkey/whisper"
)

// ErrBusy is returned when a reconfiguration is attempted while a
// session is in flight. Callers retry once the coordinator is idle.
var ErrBusy = errors.New("coordinator busy")

// State is the coordinator's lifecycle phase. All transitions happen
// under the coordinator mutex; hot states reject new sessions.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateRecordingTranslate
	StateProcessing
	StateTranslating
	StateError
	StateWarning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateRecordingTranslate:
		return "recording-translate"
	case StateProcessing:
		return "processing"
	case StateTranslating:
		return "translating"
	case StateError:
		return "error"
	case StateWarning:
		return "warning"
	}
	return "unknown"
}

// defaultTriggerDelay gates chord activation when anti-mistouch is on.
const defaultTriggerDelay = 300 * time.Millisecond

// defaultErrorDisplay is how long error feedback stays on screen.
const defaultErrorDisplay = 2 * time.Second

// Capturer is the slice of audiocapture.Capture the coordinator uses.
type Capturer interface {
	Start() error
	Stop() (*audiocapture.Snapshot, error)
	Abort()
	IsActive() bool
}

// Typist is the slice of inject.Injector the coordinator uses.
type Typist interface {
	TypeText(text string)
	ShowEphemeral(text string)
	ClearEphemeral()
}

// HistoryWriter persists completed session records.
type HistoryWriter interface {
	AddHistoryRecord(rec *store.HistoryRecord) error
}

// Events are optional callbacks fired as sessions progress. Nil
// callbacks are skipped. OnStateChange fires under the coordinator
// mutex and must not call back in.
type Events struct {
	OnStateChange   func(s State)
	OnResult        func(text string, elapsed time.Duration)
	OnHistory       func(rec *store.HistoryRecord)
	OnServiceStatus func(healthy bool)
}

// Config carries the hotkey bindings and session policies.
type Config struct {
	TranscribeBinding *hotkey.Binding
	TranslateBinding  *hotkey.Binding

	TriggerDelay time.Duration
	AntiMistouch bool
	ErrorDisplay time.Duration

	SaveWAVFiles bool
	AudioDir     string

	// ProcessorType labels history rows, e.g. "local" or "cloud".
	ProcessorType string

	// OptimizeResult collapses runs of whitespace in recognized text.
	OptimizeResult bool

	// Notify raises a desktop notification when a session fails.
	Notify bool
}

// Coordinator drives sessions from armed chord to injected text.
type Coordinator struct {
	mu      sync.Mutex
	state   State
	cfg     Config
	backend asr.Backend

	capture Capturer
	typist  Typist
	history HistoryWriter
	events  Events

	// generation invalidates in-flight workers when a session is
	// torn down underneath them.
	generation uint64

	// injectMu is held across the liveness check and the keystroke
	// injection so Stop can fence out a worker about to type.
	injectMu sync.Mutex

	armed     bool
	armedAt   time.Time
	armedMode asr.Mode
	fired     bool

	savedClipboard string
	clipboardSaved bool
	lastHealth     *bool

	readClipboard  func() (string, error)
	writeClipboard func(string) error
	notify         func(title, message string) error
}

// New builds a coordinator in the Idle state. Zero TriggerDelay and
// ErrorDisplay fall back to the defaults.
func New(cfg Config, capture Capturer, typist Typist, backend asr.Backend, history HistoryWriter, events Events) *Coordinator {
	if cfg.TriggerDelay <= 0 {
		cfg.TriggerDelay = defaultTriggerDelay
	}
	if cfg.ErrorDisplay <= 0 {
		cfg.ErrorDisplay = defaultErrorDisplay
	}
	return &Coordinator{
		state:          StateIdle,
		cfg:            cfg,
		backend:        backend,
		capture:        capture,
		typist:         typist,
		history:        history,
		events:         events,
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// State reports the current phase.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetBackend swaps the ASR backend. Only allowed while no session is
// in flight.
func (c *Coordinator) SetBackend(b asr.Backend) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateWarning {
		return ErrBusy
	}
	c.backend = b
	return nil
}

// SetConfig replaces bindings and policies. Only allowed while no
// session is in flight.
func (c *Coordinator) SetConfig(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateWarning {
		return ErrBusy
	}
	if cfg.TriggerDelay <= 0 {
		cfg.TriggerDelay = defaultTriggerDelay
	}
	if cfg.ErrorDisplay <= 0 {
		cfg.ErrorDisplay = defaultErrorDisplay
	}
	c.cfg = cfg
	c.armed = false
	return nil
}

// Refresh rebuilds the backend and config through the supplied
// builder and swaps both in. The build runs outside the lock; the swap
// is rejected if a session started in the meantime.
func (c *Coordinator) Refresh(rebuild func() (asr.Backend, Config, error)) error {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateWarning {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	backend, cfg, err := rebuild()
	if err != nil {
		return err
	}
	if cfg.TriggerDelay <= 0 {
		cfg.TriggerDelay = defaultTriggerDelay
	}
	if cfg.ErrorDisplay <= 0 {
		cfg.ErrorDisplay = defaultErrorDisplay
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateWarning {
		return ErrBusy
	}
	c.backend = backend
	c.cfg = cfg
	c.armed = false
	return nil
}

// Warn surfaces a non-fatal condition, such as a failed health probe.
// The state shows Warning until the display window elapses.
func (c *Coordinator) Warn(message string) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateWarning)
	gen := c.generation
	display := c.cfg.ErrorDisplay
	notify := c.cfg.Notify
	c.mu.Unlock()

	slog.Warn("service warning", "message", message)
	if notify {
		if err := c.notify("Voice input", message); err != nil {
			slog.Warn("notify", "error", err)
		}
	}
	go func() {
		time.Sleep(display)
		c.mu.Lock()
		if c.state == StateWarning && c.generation == gen {
			c.setStateLocked(StateIdle)
		}
		c.mu.Unlock()
	}()
}

// ReportServiceStatus records a backend health probe. The event fires
// only when health flips; an unhealthy flip also raises a warning.
func (c *Coordinator) ReportServiceStatus(healthy bool, detail string) {
	c.mu.Lock()
	changed := c.lastHealth == nil || *c.lastHealth != healthy
	c.lastHealth = &healthy
	c.mu.Unlock()

	if !changed {
		return
	}
	if c.events.OnServiceStatus != nil {
		c.events.OnServiceStatus(healthy)
	}
	if !healthy {
		c.Warn(detail)
	}
}

// Stop aborts any active session and returns the coordinator to Idle.
// Results from in-flight workers are discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.generation++
	c.armed = false
	if c.capture.IsActive() {
		c.capture.Abort()
	}
	c.restoreClipboardLocked()
	if c.state != StateIdle {
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()

	// Fence: a worker that passed its liveness check before the
	// generation bump may still be typing. Wait it out; any worker
	// checking after this point sees the new generation and discards.
	c.injectMu.Lock()
	defer c.injectMu.Unlock()
}

// HandleKeys is the hotkey listener callback. It runs on every key
// event and on the listener's debounce tick.
func (c *Coordinator) HandleKeys(pressed *hotkey.PressedKeys) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		c.handleIdleLocked(pressed)
	case StateRecording:
		if pressed.Empty() {
			c.finishRecordingLocked(asr.Transcribe)
		}
	case StateRecordingTranslate:
		if pressed.Empty() {
			c.finishRecordingLocked(asr.Translate)
		}
	default:
		// Hot states ignore the keyboard until the session settles.
	}
}

// handleIdleLocked arms and fires chords. The translate binding is
// checked first: its chord may contain the transcribe chord.
func (c *Coordinator) handleIdleLocked(pressed *hotkey.PressedKeys) {
	// A chord that already fired stays latched until every key comes
	// back up. The pressed set keeps tracking the physical keys so the
	// recording states can see the real release.
	if c.fired {
		if pressed.Empty() {
			c.fired = false
		}
		return
	}

	var mode asr.Mode
	switch {
	case c.cfg.TranslateBinding != nil && c.cfg.TranslateBinding.Matches(pressed):
		mode = asr.Translate
	case c.cfg.TranscribeBinding != nil && c.cfg.TranscribeBinding.Matches(pressed):
		mode = asr.Transcribe
	default:
		if pressed.Empty() {
			c.armed = false
		}
		return
	}

	if !c.armed || c.armedMode != mode {
		c.armed = true
		c.armedAt = time.Now()
		c.armedMode = mode
		if c.cfg.AntiMistouch {
			return
		}
	}
	if c.cfg.AntiMistouch && time.Since(c.armedAt) < c.cfg.TriggerDelay {
		return
	}

	c.armed = false
	c.fired = true
	c.startRecordingLocked(mode)
}

func (c *Coordinator) startRecordingLocked(mode asr.Mode) {
	if err := c.capture.Start(); err != nil {
		c.enterErrorLocked(mode, "start recording", err)
		return
	}
	c.generation++

	if text, err := c.readClipboard(); err == nil {
		c.savedClipboard = text
		c.clipboardSaved = true
	} else {
		c.clipboardSaved = false
		slog.Debug("clipboard snapshot", "error", err)
	}

	if mode == asr.Translate {
		c.setStateLocked(StateRecordingTranslate)
	} else {
		c.setStateLocked(StateRecording)
	}
	slog.Info("recording started", "mode", mode.String())
}

func (c *Coordinator) finishRecordingLocked(mode asr.Mode) {
	// Only reached on an empty pressed set, so the chord is released.
	c.fired = false
	snap, err := c.capture.Stop()
	if err != nil {
		if errors.Is(err, audiocapture.ErrTooShort) {
			slog.Debug("recording too short, discarded")
			c.restoreClipboardLocked()
			c.setStateLocked(StateIdle)
			return
		}
		c.enterErrorLocked(mode, "stop recording", err)
		return
	}

	if mode == asr.Translate {
		c.setStateLocked(StateTranslating)
	} else {
		c.setStateLocked(StateProcessing)
	}
	go c.process(c.generation, snap, mode, c.backend)
}

// process runs on a worker goroutine and owns all slow I/O for one
// session: WAV framing, the backend call, typing, and the history row.
func (c *Coordinator) process(gen uint64, snap *audiocapture.Snapshot, mode asr.Mode, backend asr.Backend) {
	wavData, err := snap.WAV()
	if err != nil {
		c.failSession(gen, mode, "encode audio", err, 0, "")
		return
	}

	var audioPath string
	if c.saveWAVFiles() {
		audioPath, err = snap.SaveWAV(c.audioDir())
		if err != nil {
			slog.Warn("save recording", "error", err)
			audioPath = ""
		}
	}

	start := time.Now()
	text, err := backend.Process(context.Background(), wavData, mode, "")
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, whisper.ErrTooShort) || errors.Is(err, audiocapture.ErrTooShort) {
			c.discardSession(gen, "too short")
			return
		}
		c.failSession(gen, mode, "speech recognition", err, elapsed, audioPath)
		return
	}

	text = strings.TrimSpace(text)
	if c.optimizeResult() {
		text = strings.Join(strings.Fields(text), " ")
	}
	if text == "" {
		c.discardSession(gen, "empty result")
		return
	}

	c.injectMu.Lock()
	c.mu.Lock()
	if !c.sessionLiveLocked(gen) {
		c.mu.Unlock()
		c.injectMu.Unlock()
		slog.Debug("stale result discarded")
		return
	}
	c.mu.Unlock()

	// Typing sleeps between keystrokes; keep the state lock released
	// so the listener callback stays responsive. The state stays hot
	// until the result and history events have fired.
	c.typist.TypeText(text)
	c.injectMu.Unlock()

	c.mu.Lock()
	c.restoreClipboardLocked()
	c.mu.Unlock()

	slog.Info("session complete", "mode", mode.String(), "chars", len(text), "elapsed", elapsed)
	if c.events.OnResult != nil {
		c.events.OnResult(text, elapsed)
	}
	c.writeHistory(&store.HistoryRecord{
		RecordType:       recordType(mode),
		OutputText:       text,
		AudioFilePath:    audioPath,
		ProcessorType:    c.processorType(),
		ProcessingTimeMS: elapsed.Milliseconds(),
		Success:          true,
	})

	c.mu.Lock()
	if c.generation == gen {
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()
}

// discardSession returns to Idle without typing or history.
func (c *Coordinator) discardSession(gen uint64, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sessionLiveLocked(gen) {
		return
	}
	slog.Debug("session discarded", "reason", reason)
	c.restoreClipboardLocked()
	c.setStateLocked(StateIdle)
}

// failSession moves a live session into the Error state, shows
// ephemeral feedback, and records a failure row. The recognized-text
// channel never carries raw backend errors.
func (c *Coordinator) failSession(gen uint64, mode asr.Mode, op string, err error, elapsed time.Duration, audioPath string) {
	c.mu.Lock()
	if !c.sessionLiveLocked(gen) {
		c.mu.Unlock()
		slog.Debug("stale failure discarded", "error", err)
		return
	}
	c.restoreClipboardLocked()
	c.enterErrorLocked(mode, op, err)
	c.mu.Unlock()

	c.writeHistory(&store.HistoryRecord{
		RecordType:       recordType(mode),
		AudioFilePath:    audioPath,
		ProcessorType:    c.processorType(),
		ProcessingTimeMS: elapsed.Milliseconds(),
		Success:          false,
		ErrorMessage:     err.Error(),
	})
}

// enterErrorLocked flips to Error and spawns the feedback goroutine
// that shows, holds, and erases the ephemeral message.
func (c *Coordinator) enterErrorLocked(mode asr.Mode, op string, err error) {
	slog.Error(op, "mode", mode.String(), "error", err)
	c.setStateLocked(StateError)
	gen := c.generation
	display := c.cfg.ErrorDisplay
	notify := c.cfg.Notify

	go func() {
		if notify {
			if nerr := c.notify("Voice input", op+" failed"); nerr != nil {
				slog.Warn("notify", "error", nerr)
			}
		}
		c.typist.ShowEphemeral("🎙 error: " + op)
		time.Sleep(display)
		c.typist.ClearEphemeral()
		c.mu.Lock()
		if c.state == StateError && c.generation == gen {
			c.setStateLocked(StateIdle)
		}
		c.mu.Unlock()
	}()
}

func (c *Coordinator) writeHistory(rec *store.HistoryRecord) {
	if c.history != nil {
		if err := c.history.AddHistoryRecord(rec); err != nil {
			slog.Warn("write history", "error", err)
		}
	}
	if c.events.OnHistory != nil {
		c.events.OnHistory(rec)
	}
}

// sessionLiveLocked reports whether the worker's session is still the
// one the machine is waiting on.
func (c *Coordinator) sessionLiveLocked(gen uint64) bool {
	if c.generation != gen {
		return false
	}
	return c.state == StateProcessing || c.state == StateTranslating
}

func (c *Coordinator) restoreClipboardLocked() {
	if !c.clipboardSaved {
		return
	}
	c.clipboardSaved = false
	if err := c.writeClipboard(c.savedClipboard); err != nil {
		slog.Warn("restore clipboard", "error", err)
	}
}

func (c *Coordinator) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.events.OnStateChange != nil {
		c.events.OnStateChange(s)
	}
}

func (c *Coordinator) saveWAVFiles() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.SaveWAVFiles && c.cfg.AudioDir != ""
}

func (c *Coordinator) audioDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.AudioDir
}

func (c *Coordinator) optimizeResult() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.OptimizeResult
}

func (c *Coordinator) processorType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.ProcessorType
}

func recordType(mode asr.Mode) string {
	if mode == asr.Translate {
		return "translate"
	}
	return "transcribe"
}
