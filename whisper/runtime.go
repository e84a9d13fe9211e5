// Package whisper owns the local inference runtime: one loaded model
// served serially, an optional VAD pre-filter, and a process-wide
// registry that keeps the active runtime alive across requests.
package whisper

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"voxkey/audiocapture"
)

// ErrTooShort is returned when the decoded audio is too small to feed
// the model.
var ErrTooShort = errors.New("audio too short for inference")

// ErrModelMissing is returned when the model file does not exist.
var ErrModelMissing = errors.New("model file not found")

// ErrInference is returned when the native call fails.
var ErrInference = errors.New("inference failed")

// minSamples is the smallest decoded buffer the model accepts.
const minSamples = 1024

// Options configures inference. Zero values select greedy sampling with
// auto language detection.
type Options struct {
	// Language is "auto", empty, or an ISO code.
	Language string
	// BeamSize > 0 selects beam search; Patience applies to it.
	BeamSize int
	Patience float64
	// BestOf is the greedy candidate count (default 1).
	BestOf int
	// Translate forces English output regardless of mode.
	Translate bool
	// VADModelPath, when non-empty, enables model-based VAD in the
	// engine. When empty the energy pre-filter runs instead if
	// EnableVAD is set.
	VADModelPath string
	EnableVAD    bool
}

// params is the fully resolved per-request parameter set.
type params struct {
	language  string
	translate bool
	threads   int
	beamSize  int
	patience  float64
	bestOf    int
	vadModel  string
}

// engine is the native layer behind the runtime. The production engine
// drives the whisper.cpp CLI; tests substitute a fake.
type engine interface {
	transcribe(samples []float32, p params) (string, error)
	close() error
}

// Runtime binds an inference engine to exactly one model file. Requests
// serialize on the internal mutex; the engine is shared, only transient
// per-request state differs.
type Runtime struct {
	mu        sync.Mutex
	modelPath string
	opts      Options
	eng       engine
	closed    bool
}

// NewRuntime loads the model at path. The file must exist; the engine
// itself is created lazily on first use by the CLI backend.
func NewRuntime(path string, opts Options) (*Runtime, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
	}
	eng, err := newCLIEngine(path)
	if err != nil {
		return nil, err
	}
	slog.Info("whisper runtime ready", "model", path, "backend", DetectBackend())
	return &Runtime{modelPath: path, opts: opts, eng: eng}, nil
}

// ModelPath returns the model file this runtime is bound to.
func (r *Runtime) ModelPath() string { return r.modelPath }

// Process decodes the WAV and runs inference. translate forces English
// output. Concurrent calls serialize; the result is the trimmed segment
// texts joined by single spaces.
func (r *Runtime) Process(wavData []byte, translate bool) (string, error) {
	samples, _, err := audiocapture.DecodeWAV(wavData)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}

	if len(samples) < minSamples {
		return "", fmt.Errorf("%w: %d samples", ErrTooShort, len(samples))
	}

	if r.opts.EnableVAD && r.opts.VADModelPath == "" {
		segments := Detect(samples, audiocapture.WAVSampleRate)
		samples = Extract(samples, segments, audiocapture.WAVSampleRate)
		if len(samples) == 0 {
			return "", fmt.Errorf("%w: no speech detected", ErrTooShort)
		}
	}

	p := r.buildParams(translate)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", fmt.Errorf("%w: runtime closed", ErrInference)
	}
	text, err := r.eng.transcribe(samples, p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInference, err)
	}
	return text, nil
}

func (r *Runtime) buildParams(translate bool) params {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}

	lang := strings.TrimSpace(r.opts.Language)
	switch {
	case translate:
		lang = "en"
	case lang == "" || lang == "auto":
		lang = "auto"
	}

	bestOf := r.opts.BestOf
	if bestOf < 1 {
		bestOf = 1
	}

	return params{
		language:  lang,
		translate: translate || r.opts.Translate,
		threads:   threads,
		beamSize:  r.opts.BeamSize,
		patience:  r.opts.Patience,
		bestOf:    bestOf,
		vadModel:  r.opts.VADModelPath,
	}
}

// Close releases the engine. Further Process calls fail.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.eng.close()
}
