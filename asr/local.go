package asr

import "context"

// Inference is the local whisper runtime contract. The runtime blocks
// internally and serializes requests on its own mutex.
type Inference interface {
	Process(wavData []byte, translate bool) (string, error)
}

// Local runs transcription through the in-process whisper runtime.
type Local struct {
	runtime Inference
}

// NewLocal wraps a whisper runtime as an ASR backend.
func NewLocal(runtime Inference) *Local {
	return &Local{runtime: runtime}
}

// Process decodes and transcribes locally. The prompt is ignored; the
// runtime has no conditioning-text input.
func (l *Local) Process(ctx context.Context, wavData []byte, mode Mode, _ string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := l.runtime.Process(wavData, mode == Translate)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}
