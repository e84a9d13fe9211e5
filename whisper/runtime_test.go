package whisper

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxkey/audiocapture"
)

// fakeEngine records calls and can simulate slow inference.
type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	lastP   params
	text    string
	err     error
	delay   time.Duration
	running atomic.Int32
	overlap atomic.Bool
	closed  bool
}

func (f *fakeEngine) transcribe(samples []float32, p params) (string, error) {
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls++
	f.lastP = p
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeEngine) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	n := int(seconds * 16000)
	snap := &audiocapture.Snapshot{
		Samples:    tone(0.5, n),
		SampleRate: 16000,
		Channels:   1,
	}
	data, err := snap.WAV()
	if err != nil {
		t.Fatalf("build test wav: %v", err)
	}
	return data
}

func newTestRuntime(eng engine, opts Options) *Runtime {
	return &Runtime{modelPath: "test.bin", opts: opts, eng: eng}
}

func TestProcessTooShort(t *testing.T) {
	rt := newTestRuntime(&fakeEngine{}, Options{})
	// 512 samples is under the 1024 floor.
	snap := &audiocapture.Snapshot{Samples: tone(0.5, 512), SampleRate: 16000, Channels: 1}
	wav, err := snap.WAV()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Process(wav, false); !errors.Is(err, ErrTooShort) {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}

func TestProcessPassesParams(t *testing.T) {
	eng := &fakeEngine{text: "hello"}
	rt := newTestRuntime(eng, Options{Language: "auto", BestOf: 3})

	got, err := rt.Process(testWAV(t, 1.5), false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "hello" {
		t.Errorf("text = %q", got)
	}
	if eng.lastP.language != "auto" {
		t.Errorf("language = %q, want auto", eng.lastP.language)
	}
	if eng.lastP.translate {
		t.Error("translate set in transcribe mode")
	}
	if eng.lastP.bestOf != 3 {
		t.Errorf("bestOf = %d", eng.lastP.bestOf)
	}
	if eng.lastP.threads < 1 {
		t.Errorf("threads = %d", eng.lastP.threads)
	}
}

func TestProcessTranslateForcesEnglish(t *testing.T) {
	eng := &fakeEngine{text: "hello"}
	rt := newTestRuntime(eng, Options{Language: "zh"})

	if _, err := rt.Process(testWAV(t, 1.5), true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if eng.lastP.language != "en" {
		t.Errorf("language = %q, want en", eng.lastP.language)
	}
	if !eng.lastP.translate {
		t.Error("translate flag not set")
	}
}

func TestProcessConfiguredLanguage(t *testing.T) {
	eng := &fakeEngine{text: "ok"}
	rt := newTestRuntime(eng, Options{Language: "ja"})
	if _, err := rt.Process(testWAV(t, 1.5), false); err != nil {
		t.Fatal(err)
	}
	if eng.lastP.language != "ja" {
		t.Errorf("language = %q, want ja", eng.lastP.language)
	}
}

func TestProcessBeamParams(t *testing.T) {
	eng := &fakeEngine{text: "ok"}
	rt := newTestRuntime(eng, Options{BeamSize: 5, Patience: 1.5})
	if _, err := rt.Process(testWAV(t, 1.5), false); err != nil {
		t.Fatal(err)
	}
	if eng.lastP.beamSize != 5 || eng.lastP.patience != 1.5 {
		t.Errorf("beam params = %+v", eng.lastP)
	}
}

func TestProcessSerializes(t *testing.T) {
	eng := &fakeEngine{text: "ok", delay: 20 * time.Millisecond}
	rt := newTestRuntime(eng, Options{})
	wav := testWAV(t, 1.5)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rt.Process(wav, false); err != nil {
				t.Errorf("Process: %v", err)
			}
		}()
	}
	wg.Wait()

	if eng.overlap.Load() {
		t.Error("concurrent Process calls entered the engine simultaneously")
	}
	if eng.calls != 4 {
		t.Errorf("calls = %d, want 4", eng.calls)
	}
}

func TestProcessAfterClose(t *testing.T) {
	eng := &fakeEngine{text: "ok"}
	rt := newTestRuntime(eng, Options{})
	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if !eng.closed {
		t.Error("engine not closed")
	}
	if _, err := rt.Process(testWAV(t, 1.5), false); err == nil {
		t.Error("Process after Close should fail")
	}
}

func TestVADFilterRemovesSilence(t *testing.T) {
	eng := &fakeEngine{text: "ok"}
	rt := newTestRuntime(eng, Options{EnableVAD: true})

	// Nothing but silence: the filter strips every sample.
	snap := &audiocapture.Snapshot{Samples: silence(32000), SampleRate: 16000, Channels: 1}
	wav, err := snap.WAV()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Process(wav, false); !errors.Is(err, ErrTooShort) {
		t.Errorf("err = %v, want ErrTooShort on silent input", err)
	}
	if eng.calls != 0 {
		t.Error("engine invoked for silent input")
	}
}

func TestParseCLIOutput(t *testing.T) {
	out := `{"transcription":[{"text":"  hello "},{"text":"world  "},{"text":""}]}`
	got, err := parseCLIOutput([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestParseCLIOutputPlainText(t *testing.T) {
	got, err := parseCLIOutput([]byte("raw text\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "raw text" {
		t.Errorf("got %q", got)
	}
}

func TestNewRuntimeMissingModel(t *testing.T) {
	if _, err := NewRuntime("/nonexistent/ggml-model.bin", Options{}); !errors.Is(err, ErrModelMissing) {
		t.Errorf("err = %v, want ErrModelMissing", err)
	}
}
