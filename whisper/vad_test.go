package whisper

import (
	"math"
	"testing"
)

func tone(amp float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func silence(n int) []float32 {
	return make([]float32, n)
}

func TestDetectFindsSpeech(t *testing.T) {
	// 0.5 s silence, 1 s tone, 0.5 s silence at 16 kHz.
	samples := append(silence(8000), tone(0.5, 16000)...)
	samples = append(samples, silence(8000)...)

	segments := Detect(samples, 16000)
	if len(segments) != 1 {
		t.Fatalf("segments = %v, want one", segments)
	}
	seg := segments[0]
	if seg.StartMS < 400 || seg.StartMS > 600 {
		t.Errorf("start = %dms, want about 500", seg.StartMS)
	}
	// End includes the 200ms tail buffer.
	if seg.EndMS < 1600 || seg.EndMS > 1800 {
		t.Errorf("end = %dms, want about 1700", seg.EndMS)
	}
}

func TestDetectAllSilence(t *testing.T) {
	if segs := Detect(silence(32000), 16000); len(segs) != 0 {
		t.Errorf("segments = %v, want none", segs)
	}
}

func TestDetectAllSpeech(t *testing.T) {
	segs := Detect(tone(0.5, 16000), 16000)
	if len(segs) != 1 {
		t.Fatalf("segments = %v", segs)
	}
	if segs[0].StartMS != 0 {
		t.Errorf("start = %d, want 0", segs[0].StartMS)
	}
}

func TestDetectMergesCloseSegments(t *testing.T) {
	// Two bursts separated by a 100ms gap; the 200ms tail bridges it.
	samples := append(tone(0.5, 8000), silence(1600)...)
	samples = append(samples, tone(0.5, 8000)...)

	segs := Detect(samples, 16000)
	if len(segs) != 1 {
		t.Errorf("segments = %v, want merged into one", segs)
	}
}

func TestExtract(t *testing.T) {
	samples := append(silence(8000), tone(0.5, 16000)...)
	samples = append(samples, silence(8000)...)

	segs := Detect(samples, 16000)
	speech := Extract(samples, segs, 16000)

	if len(speech) == 0 {
		t.Fatal("no samples extracted")
	}
	if len(speech) >= len(samples) {
		t.Errorf("extracted %d of %d samples, silence not removed", len(speech), len(samples))
	}
	// Roughly the 1 s tone plus the tail buffer.
	if len(speech) < 16000 || len(speech) > 20000 {
		t.Errorf("extracted %d samples", len(speech))
	}
}

func TestExtractNoSegments(t *testing.T) {
	if got := Extract(tone(0.5, 1000), nil, 16000); got != nil {
		t.Errorf("Extract with no segments = %d samples, want nil", len(got))
	}
}

func TestExtractClampsOutOfRange(t *testing.T) {
	samples := tone(0.5, 1600)
	segs := []Segment{{StartMS: 0, EndMS: 5000}}
	got := Extract(samples, segs, 16000)
	if len(got) != len(samples) {
		t.Errorf("len = %d, want clamped to %d", len(got), len(samples))
	}
}

func TestFindVADModelMissing(t *testing.T) {
	if path := FindVADModel("/nonexistent/model.bin"); path != "" {
		t.Errorf("FindVADModel = %q, want empty", path)
	}
}
