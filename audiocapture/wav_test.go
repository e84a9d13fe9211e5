package audiocapture

import (
	"math"
	"os"
	"testing"
)

func sine(freq float64, rate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestWAVRoundTrip(t *testing.T) {
	snap := &Snapshot{
		Samples:    sine(440, 16000, 16000),
		SampleRate: 16000,
		Channels:   1,
	}

	data, err := snap.WAV()
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(decoded) != len(snap.Samples) {
		t.Fatalf("len = %d, want %d", len(decoded), len(snap.Samples))
	}

	// 16-bit quantization allows one ULP of error.
	const ulp = 1.0 / 32767
	for i := range decoded {
		if diff := math.Abs(float64(decoded[i] - snap.Samples[i])); diff > 2*ulp {
			t.Fatalf("sample %d: got %f, want %f", i, decoded[i], snap.Samples[i])
		}
	}
}

func TestWAVDownmixesStereo(t *testing.T) {
	// Interleaved stereo: left 0.5, right -0.5 averages to 0.
	samples := make([]float32, 32000*2)
	for i := 0; i < len(samples); i += 2 {
		samples[i] = 0.5
		samples[i+1] = -0.5
	}
	snap := &Snapshot{Samples: samples, SampleRate: 16000, Channels: 2}

	data, err := snap.WAV()
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	decoded, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	for i, s := range decoded {
		if s != 0 {
			t.Fatalf("sample %d = %f, want 0 after downmix", i, s)
		}
	}
}

func TestWAVResamples(t *testing.T) {
	// 1.5 s at a 48 kHz device rate resamples to 1.5 s at 16 kHz.
	snap := &Snapshot{
		Samples:    sine(440, 48000, 72000),
		SampleRate: 48000,
		Channels:   1,
	}
	data, err := snap.WAV()
	if err != nil {
		t.Fatalf("WAV: %v", err)
	}
	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	want := 24000
	if len(decoded) < want-2 || len(decoded) > want+2 {
		t.Errorf("len = %d, want about %d", len(decoded), want)
	}
}

func TestDownmixUsesChannelCount(t *testing.T) {
	// An even-length mono buffer stays mono; parity means nothing.
	mono := []float32{0.1, 0.2, 0.3, 0.4}
	got := downmix(mono, 1)
	if len(got) != 4 {
		t.Errorf("mono downmix changed length: %d", len(got))
	}

	stereo := []float32{0.2, 0.4, 0.6, 0.8}
	got = downmix(stereo, 2)
	if len(got) != 2 {
		t.Fatalf("stereo downmix len = %d, want 2", len(got))
	}
	if math.Abs(float64(got[0]-0.3)) > 1e-6 || math.Abs(float64(got[1]-0.7)) > 1e-6 {
		t.Errorf("stereo downmix = %v", got)
	}
}

func TestSaveWAV(t *testing.T) {
	snap := &Snapshot{
		Samples:    sine(440, 16000, 16000),
		SampleRate: 16000,
		Channels:   1,
	}
	dir := t.TempDir()
	path, err := snap.SaveWAV(dir)
	if err != nil {
		t.Fatalf("SaveWAV: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() <= 44 {
		t.Errorf("wav file only %d bytes", info.Size())
	}
}

func TestTempWAVIsDeletable(t *testing.T) {
	snap := &Snapshot{
		Samples:    sine(440, 16000, 16000),
		SampleRate: 16000,
		Channels:   1,
	}
	path, err := snap.TempWAV()
	if err != nil {
		t.Fatalf("TempWAV: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Errorf("remove temp wav: %v", err)
	}
}
