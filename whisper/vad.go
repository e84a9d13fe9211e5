package whisper

import (
	"math"
	"os"
	"path/filepath"
)

// Segment is a detected speech region in milliseconds.
type Segment struct {
	StartMS int
	EndMS   int
}

// vadThreshold is the RMS level above which a window counts as speech.
const vadThreshold = 0.01

// vadWindow is the analysis window in samples.
const vadWindow = 1024

// vadTailMS pads each segment after a speech-to-silence transition so
// word tails are not clipped.
const vadTailMS = 200

// FindVADModel searches the known locations for a VAD model file:
// next to the ASR model, ./models/ggml-vad.bin, ./ggml-vad.bin.
// Empty result means the energy filter runs instead.
func FindVADModel(asrModelPath string) string {
	candidates := []string{
		filepath.Join(filepath.Dir(asrModelPath), "ggml-vad.bin"),
		filepath.Join("models", "ggml-vad.bin"),
		"ggml-vad.bin",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Detect runs the energy-threshold filter: RMS per window, merging
// adjacent speech windows into segments with a tail buffer appended
// after each speech-to-silence transition.
func Detect(samples []float32, sampleRate int) []Segment {
	if len(samples) == 0 {
		return nil
	}

	msPerWindow := float64(vadWindow) * 1000 / float64(sampleRate)

	var segments []Segment
	inSpeech := false
	start := 0

	for i := 0; i < len(samples); i += vadWindow {
		end := i + vadWindow
		if end > len(samples) {
			end = len(samples)
		}
		speech := rms(samples[i:end]) > vadThreshold

		switch {
		case speech && !inSpeech:
			inSpeech = true
			start = int(float64(i) / float64(vadWindow) * msPerWindow)
		case !speech && inSpeech:
			inSpeech = false
			endMS := int(float64(i)/float64(vadWindow)*msPerWindow) + vadTailMS
			segments = append(segments, Segment{StartMS: start, EndMS: endMS})
		}
	}
	if inSpeech {
		totalMS := len(samples) * 1000 / sampleRate
		segments = append(segments, Segment{StartMS: start, EndMS: totalMS})
	}

	return mergeOverlapping(segments)
}

// Extract concatenates only the in-segment sample regions.
func Extract(samples []float32, segments []Segment, sampleRate int) []float32 {
	if len(segments) == 0 {
		return nil
	}

	var out []float32
	for _, seg := range segments {
		start := seg.StartMS * sampleRate / 1000
		end := seg.EndMS * sampleRate / 1000
		if start < 0 {
			start = 0
		}
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}
		out = append(out, samples[start:end]...)
	}
	return out
}

// mergeOverlapping collapses segments whose tail buffers run into the
// next segment's start.
func mergeOverlapping(segments []Segment) []Segment {
	if len(segments) < 2 {
		return segments
	}
	merged := segments[:1]
	for _, seg := range segments[1:] {
		last := &merged[len(merged)-1]
		if seg.StartMS <= last.EndMS {
			if seg.EndMS > last.EndMS {
				last.EndMS = seg.EndMS
			}
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

func rms(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
