package audiocapture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// WAVSampleRate is the output rate expected by every ASR backend.
const WAVSampleRate = 16000

const wavBitDepth = 16

// WAV renders the snapshot as 16-bit mono PCM at 16 kHz: stereo is
// down-mixed by averaging paired samples, then the result is resampled
// from the device rate.
func (s *Snapshot) WAV() ([]byte, error) {
	mono := downmix(s.Samples, s.Channels)
	mono = resample(mono, s.SampleRate, WAVSampleRate)

	var sb seekBuffer
	enc := wav.NewEncoder(&sb, WAVSampleRate, wavBitDepth, 1, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  WAVSampleRate,
		},
		Data:           make([]int, len(mono)),
		SourceBitDepth: wavBitDepth,
	}
	for i, f := range mono {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		buf.Data[i] = int(int16(f * 32767))
	}

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return sb.buf.Bytes(), nil
}

// SaveWAV writes the snapshot under dir with a timestamped name and
// returns the path. Used when the recordings are kept.
func (s *Snapshot) SaveWAV(dir string) (string, error) {
	data, err := s.WAV()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("recording_%d.wav", time.Now().Unix()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write wav: %w", err)
	}
	return path, nil
}

// TempWAV writes the snapshot to a temporary path. The caller deletes
// the file after consumption.
func (s *Snapshot) TempWAV() (string, error) {
	data, err := s.WAV()
	if err != nil {
		return "", err
	}
	path := filepath.Join(os.TempDir(), "voxkey_"+uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp wav: %w", err)
	}
	return path, nil
}

// DecodeWAV parses a WAV blob into mono float32 samples in [-1, 1] plus
// the sample rate. Integer samples are scaled by their bit depth; stereo
// is averaged pairwise. Channel count comes from the header, never from
// sample-count parity.
func DecodeWAV(data []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("decode wav: empty stream")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	scale := float32(int64(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	return downmix(samples, buf.Format.NumChannels), int(dec.SampleRate), nil
}

// downmix averages interleaved channels into mono.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resample converts mono samples between rates by linear interpolation.
func resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	out := make([]float32, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}

// seekBuffer adapts bytes.Buffer to io.WriteSeeker for the wav encoder,
// which seeks back to patch chunk sizes on Close.
type seekBuffer struct {
	buf bytes.Buffer
	pos int64
}

func (sb *seekBuffer) Write(p []byte) (int, error) {
	if sb.pos < int64(sb.buf.Len()) {
		// Overwrite in place, extending if the write runs past the end.
		data := sb.buf.Bytes()
		n := copy(data[sb.pos:], p)
		if n < len(p) {
			sb.buf.Write(p[n:])
		}
		sb.pos += int64(len(p))
		return len(p), nil
	}
	n, err := sb.buf.Write(p)
	sb.pos += int64(n)
	return n, err
}

func (sb *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case 0:
		pos = offset
	case 1:
		pos = sb.pos + offset
	case 2:
		pos = int64(sb.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative position")
	}
	if pos > int64(sb.buf.Len()) {
		sb.buf.Write(make([]byte, pos-int64(sb.buf.Len())))
	}
	sb.pos = pos
	return pos, nil
}
