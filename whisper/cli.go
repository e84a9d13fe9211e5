package whisper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"voxkey/audiocapture"
)

// cliEngine drives the whisper.cpp command-line tool. One engine exists
// per loaded model; the Runtime serializes calls into it.
type cliEngine struct {
	modelPath string
	binPath   string
}

func newCLIEngine(modelPath string) (*cliEngine, error) {
	bin := findWhisperBinary()
	if bin == "" {
		return nil, fmt.Errorf("%w: whisper.cpp binary not found", ErrInference)
	}
	return &cliEngine{modelPath: modelPath, binPath: bin}, nil
}

func (e *cliEngine) transcribe(samples []float32, p params) (string, error) {
	snap := &audiocapture.Snapshot{
		Samples:    samples,
		SampleRate: audiocapture.WAVSampleRate,
		Channels:   1,
	}
	audioPath, err := snap.TempWAV()
	if err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	args := []string{
		"-m", e.modelPath,
		"-f", audioPath,
		"-oj",
		"--no-prints",
		"-t", strconv.Itoa(p.threads),
		"--temperature", "0",
	}
	if p.language != "" {
		args = append(args, "-l", p.language)
	}
	if p.translate {
		args = append(args, "--translate")
	}
	if p.beamSize > 0 {
		args = append(args, "--beam-size", strconv.Itoa(p.beamSize))
		if p.patience > 0 {
			args = append(args, "--patience", strconv.FormatFloat(p.patience, 'f', -1, 64))
		}
	} else if p.bestOf > 1 {
		args = append(args, "--best-of", strconv.Itoa(p.bestOf))
	}
	if p.vadModel != "" {
		args = append(args, "--vad", "--vad-model", p.vadModel)
	}

	cmd := exec.Command(e.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp: %w, stderr: %s", err, stderr.String())
	}

	return parseCLIOutput(stdout.Bytes())
}

func (e *cliEngine) close() error { return nil }

// cliOutput matches whisper.cpp's -oj JSON.
type cliOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseCLIOutput joins the trimmed segment texts with single spaces.
// Non-JSON stdout falls back to the raw text.
func parseCLIOutput(data []byte) (string, error) {
	var out cliOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return strings.TrimSpace(string(data)), nil
	}

	parts := make([]string, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// findWhisperBinary searches PATH and the usual install locations.
// whisper-cli is the Homebrew name.
func findWhisperBinary() string {
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
