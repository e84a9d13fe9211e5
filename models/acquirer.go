package models

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

const defaultHost = "https://huggingface.co"

// mirrorHosts are the candidate download sites, probed in order.
var mirrorHosts = []string{
	"https://huggingface.co",
	"https://hf-mirror.com",
}

// Acquirer downloads model files into a directory, remembering which
// mirror answered first.
type Acquirer struct {
	modelDir string
	http     *http.Client

	mu     sync.Mutex
	mirror string

	progressMu sync.Mutex
	inProgress map[string]float64
}

// NewAcquirer creates an acquirer rooted at modelDir.
func NewAcquirer(modelDir string) *Acquirer {
	return &Acquirer{
		modelDir:   modelDir,
		http:       &http.Client{},
		inProgress: make(map[string]float64),
	}
}

// SelectMirror probes each candidate host with a HEAD-style curl call
// against the smallest model and remembers the first one that answers.
// Any HTTP response counts as reachable; curl exit status decides.
func (a *Acquirer) SelectMirror() string {
	a.mu.Lock()
	if a.mirror != "" {
		m := a.mirror
		a.mu.Unlock()
		return m
	}
	a.mu.Unlock()

	probe := smallestModel()
	for _, host := range mirrorHosts {
		url := strings.Replace(probe.DownloadURL, defaultHost, host, 1)
		cmd := exec.Command("curl", "-I", "--connect-timeout", "5", "--max-time", "10", url)
		if err := cmd.Run(); err != nil {
			slog.Info("mirror unreachable", "host", host, "error", err)
			continue
		}
		a.mu.Lock()
		a.mirror = host
		a.mu.Unlock()
		slog.Info("mirror selected", "host", host)
		return host
	}

	// No probe succeeded; fall back to the default host and let the
	// download surface the real error.
	return defaultHost
}

// Download fetches the named model into the model directory. The file
// streams to a .tmp sibling and is renamed atomically when complete.
// progress receives the downloaded fraction in [0, 1] and may be nil.
func (a *Acquirer) Download(name string, progress func(fraction float64)) (string, error) {
	model, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown model %q", name)
	}

	if err := os.MkdirAll(a.modelDir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}
	finalPath := filepath.Join(a.modelDir, model.FileName)
	if _, err := os.Stat(finalPath); err == nil {
		return finalPath, nil
	}

	a.progressMu.Lock()
	if _, running := a.inProgress[name]; running {
		a.progressMu.Unlock()
		return "", fmt.Errorf("download of %q already in progress", name)
	}
	a.inProgress[name] = 0
	a.progressMu.Unlock()
	defer func() {
		a.progressMu.Lock()
		delete(a.inProgress, name)
		a.progressMu.Unlock()
	}()

	url := strings.Replace(model.DownloadURL, defaultHost, a.SelectMirror(), 1)
	slog.Info("downloading model", "name", name, "url", url)

	resp, err := a.http.Get(url)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status: %d", resp.StatusCode)
	}

	tmpPath := finalPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	total := resp.ContentLength
	if total <= 0 {
		total = model.SizeMB * 1024 * 1024
	}

	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("write file: %w", werr)
			}
			downloaded += int64(n)
			frac := float64(downloaded) / float64(total)
			if frac > 1 {
				frac = 1
			}
			a.progressMu.Lock()
			a.inProgress[name] = frac
			a.progressMu.Unlock()
			if progress != nil {
				progress(frac)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}

	slog.Info("model downloaded", "name", name, "path", finalPath, "bytes", downloaded)
	return finalPath, nil
}

// Progress reports the in-flight fraction for a model, or -1 when no
// download is running.
func (a *Acquirer) Progress(name string) float64 {
	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	if frac, ok := a.inProgress[name]; ok {
		return frac
	}
	return -1
}

// ModelDir returns the directory downloads land in.
func (a *Acquirer) ModelDir() string { return a.modelDir }
