package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const multipartTimeout = 20 * time.Second

// testUploadCap limits test-call uploads to 2 MiB.
const testUploadCap = 2 << 20

// MultipartConfig holds the per-provider settings of a multipart
// transcription endpoint.
type MultipartConfig struct {
	Endpoint string
	APIKey   string
	// BearerAuth selects "Authorization: Bearer" over "X-API-Key".
	BearerAuth bool
	// Model is sent as a form field when non-empty (OpenAI-compatible
	// providers require it).
	Model string
	// ResponseFormat is sent as a form field when non-empty
	// ("srt", "json" or "text").
	ResponseFormat string
	// Language is sent as a form field when non-empty ("auto" or ISO).
	Language string
	// TranslateEndpoint, when non-empty, serves Translate mode natively
	// (whisper translations route). TranslateModel overrides Model for
	// those calls.
	TranslateEndpoint string
	TranslateModel    string
}

// Multipart posts WAV audio as a multipart form and negotiates the
// response format. Providers without a translate capability delegate
// Translate mode to the configured Translator.
type Multipart struct {
	cfg        MultipartConfig
	http       *http.Client
	translator Translator
}

// NewMultipart creates a multipart backend. translator may be nil for
// providers reached only in Transcribe mode.
func NewMultipart(cfg MultipartConfig, translator Translator) *Multipart {
	return &Multipart{
		cfg:        cfg,
		http:       newHTTPClient(multipartTimeout),
		translator: translator,
	}
}

// Process uploads the WAV and returns the extracted text. Translate
// mode goes to the native translations endpoint when one is
// configured, otherwise the transcription is passed through the
// translator.
func (m *Multipart) Process(ctx context.Context, wavData []byte, mode Mode, prompt string) (string, error) {
	if mode == Translate && m.cfg.TranslateEndpoint != "" {
		model := m.cfg.TranslateModel
		if model == "" {
			model = m.cfg.Model
		}
		return m.upload(ctx, m.cfg.TranslateEndpoint, model, wavData, prompt)
	}

	text, err := m.transcribe(ctx, wavData, prompt)
	if err != nil {
		return "", err
	}

	if mode == Translate {
		if m.translator == nil {
			return "", fmt.Errorf("translate requested but no translator configured")
		}
		translated, err := m.translator.Translate(ctx, text)
		if err != nil {
			return "", fmt.Errorf("translate transcription: %w", err)
		}
		return translated, nil
	}
	return text, nil
}

func (m *Multipart) transcribe(ctx context.Context, wavData []byte, prompt string) (string, error) {
	return m.upload(ctx, m.cfg.Endpoint, m.cfg.Model, wavData, prompt)
}

func (m *Multipart) upload(ctx context.Context, endpoint, model string, wavData []byte, prompt string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createWAVPart(writer)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           model,
		"response_format": m.cfg.ResponseFormat,
		"language":        m.cfg.Language,
		"prompt":          prompt,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write %s field: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	m.setAuth(req)

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("asr endpoint returned %d: %s", resp.StatusCode, bodyPrefix(string(body)))
	}

	return extractText(body)
}

func (m *Multipart) setAuth(req *http.Request) {
	key := NormalizeAPIKey(m.cfg.APIKey)
	if key == "" {
		return
	}
	if m.cfg.BearerAuth {
		req.Header.Set("Authorization", "Bearer "+key)
	} else {
		req.Header.Set("X-API-Key", key)
	}
}

// NormalizeAPIKey strips the literal "API_KEY=" prefix some installers
// leave in front of the key.
func NormalizeAPIKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), "API_KEY=")
}

// createWAVPart builds the file part with an explicit audio/wav MIME
// type; CreateFormFile would label it application/octet-stream.
func createWAVPart(writer *multipart.Writer) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	h.Set("Content-Type", "audio/wav")
	return writer.CreatePart(h)
}

// TestUpload runs a connectivity check with a small sample clip. Test
// calls are capped at 2 MiB so a misconfigured snapshot cannot be
// shipped wholesale to a remote service.
func (m *Multipart) TestUpload(ctx context.Context, wavData []byte) (string, error) {
	if len(wavData) > testUploadCap {
		return "", fmt.Errorf("test clip is %d bytes, cap is %d", len(wavData), testUploadCap)
	}
	return m.transcribe(ctx, wavData, "")
}

// HealthStatus is the parsed health-endpoint response.
type HealthStatus struct {
	Status        string `json:"status"`
	TotalBackends int    `json:"total_backends"`
}

// Healthy reports whether the service declared itself healthy.
func (h HealthStatus) Healthy() bool { return h.Status == "healthy" }

// SupportsHealth reports whether the endpoint exposes a derivable
// health route. Only inference-server style endpoints do; managed
// providers have no /health sibling to probe.
func (m *Multipart) SupportsHealth() bool {
	return strings.Contains(m.cfg.Endpoint, "/inference")
}

// Health probes the provider's health endpoint, derived from the
// transcription endpoint by replacing the trailing /inference path with
// /health.
func (m *Multipart) Health(ctx context.Context) (HealthStatus, error) {
	if !m.SupportsHealth() {
		return HealthStatus{}, fmt.Errorf("no health route for endpoint %s", m.cfg.Endpoint)
	}
	url := strings.Replace(m.cfg.Endpoint, "/inference", "/health", 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("create request: %w", err)
	}
	m.setAuth(req)

	resp, err := m.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("read health response: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return HealthStatus{}, fmt.Errorf("%w: %s", ErrProtocolMismatch, bodyPrefix(string(body)))
	}
	if !status.Healthy() {
		slog.Warn("asr service unhealthy", "status", status.Status)
	}
	return status, nil
}
