package asr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// extractText negotiates the response format: SRT first, then the known
// JSON shapes, then plain text. The first non-empty extraction wins.
func extractText(body []byte) (string, error) {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "", fmt.Errorf("%w: empty body", ErrProtocolMismatch)
	}

	if looksLikeSRT(s) {
		if text := cleanSRT(s); text != "" {
			return text, nil
		}
	}

	if text, ok := extractJSON(s); ok {
		return text, nil
	}

	// JSON that parsed but yielded no known field is a protocol error,
	// not plain text.
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return "", fmt.Errorf("%w: %s", ErrProtocolMismatch, bodyPrefix(s))
	}

	return s, nil
}

func looksLikeSRT(s string) bool {
	return strings.Contains(s, "-->")
}

// cleanSRT strips sequence-number lines and timestamp lines, keeping the
// caption text joined by spaces.
func cleanSRT(s string) string {
	var parts []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") {
			continue
		}
		if _, err := strconv.Atoi(line); err == nil {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}

// jsonResponse covers the field names seen across providers.
type jsonResponse struct {
	Text          string          `json:"text"`
	Data          string          `json:"data"`
	Transcription string          `json:"transcription"`
	Result        json.RawMessage `json:"result"`
}

func extractJSON(s string) (string, bool) {
	var resp jsonResponse
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return "", false
	}

	for _, candidate := range []string{resp.Text, resp.Data, resp.Transcription} {
		if t := strings.TrimSpace(candidate); t != "" {
			return t, true
		}
	}

	if len(resp.Result) > 0 {
		// result may be a plain string or a segment array.
		var str string
		if err := json.Unmarshal(resp.Result, &str); err == nil {
			if t := strings.TrimSpace(str); t != "" {
				return t, true
			}
		}
		var segs []struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(resp.Result, &segs); err == nil && len(segs) > 0 {
			if t := strings.TrimSpace(segs[0].Text); t != "" {
				return t, true
			}
		}
	}

	return "", false
}

// bodyPrefix returns a short prefix of the raw body for error text.
func bodyPrefix(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
