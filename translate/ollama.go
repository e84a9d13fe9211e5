package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"voxkey/asr"
)

const (
	defaultOllamaURL   = "http://localhost:11434/api/chat"
	defaultOllamaModel = "gpt-oss:latest"
)

// Ollama translates through a local Ollama chat endpoint. No auth; the
// payload carries stream:false so the reply arrives as one JSON object.
type Ollama struct {
	url   string
	model string
	http  *http.Client
}

// NewOllama creates the provider. url is the full /api/chat endpoint;
// empty url and model fall back to the local defaults.
func NewOllama(url, model string) *Ollama {
	if url == "" {
		url = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &Ollama{url: url, model: model, http: asr.NewChatClient()}
}

// Translate sends the text with the fixed system prompt. Empty input
// returns empty output without a network call.
func (o *Ollama) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	stream := false
	result, err := asr.ChatCall(ctx, o.http, o.url, "", o.model, text, &stream)
	if err != nil {
		return "", fmt.Errorf("ollama translate: %w", err)
	}
	return result, nil
}
