// Package translate converts text to English through chat-completion
// services. Two providers exist: a bearer-authenticated OpenAI-compatible
// endpoint and an unauthenticated Ollama endpoint.
package translate

import "context"

// Backend translates a UTF-8 string into English.
type Backend interface {
	Translate(ctx context.Context, text string) (string, error)
}
