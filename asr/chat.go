package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const chatTimeout = 30 * time.Second

// SystemPrompt is the fixed instruction sent with every translation
// chat request.
const SystemPrompt = "You are a translation assistant. Please translate the user's input into English."

// ChatMessage is one chat-completion message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   *bool         `json:"stream,omitempty"`
}

// chatResponse matches both the OpenAI choices shape and the bare
// message shape some gateways return.
type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Message ChatMessage `json:"message"`
}

// ChatCall posts a chat-completion payload and extracts the assistant
// text. bearer may be empty for unauthenticated gateways; stream, when
// non-nil, is serialized into the payload.
func ChatCall(ctx context.Context, client *http.Client, url, bearer, model, input string, stream *bool) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: input},
		},
		Stream: stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: %d - %s", resp.StatusCode, bodyPrefix(string(body)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %s", ErrProtocolMismatch, bodyPrefix(string(body)))
	}
	if len(chatResp.Choices) > 0 {
		return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
	}
	if chatResp.Message.Content != "" {
		return strings.TrimSpace(chatResp.Message.Content), nil
	}
	return "", fmt.Errorf("%w: no message content", ErrProtocolMismatch)
}

// NewChatClient returns an HTTP client tuned for chat-completion calls.
func NewChatClient() *http.Client {
	return newHTTPClient(chatTimeout)
}
