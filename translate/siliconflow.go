package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxkey/asr"
)

const defaultSiliconFlowModel = "Qwen/Qwen2.5-7B-Instruct"

// SiliconFlow translates through an OpenAI-compatible chat-completion
// endpoint with bearer auth.
type SiliconFlow struct {
	client openai.Client
	model  string
}

// NewSiliconFlow creates the provider. baseURL is the API root
// (the SDK appends /chat/completions); model may be empty for the
// default.
func NewSiliconFlow(apiKey, baseURL, model string) *SiliconFlow {
	if model == "" {
		model = defaultSiliconFlowModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &SiliconFlow{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Translate sends the text with the fixed system prompt. Empty input
// short-circuits to empty output without a network call.
func (s *SiliconFlow) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(asr.SystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
