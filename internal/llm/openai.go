package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint (Groq by default).
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates a chat client; baseURL may be empty for the OpenAI default.
func NewOpenAI(model, apiKey, baseURL string, temperature float32) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		temperature: temperature,
	}
}

// Complete sends prompt as a single user message and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	temperature := o.temperature
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: &temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
