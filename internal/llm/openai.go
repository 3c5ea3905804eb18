package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat completions API with
// deterministic-leaning sampling and a bounded output length.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIClient creates a chat client for the given model. The API key
// is read from the OPENAI_API_KEY environment variable.
func NewOpenAIClient(model string, temperature float32, maxTokens int) (*OpenAIClient, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	return &OpenAIClient{
		client:      openai.NewClient(key),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Complete sends the system prompt and user message and returns the
// trimmed response text verbatim.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close is a no-op for OpenAIClient.
func (c *OpenAIClient) Close() error {
	return nil
}
