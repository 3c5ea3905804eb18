package llm

import (
	"context"
	"strings"
)

// MockClient is a scripted chat client for tests. It records the prompts
// it receives and returns a fixed response or error.
type MockClient struct {
	Response string
	Err      error

	LastSystemPrompt string
	LastUserMessage  string
	Calls            int
}

// Complete records the exchange and returns the scripted response.
func (m *MockClient) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	m.Calls++
	m.LastSystemPrompt = systemPrompt
	m.LastUserMessage = userMessage
	if m.Err != nil {
		return "", m.Err
	}
	return strings.TrimSpace(m.Response), nil
}

// Close is a no-op for MockClient.
func (m *MockClient) Close() error {
	return nil
}
