// Package llm provides the chat-completion client used for answer synthesis.
package llm

import "context"

// Client completes a chat exchange: one system prompt plus one user
// message. Implementations surface transport or quota errors unmodified;
// retries are the caller's decision.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	Close() error
}
