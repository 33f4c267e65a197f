package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a chat-completion backend. One call, one text result; retry
// policy lives with the caller, not here.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// TokenLimiter is an optional interface. Providers that can cap completion
// length implement it.
type TokenLimiter interface {
	SetMaxTokens(n int)
}
