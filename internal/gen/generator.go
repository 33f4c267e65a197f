// Package gen holds Clem's response generators: a closed set of kinds, each
// backed by a chat-completion provider with its own persona and token cap.
package gen

import (
	"context"
	"fmt"
)

type Kind int

const (
	KindNone Kind = iota
	KindChat
	KindKarma
	KindWelcome
	KindSummary
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindKarma:
		return "karma"
	case KindWelcome:
		return "welcome"
	case KindSummary:
		return "summary"
	}
	return "none"
}

// Context is the bundle a generator works from. Only the fields relevant to
// the generator's kind are read.
type Context struct {
	GuildName   string
	ChannelName string
	History     string // rendered chat history, oldest first

	// karma announcements
	Username string
	Change   int
	Total    int

	// summaries
	Transcript string
}

type Generator interface {
	Generate(ctx context.Context, gc Context) (string, error)
}

// Set maps each kind to its generator.
type Set map[Kind]Generator

// GenerationError marks a failed call to the backing service. Replies are
// suppressed on it; state already written stays written.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generator: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
