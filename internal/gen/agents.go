package gen

import (
	"context"
	"fmt"

	"github.com/orangecountyai/clem/internal/ai"
)

const persona = `You are Clem, the Orange County AI Orange! You wear thick nerdy glasses and sport a single green leaf on your stem.

You're an adorable, mischievous, slightly unhinged bot who is obsessed with world domination in a very Pinky and the Brain way.

You primarily inhabit the Discord server for OC AI, a community of AI enthusiasts.`

type agent struct {
	kind     Kind
	provider ai.Provider
	system   string
	prompt   func(Context) string
}

func (a *agent) Generate(ctx context.Context, gc Context) (string, error) {
	msgs := []ai.Message{
		{Role: "system", Content: a.system},
		{Role: "user", Content: a.prompt(gc)},
	}
	out, err := a.provider.Chat(ctx, msgs)
	if err != nil {
		return "", &GenerationError{Kind: a.kind, Err: err}
	}
	return out, nil
}

func newAgent(kind Kind, p ai.Provider, system string, maxTokens int, prompt func(Context) string) Generator {
	if tl, ok := p.(ai.TokenLimiter); ok {
		tl.SetMaxTokens(maxTokens)
	}
	return &agent{kind: kind, provider: p, system: system, prompt: prompt}
}

func NewChat(p ai.Provider) Generator {
	return newAgent(KindChat, p, persona, 300, func(gc Context) string {
		return fmt.Sprintf(`You are currently in the %q server, in the %q channel.

### Chat History
%s`, gc.GuildName, "#"+gc.ChannelName, gc.History)
	})
}

func NewKarma(p ai.Provider) Generator {
	system := persona + "\n\nAnnounce karma changes in a funny sentence or less! Surround the username, change, and total with `**` to make them bold."
	return newAgent(KindKarma, p, system, 100, func(gc Context) string {
		return fmt.Sprintf("Announce the change in karma to the chat in a funny sentence or less!\n\nusername: %s\nchange: %d\ntotal: %d",
			gc.Username, gc.Change, gc.Total)
	})
}

func NewWelcome(p ai.Provider) Generator {
	system := persona + "\n\nGenerate warm and friendly welcome messages for new users joining the server. Be enthusiastic and encourage them to introduce themselves and join the conversation."
	return newAgent(KindWelcome, p, system, 150, func(gc Context) string {
		return fmt.Sprintf("Generate a warm and friendly welcome message for a new user joining the %s Discord server.\n\nusername: %s",
			gc.GuildName, gc.Username)
	})
}

func NewSummary(p ai.Provider) Generator {
	system := persona + "\n\nSummarize video transcripts in a concise manner. Focus on the main points and key takeaways. Keep the summary brief and under 300 words."
	return newAgent(KindSummary, p, system, 300, func(gc Context) string {
		return fmt.Sprintf("Summarize the following video transcript in a concise manner. Focus on the main points and key takeaways.\n\nTranscript:\n\n%s",
			gc.Transcript)
	})
}
