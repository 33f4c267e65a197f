// Package route decides, for every inbound message, what persists and which
// generator (if any) replies.
package route

import (
	"strings"
	"time"

	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/karma"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/summarize"
)

// MessageEvent is a platform message translated into the bot's own terms.
type MessageEvent struct {
	MessageID   string
	GuildName   string
	ChannelID   string
	ChannelName string
	AuthorID    string
	AuthorName  string
	Content     string
	// CleanContent has mention tokens replaced with @username; it is what
	// gets logged. Falls back to Content when empty.
	CleanContent string
	Mentions     []karma.Mention
	FromBot      bool
	Timestamp    time.Time
}

// MemberJoinEvent triggers the welcome flow. It carries no content and skips
// classification entirely.
type MemberJoinEvent struct {
	GuildName string
	UserID    string
	Username  string
}

// Decision is what the router wants done for one event. LogEntry is always
// set: every inbound message is recorded, gated or not.
type Decision struct {
	Generator   gen.Kind // KindNone means no reply
	Class       Class
	KarmaDeltas map[string]int
	LogEntry    store.Message
	SummaryURL  string
	SummaryKind store.LinkKind
}

type Router struct {
	BotID   string
	BotName string
	Model   string
}

func NewRouter(botID, botName, model string) *Router {
	return &Router{BotID: botID, BotName: botName, Model: model}
}

// Route maps a message event plus the channel's policy to a decision. Order
// matters: the log entry exists before any gating, karma classification beats
// a bot mention, and summary links are picked up whatever the verbosity as
// long as the channel is enabled.
func (r *Router) Route(ev MessageEvent, cfg store.ChannelConfig) Decision {
	d := Decision{LogEntry: r.logEntry(ev)}

	if ev.FromBot {
		return d
	}

	deltas := karma.Parse(ev.Content, ev.Mentions, ev.AuthorID)
	d.Class = r.classify(ev, deltas)

	if cfg.Disabled {
		return d
	}

	if vid := summarize.ExtractVideoID(ev.Content); vid != "" {
		d.SummaryURL = "https://www.youtube.com/watch?v=" + vid
		d.SummaryKind = store.LinkVideo
	} else if u := summarize.ExtractURL(ev.Content); u != "" {
		d.SummaryURL = u
		d.SummaryKind = store.LinkWeb
	}

	if d.Class == ClassKarma && ShouldProcess(cfg, ClassKarma) {
		d.KarmaDeltas = deltas
		d.Generator = gen.KindKarma
		return d
	}

	if d.SummaryURL != "" {
		d.Generator = gen.KindSummary
		return d
	}

	if ShouldProcess(cfg, d.Class) {
		d.Generator = gen.KindChat
	}
	return d
}

// RouteMemberJoin selects the welcome generator. No policy or karma checks
// apply to joins.
func (r *Router) RouteMemberJoin(ev MemberJoinEvent) Decision {
	return Decision{Generator: gen.KindWelcome}
}

func (r *Router) classify(ev MessageEvent, deltas map[string]int) Class {
	if len(deltas) > 0 {
		return ClassKarma
	}
	for _, m := range ev.Mentions {
		if m.ID == r.BotID {
			return ClassBotMention
		}
	}
	if r.BotName != "" && strings.Contains(strings.ToLower(ev.Content), strings.ToLower(r.BotName)) {
		return ClassBotMention
	}
	return ClassPlain
}

func (r *Router) logEntry(ev MessageEvent) store.Message {
	content := ev.CleanContent
	if content == "" {
		content = ev.Content
	}
	m := store.Message{
		Author:    ev.AuthorName,
		AuthorID:  ev.AuthorID,
		Content:   content,
		ChannelID: ev.ChannelID,
		Timestamp: ev.Timestamp,
	}
	if ev.FromBot {
		m.Model = r.Model
	}
	return m
}
