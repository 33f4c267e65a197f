package route

import (
	"testing"
	"time"

	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/karma"
	"github.com/orangecountyai/clem/internal/store"
)

func testRouter() *Router {
	return NewRouter("bot1", "clem", "test-model")
}

func msgEvent(content string, mentions ...karma.Mention) MessageEvent {
	return MessageEvent{
		MessageID:   "m1",
		GuildName:   "Test Guild",
		ChannelID:   "c1",
		ChannelName: "general",
		AuthorID:    "u1",
		AuthorName:  "alice",
		Content:     content,
		Mentions:    mentions,
		Timestamp:   time.Now().UTC(),
	}
}

func enabled(v store.Verbosity) store.ChannelConfig {
	return store.ChannelConfig{ChannelID: "c1", Verbosity: v}
}

func TestRoute_AlwaysBuildsLogEntry(t *testing.T) {
	r := testRouter()

	cfg := store.ChannelConfig{ChannelID: "c1", Disabled: true, Verbosity: store.KarmaOnly}
	d := r.Route(msgEvent("<@200> ++", karma.Mention{ID: "200", Name: "bob"}), cfg)

	if d.Generator != gen.KindNone {
		t.Fatalf("disabled channel picked generator %v", d.Generator)
	}
	if len(d.KarmaDeltas) != 0 {
		t.Fatalf("disabled channel computed deltas %v", d.KarmaDeltas)
	}
	if d.LogEntry.Content == "" || d.LogEntry.ChannelID != "c1" || d.LogEntry.Author != "alice" {
		t.Fatalf("log entry missing or wrong: %+v", d.LogEntry)
	}
}

func TestRoute_KarmaEvent(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("<@200> +++", karma.Mention{ID: "200", Name: "bob"}), enabled(store.MentionsOnly))

	if d.Generator != gen.KindKarma {
		t.Fatalf("expected karma generator, got %v", d.Generator)
	}
	if d.KarmaDeltas["200"] != 3 {
		t.Fatalf("expected delta +3, got %v", d.KarmaDeltas)
	}
	if d.Class != ClassKarma {
		t.Fatalf("expected karma_event class, got %v", d.Class)
	}
}

func TestRoute_KarmaBeatsBotMention(t *testing.T) {
	r := testRouter()

	// tags the bot AND carries a marker run for bob
	ev := msgEvent("<@bot1> look! <@200> ++",
		karma.Mention{ID: "bot1", Name: "clem"},
		karma.Mention{ID: "200", Name: "bob"},
	)
	d := r.Route(ev, enabled(store.Unrestricted))

	if d.Class != ClassKarma {
		t.Fatalf("karma must take precedence, got class %v", d.Class)
	}
	if d.Generator != gen.KindKarma {
		t.Fatalf("expected karma generator, got %v", d.Generator)
	}
}

func TestRoute_BotMentionUnderMentionsOnly(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("hey <@bot1> what's up", karma.Mention{ID: "bot1", Name: "clem"}), enabled(store.MentionsOnly))
	if d.Generator != gen.KindChat {
		t.Fatalf("expected chat generator for bot mention, got %v", d.Generator)
	}
	if d.Class != ClassBotMention {
		t.Fatalf("expected mention_of_bot class, got %v", d.Class)
	}
}

func TestRoute_BotNameCountsAsMention(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("what do you think, Clem?"), enabled(store.MentionsOnly))
	if d.Generator != gen.KindChat {
		t.Fatalf("expected chat generator for name drop, got %v", d.Generator)
	}
}

func TestRoute_PlainMessageGating(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("nice weather today"), enabled(store.MentionsOnly))
	if d.Generator != gen.KindNone {
		t.Fatalf("plain message under mentions_only picked %v", d.Generator)
	}

	d = r.Route(msgEvent("nice weather today"), enabled(store.Unrestricted))
	if d.Generator != gen.KindChat {
		t.Fatalf("plain message under unrestricted should chat, got %v", d.Generator)
	}

	d = r.Route(msgEvent("nice weather today"), enabled(store.KarmaOnly))
	if d.Generator != gen.KindNone {
		t.Fatalf("plain message under karma_only picked %v", d.Generator)
	}
}

func TestRoute_VideoLinkIgnoresVerbosity(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("check this https://www.youtube.com/watch?v=abc123XYZ"), enabled(store.KarmaOnly))
	if d.Generator != gen.KindSummary {
		t.Fatalf("expected summary generator, got %v", d.Generator)
	}
	if d.SummaryKind != store.LinkVideo {
		t.Fatalf("expected video link, got %v", d.SummaryKind)
	}
	if d.SummaryURL != "https://www.youtube.com/watch?v=abc123XYZ" {
		t.Fatalf("unexpected summary url %q", d.SummaryURL)
	}
}

func TestRoute_WebLinkSummarized(t *testing.T) {
	r := testRouter()

	d := r.Route(msgEvent("reading https://example.com/post"), enabled(store.KarmaOnly))
	if d.Generator != gen.KindSummary || d.SummaryKind != store.LinkWeb {
		t.Fatalf("expected web summary decision, got %+v", d)
	}
}

func TestRoute_LinkBlockedWhenDisabled(t *testing.T) {
	r := testRouter()

	cfg := store.ChannelConfig{ChannelID: "c1", Disabled: true, Verbosity: store.Unrestricted}
	d := r.Route(msgEvent("https://example.com/post"), cfg)
	if d.SummaryURL != "" || d.Generator != gen.KindNone {
		t.Fatalf("disabled channel should not summarize, got %+v", d)
	}
}

func TestRoute_KarmaWithLinkStillEnqueuesSummary(t *testing.T) {
	r := testRouter()

	ev := msgEvent("<@200> ++ https://example.com/post", karma.Mention{ID: "200", Name: "bob"})
	d := r.Route(ev, enabled(store.MentionsOnly))

	if d.Generator != gen.KindKarma {
		t.Fatalf("karma should win the generator slot, got %v", d.Generator)
	}
	if d.SummaryURL == "" {
		t.Fatal("summary link should still be captured alongside karma")
	}
}

func TestRoute_BotMessageLogsOnly(t *testing.T) {
	r := testRouter()

	ev := msgEvent("I am the bot")
	ev.FromBot = true
	ev.AuthorID = "bot1"
	d := r.Route(ev, enabled(store.Unrestricted))

	if d.Generator != gen.KindNone || len(d.KarmaDeltas) != 0 {
		t.Fatalf("bot message should only log, got %+v", d)
	}
	if d.LogEntry.Model != "test-model" {
		t.Fatalf("bot-authored log entry should carry the model, got %q", d.LogEntry.Model)
	}
}

func TestRoute_CleanContentPreferredForLog(t *testing.T) {
	r := testRouter()

	ev := msgEvent("<@200> hi", karma.Mention{ID: "200", Name: "bob"})
	ev.CleanContent = "@bob hi"
	d := r.Route(ev, enabled(store.Unrestricted))

	if d.LogEntry.Content != "@bob hi" {
		t.Fatalf("log should use normalized content, got %q", d.LogEntry.Content)
	}
}

func TestRouteMemberJoin(t *testing.T) {
	r := testRouter()

	d := r.RouteMemberJoin(MemberJoinEvent{GuildName: "Test Guild", UserID: "u9", Username: "newbie"})
	if d.Generator != gen.KindWelcome {
		t.Fatalf("expected welcome generator, got %v", d.Generator)
	}
}
