package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/karma"
	"github.com/orangecountyai/clem/internal/route"
	"github.com/orangecountyai/clem/internal/store"
)

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(channelID, content string) error {
	f.sent = append(f.sent, content)
	return nil
}

type fakeGenerator struct {
	out   string
	fail  bool
	calls int
	last  gen.Context
}

func (f *fakeGenerator) Generate(ctx context.Context, gc gen.Context) (string, error) {
	_ = ctx
	f.calls++
	f.last = gc
	if f.fail {
		return "", &gen.GenerationError{Kind: gen.KindKarma, Err: errors.New("backend down")}
	}
	return f.out, nil
}

type fixture struct {
	repo       *store.Repo
	dispatcher *Dispatcher
	sender     *fakeSender
	karmaGen   *fakeGenerator
	chatGen    *fakeGenerator
	welcomeGen *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&store.Message{}, &store.KarmaEntry{}, &store.ChannelConfig{}, &store.SummaryJob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	repo := store.NewRepo(db)

	karmaGen := &fakeGenerator{out: "**bob** gained karma!"}
	chatGen := &fakeGenerator{out: "hello there"}
	welcomeGen := &fakeGenerator{out: "welcome aboard"}

	sender := &fakeSender{}
	router := route.NewRouter("bot1", "clem", "test-model")
	dispatcher := NewDispatcher(router, repo, nil, gen.Set{
		gen.KindKarma:   karmaGen,
		gen.KindChat:    chatGen,
		gen.KindWelcome: welcomeGen,
	}, nil, sender, 10)

	return &fixture{
		repo:       repo,
		dispatcher: dispatcher,
		sender:     sender,
		karmaGen:   karmaGen,
		chatGen:    chatGen,
		welcomeGen: welcomeGen,
	}
}

func event(content string, mentions ...karma.Mention) route.MessageEvent {
	return route.MessageEvent{
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

func countMessages(t *testing.T, repo *store.Repo, channelID string) int {
	t.Helper()
	msgs, err := repo.ListRecentMessagesDesc(context.Background(), channelID, 100)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	return len(msgs)
}

func TestDispatch_KarmaFlow(t *testing.T) {
	f := newFixture(t)

	err := f.dispatcher.Dispatch(event("<@200> ++", karma.Mention{ID: "200", Name: "bob"}))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	total, err := f.repo.GetKarma(context.Background(), "200")
	if err != nil {
		t.Fatalf("get karma: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected karma 2, got %d", total)
	}

	if f.karmaGen.calls != 1 {
		t.Fatalf("expected one announcement call, got %d", f.karmaGen.calls)
	}
	if f.karmaGen.last.Username != "bob" || f.karmaGen.last.Change != 2 || f.karmaGen.last.Total != 2 {
		t.Fatalf("announcement context wrong: %+v", f.karmaGen.last)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("expected one send, got %v", f.sender.sent)
	}

	// inbound + announcement both logged
	if n := countMessages(t, f.repo, "c1"); n != 2 {
		t.Fatalf("expected 2 log entries, got %d", n)
	}
}

func TestDispatch_KarmaCommittedWhenGeneratorFails(t *testing.T) {
	f := newFixture(t)
	f.karmaGen.fail = true

	err := f.dispatcher.Dispatch(event("<@200> +++", karma.Mention{ID: "200", Name: "bob"}))
	if err != nil {
		t.Fatalf("generator failure must not fail the event: %v", err)
	}

	total, err := f.repo.GetKarma(context.Background(), "200")
	if err != nil {
		t.Fatalf("get karma: %v", err)
	}
	if total != 3 {
		t.Fatalf("ledger must be updated despite failed announcement, got %d", total)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("no reply expected, got %v", f.sender.sent)
	}
	// inbound message still logged, no outbound entry
	if n := countMessages(t, f.repo, "c1"); n != 1 {
		t.Fatalf("expected 1 log entry, got %d", n)
	}
}

func TestDispatch_LogsEvenWhenGated(t *testing.T) {
	f := newFixture(t)

	// plain message under default mentions_only: no reply, but recorded
	if err := f.dispatcher.Dispatch(event("just chatting")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if f.chatGen.calls != 0 {
		t.Fatal("plain message should not reach the chat generator")
	}
	if n := countMessages(t, f.repo, "c1"); n != 1 {
		t.Fatalf("expected the gated message to be logged, got %d entries", n)
	}
}

func TestDispatch_DisabledChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.repo.ToggleChannelDisabled(ctx, "c1"); err != nil {
		t.Fatalf("disable channel: %v", err)
	}

	if err := f.dispatcher.Dispatch(event("<@200> ++", karma.Mention{ID: "200", Name: "bob"})); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	total, _ := f.repo.GetKarma(ctx, "200")
	if total != 0 {
		t.Fatalf("disabled channel must not move karma, got %d", total)
	}
	if n := countMessages(t, f.repo, "c1"); n != 1 {
		t.Fatalf("message still gets logged when disabled, got %d entries", n)
	}
}

func TestDispatch_ChatUnderUnrestricted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.repo.SetChannelVerbosity(ctx, "c1", store.Unrestricted); err != nil {
		t.Fatalf("set verbosity: %v", err)
	}

	if err := f.dispatcher.Dispatch(event("what a day")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if f.chatGen.calls != 1 {
		t.Fatalf("expected one chat call, got %d", f.chatGen.calls)
	}
	if !strings.Contains(f.chatGen.last.History, "alice: what a day") {
		t.Fatalf("history should include the inbound message, got %q", f.chatGen.last.History)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0] != "hello there" {
		t.Fatalf("unexpected sends: %v", f.sender.sent)
	}
	// outbound reply is logged with the model
	msgs, _ := f.repo.ListRecentMessagesDesc(ctx, "c1", 10)
	if len(msgs) != 2 || msgs[0].Model != "test-model" {
		t.Fatalf("outbound log entry missing model: %+v", msgs)
	}
}

func TestDispatch_DuplicateReplySuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.repo.SetChannelVerbosity(ctx, "c1", store.Unrestricted); err != nil {
		t.Fatalf("set verbosity: %v", err)
	}
	// bot said exactly this before
	if err := f.repo.AppendMessage(ctx, &store.Message{
		Author: "clem", AuthorID: "bot1", Content: "hello there",
		ChannelID: "c1", Model: "test-model", Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed bot message: %v", err)
	}

	if err := f.dispatcher.Dispatch(event("say hi")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("repeated reply should be suppressed, got %v", f.sender.sent)
	}
}

func TestDispatch_MemberJoin(t *testing.T) {
	f := newFixture(t)

	f.dispatcher.DispatchMemberJoin(route.MemberJoinEvent{
		GuildName: "Test Guild",
		UserID:    "u9",
		Username:  "newbie",
	}, "c-general")

	if f.welcomeGen.calls != 1 {
		t.Fatalf("expected welcome call, got %d", f.welcomeGen.calls)
	}
	if len(f.sender.sent) != 1 || !strings.Contains(f.sender.sent[0], "<@u9>") {
		t.Fatalf("welcome should mention the member, got %v", f.sender.sent)
	}
}

func TestDispatch_MultipleKarmaTargets(t *testing.T) {
	f := newFixture(t)

	ev := event("<@200> ++ and <@300> -",
		karma.Mention{ID: "200", Name: "bob"},
		karma.Mention{ID: "300", Name: "carol"},
	)
	if err := f.dispatcher.Dispatch(ev); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	ctx := context.Background()
	if total, _ := f.repo.GetKarma(ctx, "200"); total != 2 {
		t.Fatalf("bob: expected 2, got %d", total)
	}
	if total, _ := f.repo.GetKarma(ctx, "300"); total != -1 {
		t.Fatalf("carol: expected -1, got %d", total)
	}
	if f.karmaGen.calls != 2 {
		t.Fatalf("expected one announcement per user, got %d", f.karmaGen.calls)
	}
}
