package discord

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/sentry-go"

	"github.com/orangecountyai/clem/internal/gen"
	"github.com/orangecountyai/clem/internal/route"
	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/rabbitmq"
	"github.com/orangecountyai/clem/internal/store/redisstore"
)

// Sender delivers replies to the platform. Narrow so tests can fake it.
type Sender interface {
	Send(channelID, content string) error
}

// SessionSender sends through the live gateway session.
type SessionSender struct {
	Session *discordgo.Session
}

func (s *SessionSender) Send(channelID, content string) error {
	_, err := s.Session.ChannelMessageSend(channelID, content)
	return err
}

// Dispatcher executes router decisions: it commits state, invokes the chosen
// generator, and delivers the reply. Each inbound event is one independent
// unit of work; a failed event never takes the process down.
type Dispatcher struct {
	mu     sync.RWMutex
	router *route.Router

	repo   *store.Repo
	cache  *redisstore.Store
	gens   gen.Set
	queue  *rabbitmq.Queue
	sender Sender

	historyWindow int
}

func NewDispatcher(
	router *route.Router,
	repo *store.Repo,
	cache *redisstore.Store,
	gens gen.Set,
	queue *rabbitmq.Queue,
	sender Sender,
	historyWindow int,
) *Dispatcher {
	if historyWindow <= 0 {
		historyWindow = 100
	}
	return &Dispatcher{
		router:        router,
		repo:          repo,
		cache:         cache,
		gens:          gens,
		queue:         queue,
		sender:        sender,
		historyWindow: historyWindow,
	}
}

// SetBotIdentity records the bot's own user once the gateway reports it.
func (d *Dispatcher) SetBotIdentity(id, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.router.BotID = id
	d.router.BotName = name
}

// SetSender binds the delivery channel once the session exists.
func (d *Dispatcher) SetSender(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sender = s
}

// ChannelConfig is a read-through: Redis first, database on miss. A config
// read failure degrades to the default policy rather than dropping the event.
func (d *Dispatcher) ChannelConfig(ctx context.Context, channelID string) store.ChannelConfig {
	if cfg, ok := d.cache.GetChannelConfig(ctx, channelID); ok {
		return cfg
	}
	cfg, err := d.repo.GetChannelConfig(ctx, channelID)
	if err != nil {
		log.Printf("channel config read channel=%s err=%v", channelID, err)
		return store.DefaultChannelConfig(channelID)
	}
	d.cache.SetChannelConfig(ctx, cfg)
	return cfg
}

// Dispatch runs one message event end to end. The returned error means the
// event could not uphold the log/ledger invariant; callers log it and move
// on to the next event.
func (d *Dispatcher) Dispatch(ev route.MessageEvent) error {
	ctx := context.Background()

	log.Printf("%s (ID: %s): %s", ev.AuthorName, ev.AuthorID, ev.Content)

	cfg := d.ChannelConfig(ctx, ev.ChannelID)

	d.mu.RLock()
	decision := d.router.Route(ev, cfg)
	d.mu.RUnlock()

	// The log entry is committed before anything else. A store failure here
	// is fatal for this event: silently losing history would break the audit
	// trail.
	if err := d.repo.AppendMessage(ctx, &decision.LogEntry); err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("append message: %w", err)
	}

	if decision.SummaryURL != "" {
		d.enqueueSummary(ctx, ev, decision)
	}

	switch decision.Generator {
	case gen.KindKarma:
		return d.announceKarma(ctx, ev, decision)
	case gen.KindChat:
		return d.chat(ctx, ev)
	}
	return nil
}

// announceKarma applies each delta atomically, then announces it. Deltas are
// committed before the generator runs and stay committed if it fails.
func (d *Dispatcher) announceKarma(ctx context.Context, ev route.MessageEvent, decision route.Decision) error {
	names := make(map[string]string, len(ev.Mentions))
	for _, m := range ev.Mentions {
		names[m.ID] = m.Name
	}

	userIDs := make([]string, 0, len(decision.KarmaDeltas))
	for id := range decision.KarmaDeltas {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		change := decision.KarmaDeltas[userID]

		total, err := d.repo.ApplyKarmaDelta(ctx, userID, names[userID], change)
		if err != nil {
			sentry.CaptureException(err)
			return fmt.Errorf("apply karma user=%s: %w", userID, err)
		}

		announcement, err := d.gens[gen.KindKarma].Generate(ctx, gen.Context{
			Username: names[userID],
			Change:   change,
			Total:    total,
		})
		if err != nil {
			// ledger already updated; only the announcement is lost
			log.Printf("karma announcement user=%s err=%v", userID, err)
			sentry.CaptureException(err)
			continue
		}
		d.reply(ctx, ev.ChannelID, announcement)
	}
	return nil
}

func (d *Dispatcher) chat(ctx context.Context, ev route.MessageEvent) error {
	history, err := d.repo.ListRecentMessagesDesc(ctx, ev.ChannelID, d.historyWindow)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	// oldest first for the prompt
	lines := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		lines = append(lines, history[i].Author+": "+history[i].Content)
	}

	reply, err := d.gens[gen.KindChat].Generate(ctx, gen.Context{
		GuildName:   ev.GuildName,
		ChannelName: ev.ChannelName,
		History:     strings.Join(lines, "\n"),
	})
	if err != nil {
		log.Printf("chat reply channel=%s err=%v", ev.ChannelID, err)
		sentry.CaptureException(err)
		return nil
	}

	if d.isRepetitive(history, reply) {
		log.Printf("duplicate reply suppressed channel=%s", ev.ChannelID)
		return nil
	}

	d.reply(ctx, ev.ChannelID, reply)
	return nil
}

// isRepetitive drops a reply that parrots the channel's last user message or
// repeats the bot's own last message.
func (d *Dispatcher) isRepetitive(historyDesc []store.Message, reply string) bool {
	d.mu.RLock()
	botID := d.router.BotID
	d.mu.RUnlock()

	var lastUser, lastBot *store.Message
	for i := range historyDesc {
		m := &historyDesc[i]
		if m.AuthorID == botID {
			if lastBot == nil {
				lastBot = m
			}
		} else if lastUser == nil {
			lastUser = m
		}
		if lastUser != nil && lastBot != nil {
			break
		}
	}

	if lastUser != nil && strings.EqualFold(lastUser.Content, reply) {
		return true
	}
	if lastBot != nil && lastBot.Content == reply {
		return true
	}
	return false
}

// DispatchMemberJoin runs the welcome flow into the given channel.
func (d *Dispatcher) DispatchMemberJoin(ev route.MemberJoinEvent, channelID string) {
	ctx := context.Background()

	d.mu.RLock()
	decision := d.router.RouteMemberJoin(ev)
	d.mu.RUnlock()
	if decision.Generator != gen.KindWelcome {
		return
	}

	welcome, err := d.gens[gen.KindWelcome].Generate(ctx, gen.Context{
		GuildName: ev.GuildName,
		Username:  ev.Username,
	})
	if err != nil {
		log.Printf("welcome user=%s err=%v", ev.Username, err)
		sentry.CaptureException(err)
		return
	}

	d.reply(ctx, channelID, fmt.Sprintf("<@%s> %s", ev.UserID, welcome))
}

func (d *Dispatcher) enqueueSummary(ctx context.Context, ev route.MessageEvent, decision route.Decision) {
	if d.queue == nil {
		log.Printf("summary queue not configured, skipping url=%s", decision.SummaryURL)
		return
	}

	jobID, err := store.NewJobID()
	if err != nil {
		log.Printf("summary job id err=%v", err)
		return
	}
	job := &store.SummaryJob{
		ID:        jobID,
		ChannelID: ev.ChannelID,
		MessageID: ev.MessageID,
		Kind:      decision.SummaryKind,
		URL:       decision.SummaryURL,
		Status:    store.JobQueued,
	}
	if err := d.repo.CreateJob(ctx, job); err != nil {
		log.Printf("summary job create url=%s err=%v", decision.SummaryURL, err)
		sentry.CaptureException(err)
		return
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		log.Printf("summary job publish job=%s err=%v", jobID, err)
		sentry.CaptureException(err)
	}
}

// reply sends and records the bot's own message. The outbound log write is
// best effort; a failed send is logged and dropped.
func (d *Dispatcher) reply(ctx context.Context, channelID, content string) {
	d.mu.RLock()
	sender := d.sender
	d.mu.RUnlock()
	if sender == nil {
		log.Printf("no sender bound, dropping reply channel=%s", channelID)
		return
	}

	if err := sender.Send(channelID, content); err != nil {
		log.Printf("send channel=%s err=%v", channelID, err)
		return
	}

	d.mu.RLock()
	entry := store.Message{
		Author:    d.router.BotName,
		AuthorID:  d.router.BotID,
		Content:   content,
		ChannelID: channelID,
		Model:     d.router.Model,
		Timestamp: time.Now().UTC(),
	}
	d.mu.RUnlock()

	if err := d.repo.AppendMessage(ctx, &entry); err != nil {
		log.Printf("log outbound channel=%s err=%v", channelID, err)
		sentry.CaptureException(err)
	}
}
