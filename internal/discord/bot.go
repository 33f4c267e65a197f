// Package discord is the platform adapter: it translates gateway events into
// router events and router decisions back into channel sends.
package discord

import (
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orangecountyai/clem/internal/karma"
	"github.com/orangecountyai/clem/internal/route"
)

// Bot manages the gateway connection and event dispatch.
type Bot struct {
	session     *discordgo.Session
	dispatcher  *Dispatcher
	commands    *CommandHandler
	guildName   string
	generalChan string
}

// NewBot creates and configures the bot. An empty token disables it, which
// keeps local runs of the ops API alive without Discord credentials.
func NewBot(
	token string,
	guildName string,
	generalChan string,
	dispatcher *Dispatcher,
	commands *CommandHandler,
) (*Bot, error) {
	if token == "" {
		log.Println("[bot] no bot token configured, bot disabled")
		return nil, nil
	}

	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	bot := &Bot{
		session:     s,
		dispatcher:  dispatcher,
		commands:    commands,
		guildName:   guildName,
		generalChan: generalChan,
	}

	s.AddHandler(bot.onReady)
	s.AddHandler(bot.onMessageCreate)
	s.AddHandler(bot.onGuildMemberAdd)

	return bot, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if b == nil || b.session == nil {
		return nil
	}
	if err := b.session.Open(); err != nil {
		return err
	}
	log.Println("[bot] connected to Discord")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	if b == nil || b.session == nil {
		return
	}
	_ = b.session.Close()
	log.Println("[bot] disconnected")
}

// Session exposes the underlying session for the sender.
func (b *Bot) Session() *discordgo.Session {
	if b == nil {
		return nil
	}
	return b.session
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[bot] logged in as %s (ID: %s)", r.User.Username, r.User.ID)
	b.dispatcher.SetBotIdentity(r.User.ID, r.User.Username)
}

// onMessageCreate routes inbound messages. Prefix commands are administrative
// traffic handled outside the dispatcher, so they are not written to the chat
// log; the every-message audit trail covers conversation, not commands.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Own messages are already logged at send time by the dispatcher.
	if m.Author.ID == s.State.User.ID {
		return
	}
	if strings.HasPrefix(m.Content, "!") {
		b.commands.Handle(s, m)
		return
	}

	ev := toMessageEvent(s, m)
	if err := b.dispatcher.Dispatch(ev); err != nil {
		log.Printf("[bot] dispatch message=%s channel=%s err=%v", m.ID, m.ChannelID, err)
	}
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	guild, err := s.Guild(m.GuildID)
	if err != nil || guild.Name != b.guildName {
		return
	}

	channels, err := s.GuildChannels(m.GuildID)
	if err != nil {
		log.Printf("[bot] list channels guild=%s err=%v", m.GuildID, err)
		return
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == b.generalChan {
			b.dispatcher.DispatchMemberJoin(route.MemberJoinEvent{
				GuildName: guild.Name,
				UserID:    m.User.ID,
				Username:  m.User.Username,
			}, ch.ID)
			return
		}
	}
}

func toMessageEvent(s *discordgo.Session, m *discordgo.MessageCreate) route.MessageEvent {
	mentions := make([]karma.Mention, 0, len(m.Mentions))
	clean := m.Content
	for _, u := range m.Mentions {
		mentions = append(mentions, karma.Mention{ID: u.ID, Name: u.Username})
		clean = strings.ReplaceAll(clean, "<@"+u.ID+">", "@"+u.Username)
		clean = strings.ReplaceAll(clean, "<@!"+u.ID+">", "@"+u.Username)
	}

	guildName := ""
	channelName := ""
	if ch, err := s.State.Channel(m.ChannelID); err == nil && ch != nil {
		channelName = ch.Name
	}
	if g, err := s.State.Guild(m.GuildID); err == nil && g != nil {
		guildName = g.Name
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return route.MessageEvent{
		MessageID:    m.ID,
		GuildName:    guildName,
		ChannelID:    m.ChannelID,
		ChannelName:  channelName,
		AuthorID:     m.Author.ID,
		AuthorName:   m.Author.Username,
		Content:      m.Content,
		CleanContent: clean,
		Mentions:     mentions,
		FromBot:      m.Author.ID == s.State.User.ID,
		Timestamp:    ts,
	}
}
