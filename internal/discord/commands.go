package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orangecountyai/clem/internal/store"
	"github.com/orangecountyai/clem/internal/store/redisstore"
)

// CommandHandler processes the bot's prefix commands. All of them mutate
// channel state, so they are restricted to the moderator role.
type CommandHandler struct {
	repo          *store.Repo
	cache         *redisstore.Store
	moderatorRole string
}

func NewCommandHandler(repo *store.Repo, cache *redisstore.Store, moderatorRole string) *CommandHandler {
	return &CommandHandler{repo: repo, cache: cache, moderatorRole: moderatorRole}
}

// Handle dispatches a prefix command through a plain name-to-handler table.
func (h *CommandHandler) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	parts := strings.Fields(m.Content)
	if len(parts) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch strings.ToLower(parts[0]) {
	case "!toggle_clem":
		if !h.requireModerator(s, m) {
			return
		}
		h.cmdToggle(ctx, s, m)
	case "!set_verbosity":
		if !h.requireModerator(s, m) {
			return
		}
		if len(parts) < 2 {
			s.ChannelMessageSend(m.ChannelID, "Usage: `!set_verbosity <1|2|3>`")
			return
		}
		h.cmdSetVerbosity(ctx, s, m, parts[1])
	case "!reset_chat":
		if !h.requireModerator(s, m) {
			return
		}
		h.cmdResetChat(ctx, s, m)
	case "!karma":
		h.cmdKarma(ctx, s, m)
	case "!help":
		h.cmdHelp(s, m)
	}
}

func (h *CommandHandler) requireModerator(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if h.isModerator(s, m) {
		return true
	}
	s.ChannelMessageSend(m.ChannelID,
		fmt.Sprintf("You don't have permission to use this command. Only members of the %s can use it.", h.moderatorRole))
	return false
}

func (h *CommandHandler) isModerator(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Member == nil {
		return false
	}
	roles, err := s.GuildRoles(m.GuildID)
	if err != nil {
		log.Printf("[commands] guild roles guild=%s err=%v", m.GuildID, err)
		return false
	}
	byID := make(map[string]string, len(roles))
	for _, r := range roles {
		byID[r.ID] = r.Name
	}
	for _, id := range m.Member.Roles {
		if byID[id] == h.moderatorRole {
			return true
		}
	}
	return false
}

func (h *CommandHandler) cmdToggle(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	cfg, err := h.repo.ToggleChannelDisabled(ctx, m.ChannelID)
	if err != nil {
		log.Printf("[commands] toggle channel=%s err=%v", m.ChannelID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong toggling Clem here.")
		return
	}
	h.cache.InvalidateChannel(ctx, m.ChannelID)

	status := "enabled"
	if cfg.Disabled {
		status = "disabled"
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Clem has been %s in this channel.", status))
}

func (h *CommandHandler) cmdSetVerbosity(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, arg string) {
	level, convErr := strconv.Atoi(arg)
	if convErr != nil {
		s.ChannelMessageSend(m.ChannelID, "Invalid verbosity level. Please choose 1, 2, or 3.")
		return
	}

	cfg, err := h.repo.SetChannelVerbosity(ctx, m.ChannelID, store.Verbosity(level))
	if errors.Is(err, store.ErrInvalidVerbosity) {
		s.ChannelMessageSend(m.ChannelID, "Invalid verbosity level. Please choose 1, 2, or 3.")
		return
	}
	if err != nil {
		log.Printf("[commands] set verbosity channel=%s err=%v", m.ChannelID, err)
		s.ChannelMessageSend(m.ChannelID, "Something went wrong setting the verbosity level.")
		return
	}
	h.cache.InvalidateChannel(ctx, m.ChannelID)

	descriptions := map[store.Verbosity]string{
		store.KarmaOnly:    "Karma changes only",
		store.MentionsOnly: "Mentions only",
		store.Unrestricted: "Unrestricted",
	}
	s.ChannelMessageSend(m.ChannelID,
		fmt.Sprintf("Clem's verbosity level has been set to %d (%s) in this channel.", level, descriptions[cfg.Verbosity]))
}

func (h *CommandHandler) cmdResetChat(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if err := h.repo.DeleteChannelMessages(ctx, m.ChannelID); err != nil {
		log.Printf("[commands] reset chat channel=%s err=%v", m.ChannelID, err)
		s.ChannelMessageSend(m.ChannelID, "An error occurred while resetting the chat history.")
		return
	}
	log.Printf("[commands] chat history reset channel=%s", m.ChannelID)
	s.ChannelMessageSend(m.ChannelID, "Chat history for this channel has been reset.")
}

func (h *CommandHandler) cmdKarma(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	userID := m.Author.ID
	name := m.Author.Username
	if len(m.Mentions) > 0 {
		userID = m.Mentions[0].ID
		name = m.Mentions[0].Username
	}

	total, err := h.repo.GetKarma(ctx, userID)
	if err != nil {
		log.Printf("[commands] karma lookup user=%s err=%v", userID, err)
		s.ChannelMessageSend(m.ChannelID, "Couldn't look that up right now.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("**%s** has **%d** karma.", name, total))
}

func (h *CommandHandler) cmdHelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	s.ChannelMessageSend(m.ChannelID, strings.Join([]string{
		"`!karma [@user]` — show karma",
		"`!toggle_clem` — toggle automatic responses in this channel (moderators)",
		"`!set_verbosity <1|2|3>` — 1 karma only, 2 mentions only, 3 unrestricted (moderators)",
		"`!reset_chat` — clear this channel's chat history (moderators)",
	}, "\n"))
}
