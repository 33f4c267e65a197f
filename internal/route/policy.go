package route

import "github.com/orangecountyai/clem/internal/store"

// Class is the router's reading of an inbound message.
type Class int

const (
	ClassPlain Class = iota
	ClassKarma
	ClassBotMention
)

func (c Class) String() string {
	switch c {
	case ClassKarma:
		return "karma_event"
	case ClassBotMention:
		return "mention_of_bot"
	}
	return "plain_message"
}

// ShouldProcess applies the channel's policy to a message class. A disabled
// channel processes nothing, whatever its verbosity.
func ShouldProcess(cfg store.ChannelConfig, c Class) bool {
	if cfg.Disabled {
		return false
	}
	switch cfg.Verbosity {
	case store.KarmaOnly:
		return c == ClassKarma
	case store.Unrestricted:
		return true
	default: // MentionsOnly, and anything unknown falls back to the default
		return c == ClassKarma || c == ClassBotMention
	}
}
