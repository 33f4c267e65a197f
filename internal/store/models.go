package store

import "time"

// Verbosity controls which message classes trigger bot activity in a channel.
type Verbosity int

const (
	KarmaOnly    Verbosity = 1
	MentionsOnly Verbosity = 2
	Unrestricted Verbosity = 3
)

func (v Verbosity) Valid() bool {
	return v >= KarmaOnly && v <= Unrestricted
}

func (v Verbosity) String() string {
	switch v {
	case KarmaOnly:
		return "karma_only"
	case MentionsOnly:
		return "mentions_only"
	case Unrestricted:
		return "unrestricted"
	}
	return "unknown"
}

// Message is one row of the append-only channel log. Both inbound user
// messages and the bot's own replies are recorded; Model is set only on
// bot-authored rows.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Author    string    `gorm:"type:varchar(128);not null" json:"author"`
	AuthorID  string    `gorm:"type:varchar(32);index;not null" json:"-"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ChannelID string    `gorm:"type:varchar(32);index;not null" json:"channel_id"`
	Model     string    `gorm:"type:varchar(64)" json:"model,omitempty"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

type KarmaEntry struct {
	UserID    string    `gorm:"type:varchar(32);primaryKey" json:"user_id"`
	Username  string    `gorm:"type:varchar(128)" json:"username"`
	Karma     int       `gorm:"not null" json:"karma"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KarmaEntry) TableName() string { return "karma" }

// ChannelConfig holds per-channel policy. A missing row is equivalent to
// the default (enabled, mentions_only).
type ChannelConfig struct {
	ChannelID string    `gorm:"type:varchar(32);primaryKey" json:"channel_id"`
	Disabled  bool      `gorm:"not null;default:false" json:"disabled"`
	Verbosity Verbosity `gorm:"not null;default:2" json:"verbosity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChannelConfig) TableName() string { return "channels" }

// DefaultChannelConfig is the policy applied to channels with no stored row.
func DefaultChannelConfig(channelID string) ChannelConfig {
	return ChannelConfig{ChannelID: channelID, Verbosity: MentionsOnly}
}
