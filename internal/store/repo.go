package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidVerbosity is returned for administrative writes outside 1..3.
// The existing config is left untouched.
var ErrInvalidVerbosity = errors.New("invalid verbosity level: choose 1, 2, or 3")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) AppendMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecentMessagesDesc returns the most recent channel messages in DESC
// timestamp order (newest -> oldest).
func (r *Repo) ListRecentMessagesDesc(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteChannelMessages wipes the log for one channel (the !reset_chat command).
func (r *Repo) DeleteChannelMessages(ctx context.Context, channelID string) error {
	return r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&Message{}).Error
}

// GetKarma returns the user's karma total, 0 when the user has no entry.
func (r *Repo) GetKarma(ctx context.Context, userID string) (int, error) {
	var e KarmaEntry
	err := r.db.WithContext(ctx).First(&e, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return e.Karma, nil
}

// ApplyKarmaDelta adds delta to the user's karma as a single atomic upsert
// and returns the new total. Concurrent deltas for the same user accumulate;
// the increment happens in the database, not as read-then-write.
func (r *Repo) ApplyKarmaDelta(ctx context.Context, userID, username string, delta int) (int, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"karma":    gorm.Expr("karma + ?", delta),
			"username": username,
		}),
	}).Create(&KarmaEntry{UserID: userID, Username: username, Karma: delta}).Error
	if err != nil {
		return 0, err
	}
	return r.GetKarma(ctx, userID)
}

// TopKarma returns the highest-karma entries, best first.
func (r *Repo) TopKarma(ctx context.Context, limit int) ([]KarmaEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var entries []KarmaEntry
	if err := r.db.WithContext(ctx).
		Order("karma DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// GetChannelConfig returns the stored config for a channel, or the default
// when no row exists.
func (r *Repo) GetChannelConfig(ctx context.Context, channelID string) (ChannelConfig, error) {
	var cfg ChannelConfig
	err := r.db.WithContext(ctx).First(&cfg, "channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultChannelConfig(channelID), nil
	}
	if err != nil {
		return ChannelConfig{}, err
	}
	return cfg, nil
}

// ToggleChannelDisabled flips the disabled flag, creating the row with
// defaults on first use, and returns the new config.
func (r *Repo) ToggleChannelDisabled(ctx context.Context, channelID string) (ChannelConfig, error) {
	cfg, err := r.GetChannelConfig(ctx, channelID)
	if err != nil {
		return ChannelConfig{}, err
	}
	cfg.Disabled = !cfg.Disabled

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.Assignments(map[string]any{"disabled": cfg.Disabled}),
	}).Create(&cfg).Error
	if err != nil {
		return ChannelConfig{}, err
	}
	return cfg, nil
}

// SetChannelVerbosity stores a new verbosity level for the channel. Values
// outside the enum are rejected with ErrInvalidVerbosity and nothing changes.
func (r *Repo) SetChannelVerbosity(ctx context.Context, channelID string, v Verbosity) (ChannelConfig, error) {
	if !v.Valid() {
		return ChannelConfig{}, ErrInvalidVerbosity
	}

	cfg := ChannelConfig{ChannelID: channelID, Verbosity: v}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.Assignments(map[string]any{"verbosity": v}),
	}).Create(&cfg).Error
	if err != nil {
		return ChannelConfig{}, err
	}
	return r.GetChannelConfig(ctx, channelID)
}

// Summary job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *SummaryJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*SummaryJob, error) {
	var j SummaryJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&SummaryJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&SummaryJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobSucceeded,
			"error":  nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&SummaryJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": JobFailed,
			"error":  errMsg,
		}).Error
}
