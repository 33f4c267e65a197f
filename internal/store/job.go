package store

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type LinkKind string

const (
	LinkVideo LinkKind = "video"
	LinkWeb   LinkKind = "web"
)

// SummaryJob is a queued request to summarize a link posted in a channel.
// The gateway enqueues it and the worker replies in-channel when done.
type SummaryJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	ChannelID string   `gorm:"size:32;index;not null"`
	MessageID string   `gorm:"size:32;not null"` // message to reply to
	Kind      LinkKind `gorm:"type:varchar(8);not null"`
	URL       string   `gorm:"type:text;not null"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SummaryJob) TableName() string { return "summary_jobs" }

// NewJobID returns a new ULID for a summary job.
func NewJobID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
