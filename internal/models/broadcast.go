package models

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast lifecycle statuses. A record in StatusEnded or StatusOverridden
// is terminal; the slot itself is not, a new scheduled record can always be
// created for the next session.
const (
	StatusScheduled  = "scheduled"
	StatusLive       = "live"
	StatusEnded      = "ended"
	StatusOverridden = "overridden"
)

// Broadcast is the local lifecycle record for one remote broadcast.
// Records are never deleted; an override demotes the prior active record
// to overridden instead of removing it.
type Broadcast struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	RemoteBroadcastID  string     `json:"remote_broadcast_id" db:"remote_broadcast_id"`
	RemoteStreamID     *string    `json:"remote_stream_id,omitempty" db:"remote_stream_id"`
	Title              string     `json:"title" db:"title"`
	Description        string     `json:"description" db:"description"`
	ThumbnailURL       *string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ScheduledStartTime *time.Time `json:"scheduled_start_time,omitempty" db:"scheduled_start_time"`
	ActualStartTime    *time.Time `json:"actual_start_time,omitempty" db:"actual_start_time"`
	ActualEndTime      *time.Time `json:"actual_end_time,omitempty" db:"actual_end_time"`
	// Ingest credentials are set only for locally-created broadcasts and
	// must never appear in logs or list responses.
	RTMPIngestURL      *string   `json:"rtmp_ingest_url,omitempty" db:"rtmp_ingest_url"`
	StreamKey          *string   `json:"-" db:"stream_key"`
	Status             string    `json:"status" db:"status"`
	IsOverride         bool      `json:"is_override" db:"is_override"`
	RecordingAvailable bool      `json:"recording_available" db:"recording_available"`
	RecordingURL       *string   `json:"recording_url,omitempty" db:"recording_url"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Active reports whether the record occupies the canonical session slot.
func (b *Broadcast) Active() bool {
	return b.Status == StatusScheduled || b.Status == StatusLive
}

type CreateSessionRequest struct {
	Title              string    `json:"title" binding:"required"`
	Description        string    `json:"description"`
	ScheduledStartTime time.Time `json:"scheduled_start_time" binding:"required"`
}

type UpdateSessionRequest struct {
	Title              string     `json:"title" binding:"required"`
	Description        string     `json:"description"`
	ScheduledStartTime *time.Time `json:"scheduled_start_time"`
}

type OverrideSessionRequest struct {
	RemoteVideoID string `json:"remote_video_id" binding:"required"`
	Title         string `json:"title"`
	Description   string `json:"description"`
}
