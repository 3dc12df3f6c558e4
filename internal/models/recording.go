package models

import (
	"time"

	"github.com/google/uuid"
)

// VisibilityUnlisted is the default visibility for new catalog entries:
// playable with the link but not publicly listed.
const VisibilityUnlisted = "unlisted"

// Recording is a catalog entry for a processed session recording, consumed
// by the content library. One entry per remote broadcast id, upsert-only.
type Recording struct {
	ID                uuid.UUID `json:"id" db:"id"`
	RemoteBroadcastID string    `json:"remote_broadcast_id" db:"remote_broadcast_id"`
	Title             string    `json:"title" db:"title"`
	Description       string    `json:"description" db:"description"`
	PlaybackURL       string    `json:"playback_url" db:"playback_url"`
	Visibility        string    `json:"visibility" db:"visibility"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// RecordingCheck is a durable deferred job: fetch the processing status of
// a broadcast's recording no earlier than NotBefore. Persisted so a pending
// check survives process restarts.
type RecordingCheck struct {
	RemoteBroadcastID string    `json:"remote_broadcast_id" db:"remote_broadcast_id"`
	OperatorID        string    `json:"operator_id" db:"operator_id"`
	NotBefore         time.Time `json:"not_before" db:"not_before"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
