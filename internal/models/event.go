package models

import "time"

// Lifecycle event types published on transitions and pushed to admin UIs.
const (
	EventSessionScheduled  = "session_scheduled"
	EventSessionLive       = "session_live"
	EventSessionEnded      = "session_ended"
	EventSessionOverridden = "session_overridden"
	EventRecordingReady    = "recording_ready"
)

// LifecycleEvent describes a single state transition of a broadcast record.
type LifecycleEvent struct {
	Type              string    `json:"type"`
	RemoteBroadcastID string    `json:"remote_broadcast_id"`
	Title             string    `json:"title,omitempty"`
	Status            string    `json:"status"`
	OccurredAt        time.Time `json:"occurred_at"`
}
