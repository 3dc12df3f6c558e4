package provider

import "time"

// Remote lifecycle statuses reported by the provider for a broadcast.
const (
	LifecycleCreated  = "created"
	LifecycleReady    = "ready"
	LifecycleLive     = "live"
	LifecycleComplete = "complete"
)

// Recording processing states reported for a video resource.
const (
	ProcessingPending = "processing"
	ProcessingDone    = "processed"
)

// Fixed encoding profile for locally-created ingest streams.
const (
	StreamResolution = "1080p"
	StreamFrameRate  = "variable"
	StreamIngestType = "rtmp"
	LatencyUltraLow  = "ultraLow"
	PrivacyUnlisted  = "unlisted"
)

// BroadcastResource is a broadcast as reported by the provider.
type BroadcastResource struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	ThumbnailURL       string     `json:"thumbnailUrl"`
	ScheduledStartTime *time.Time `json:"scheduledStartTime"`
	LifecycleStatus    string     `json:"lifecycleStatus"`
}

// StreamResource is an ingest stream created on the provider. The ingest
// URL and stream key are sensitive and are persisted but never logged.
type StreamResource struct {
	ID        string `json:"id"`
	IngestURL string `json:"ingestUrl"`
	StreamKey string `json:"streamKey"`
}

// VideoResource is the video record behind a broadcast, used both for
// override target resolution and for recording finalization.
type VideoResource struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	ThumbnailURL       string     `json:"thumbnailUrl"`
	ProcessingStatus   string     `json:"processingStatus"`
	PlaybackURL        string     `json:"playbackUrl"`
	ScheduledStartTime *time.Time `json:"scheduledStartTime"`
	ActualStartTime    *time.Time `json:"actualStartTime"`
}

// CreateBroadcastParams are the parameters for creating a broadcast
// resource on the provider.
type CreateBroadcastParams struct {
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	ScheduledStartTime time.Time `json:"scheduledStartTime"`
	PrivacyStatus      string    `json:"privacyStatus"`
	DVREnabled         bool      `json:"dvrEnabled"`
	RecordFromStart    bool      `json:"recordFromStart"`
	LatencyPreference  string    `json:"latencyPreference"`
}

type createStreamParams struct {
	Title      string `json:"title"`
	Resolution string `json:"resolution"`
	FrameRate  string `json:"frameRate"`
	IngestType string `json:"ingestType"`
}

type createBroadcastResponse struct {
	ID string `json:"id"`
}

type broadcastStatusResponse struct {
	ID              string `json:"id"`
	LifecycleStatus string `json:"lifecycleStatus"`
}

type listBroadcastsResponse struct {
	Items []BroadcastResource `json:"items"`
}
