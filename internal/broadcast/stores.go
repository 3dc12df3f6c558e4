package broadcast

import (
	"context"
	"time"

	"github.com/aulacast/backend/internal/models"
	"github.com/aulacast/backend/internal/provider"
)

// BroadcastStore is the persistence contract for lifecycle records. The
// Postgres implementation lives in internal/repository; tests use an
// in-memory fake. Missing rows are reported as database/sql.ErrNoRows.
type BroadcastStore interface {
	Create(b *models.Broadcast) error
	Upsert(b *models.Broadcast) error
	GetByRemoteID(remoteID string) (*models.Broadcast, error)
	GetActive() (*models.Broadcast, error)
	List(limit int) ([]models.Broadcast, error)
	MarkLive(remoteID string, startedAt time.Time) (bool, error)
	MarkEnded(remoteID string, endedAt time.Time) (bool, error)
	Override(replacement *models.Broadcast) error
	UpdateDetails(remoteID, title, description string, scheduledStart *time.Time) error
	SetRecording(remoteID, url string) error
}

// RecordingStore persists catalog entries for processed recordings.
type RecordingStore interface {
	Insert(rec *models.Recording) error
	List(limit int) ([]models.Recording, error)
}

// CheckStore persists deferred recording checks.
type CheckStore interface {
	Schedule(remoteID, operatorID string, notBefore time.Time) error
	Due(now time.Time) ([]models.RecordingCheck, error)
	Delete(remoteID string) error
}

// ProviderAPI is the remote operations surface the synchronizer needs.
// Implemented by provider.Client.
type ProviderAPI interface {
	ListUpcoming(ctx context.Context, operatorID string) ([]provider.BroadcastResource, error)
	CreateStream(ctx context.Context, operatorID, title string) (*provider.StreamResource, error)
	CreateBroadcast(ctx context.Context, operatorID string, params provider.CreateBroadcastParams) (string, error)
	BindStream(ctx context.Context, operatorID, broadcastID, streamID string) error
	Transition(ctx context.Context, operatorID, broadcastID, status string) error
	GetBroadcastStatus(ctx context.Context, operatorID, broadcastID string) (string, error)
	GetVideo(ctx context.Context, operatorID, videoID string) (*provider.VideoResource, error)
}

// EventPublisher pushes lifecycle events to the real-time feed. Optional:
// a nil publisher disables the feed.
type EventPublisher interface {
	PublishLifecycleEvent(event models.LifecycleEvent) error
}
