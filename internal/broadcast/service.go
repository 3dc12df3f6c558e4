package broadcast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aulacast/backend/internal/metrics"
	"github.com/aulacast/backend/internal/models"
	"github.com/aulacast/backend/internal/provider"
)

// DemoBroadcastID is the synthetic remote id used by the degraded-mode
// fallback when no credentials are available and the fallback is enabled.
const DemoBroadcastID = "demo-broadcast"

// Options tune the synchronizer.
type Options struct {
	// TitlePrefix marks remote broadcasts that belong to the canonical
	// session slot.
	TitlePrefix string
	// DemoFallback enables the synthetic live record when credentials
	// are absent during SyncUpcoming.
	DemoFallback bool
	// FinalizerDelay is how long after a session ends the recording
	// check is allowed to fire.
	FinalizerDelay time.Duration
}

// Service reconciles remote broadcast state against the local lifecycle
// record store and drives state transitions. All state changes go through
// conditional writes in the store, so concurrent invocations racing on the
// same record resolve to one winner and silent no-op losers.
type Service struct {
	provider   ProviderAPI
	broadcasts BroadcastStore
	creds      provider.CredentialStore
	checks     CheckStore
	recordings RecordingStore
	events     EventPublisher
	metrics    *metrics.Metrics
	log        *slog.Logger
	opts       Options
}

func NewService(
	api ProviderAPI,
	broadcasts BroadcastStore,
	creds provider.CredentialStore,
	checks CheckStore,
	recordings RecordingStore,
	events EventPublisher,
	m *metrics.Metrics,
	log *slog.Logger,
	opts Options,
) *Service {
	if opts.TitlePrefix == "" {
		opts.TitlePrefix = "Live Session"
	}
	if opts.FinalizerDelay <= 0 {
		opts.FinalizerDelay = 2 * time.Minute
	}
	return &Service{
		provider:   api,
		broadcasts: broadcasts,
		creds:      creds,
		checks:     checks,
		recordings: recordings,
		events:     events,
		metrics:    m,
		log:        log,
		opts:       opts,
	}
}

// SyncUpcoming lists upcoming broadcasts from the provider, filters them to
// the canonical session naming convention and upserts each into the record
// store. Re-running against an unchanged remote list is idempotent. When
// credentials are unavailable and the demo fallback is enabled, a single
// synthetic live record is upserted instead so downstream UI has something
// to render. Returns the number of records synced.
func (s *Service) SyncUpcoming(ctx context.Context, operatorID string) (int, error) {
	s.metrics.IncSyncs()

	items, err := s.provider.ListUpcoming(ctx, operatorID)
	if err != nil {
		if errors.Is(err, provider.ErrCredentialsUnavailable) && s.opts.DemoFallback {
			return s.syncDemoFallback()
		}
		return 0, fmt.Errorf("failed to list upcoming broadcasts: %w", err)
	}

	count := 0
	for _, item := range items {
		if !strings.HasPrefix(item.Title, s.opts.TitlePrefix) {
			continue
		}
		b := &models.Broadcast{
			ID:                 uuid.New(),
			RemoteBroadcastID:  item.ID,
			Title:              item.Title,
			Description:        item.Description,
			ScheduledStartTime: item.ScheduledStartTime,
			Status:             models.StatusScheduled,
		}
		if item.ThumbnailURL != "" {
			b.ThumbnailURL = &item.ThumbnailURL
		}
		if err := s.broadcasts.Upsert(b); err != nil {
			return count, err
		}
		count++
	}

	s.log.Info("synced upcoming broadcasts", "count", count, "operator", operatorID)
	return count, nil
}

func (s *Service) syncDemoFallback() (int, error) {
	b := &models.Broadcast{
		ID:                uuid.New(),
		RemoteBroadcastID: DemoBroadcastID,
		Title:             s.opts.TitlePrefix + " (demo)",
		Description:       "Demo session shown while platform credentials are not configured.",
		Status:            models.StatusLive,
	}
	if err := s.broadcasts.Upsert(b); err != nil {
		return 0, err
	}
	s.log.Warn("credentials unavailable, synced demo fallback record")
	return 1, nil
}

// CreateSession creates an ingest stream, a scheduled broadcast, and binds
// them on the provider, then persists the local record. No local record is
// written unless all three remote steps succeed.
func (s *Service) CreateSession(ctx context.Context, operatorID, title, description string, scheduledStart time.Time) (*models.Broadcast, error) {
	stream, err := s.provider.CreateStream(ctx, operatorID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest stream: %w", err)
	}

	broadcastID, err := s.provider.CreateBroadcast(ctx, operatorID, provider.CreateBroadcastParams{
		Title:              title,
		Description:        description,
		ScheduledStartTime: scheduledStart,
		PrivacyStatus:      provider.PrivacyUnlisted,
		DVREnabled:         true,
		RecordFromStart:    true,
		LatencyPreference:  provider.LatencyUltraLow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}

	if err := s.provider.BindStream(ctx, operatorID, broadcastID, stream.ID); err != nil {
		return nil, fmt.Errorf("failed to bind stream to broadcast: %w", err)
	}

	b := &models.Broadcast{
		ID:                 uuid.New(),
		RemoteBroadcastID:  broadcastID,
		RemoteStreamID:     &stream.ID,
		Title:              title,
		Description:        description,
		ScheduledStartTime: &scheduledStart,
		RTMPIngestURL:      &stream.IngestURL,
		StreamKey:          &stream.StreamKey,
		Status:             models.StatusScheduled,
	}
	if err := s.broadcasts.Create(b); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(models.StatusScheduled)
	s.publish(models.EventSessionScheduled, b)
	s.log.Info("created session", "remote_broadcast_id", broadcastID, "scheduled_start", scheduledStart)
	return b, nil
}

// StartSession transitions the broadcast to live on the provider, then
// promotes the local record. Local state is untouched if the remote call
// fails.
func (s *Service) StartSession(ctx context.Context, operatorID, remoteID string) (*models.Broadcast, error) {
	if _, err := s.get(remoteID); err != nil {
		return nil, err
	}

	if err := s.provider.Transition(ctx, operatorID, remoteID, provider.LifecycleLive); err != nil {
		return nil, fmt.Errorf("failed to transition broadcast to live: %w", err)
	}

	won, err := s.broadcasts.MarkLive(remoteID, time.Now())
	if err != nil {
		return nil, err
	}
	if won {
		s.metrics.IncTransition(models.StatusLive)
	}

	b, err := s.get(remoteID)
	if err != nil {
		return nil, err
	}
	if won {
		s.publish(models.EventSessionLive, b)
		s.log.Info("session started", "remote_broadcast_id", remoteID)
	}
	return b, nil
}

// EndSession transitions the broadcast to complete on the provider, demotes
// the local record to ended and schedules the deferred recording check.
func (s *Service) EndSession(ctx context.Context, operatorID, remoteID string) (*models.Broadcast, error) {
	if _, err := s.get(remoteID); err != nil {
		return nil, err
	}

	if err := s.provider.Transition(ctx, operatorID, remoteID, provider.LifecycleComplete); err != nil {
		return nil, fmt.Errorf("failed to transition broadcast to complete: %w", err)
	}

	won, err := s.broadcasts.MarkEnded(remoteID, time.Now())
	if err != nil {
		return nil, err
	}
	if won {
		s.metrics.IncTransition(models.StatusEnded)
		if err := s.checks.Schedule(remoteID, operatorID, time.Now().Add(s.opts.FinalizerDelay)); err != nil {
			return nil, err
		}
	}

	b, err := s.get(remoteID)
	if err != nil {
		return nil, err
	}
	if won {
		s.publish(models.EventSessionEnded, b)
		s.log.Info("session ended", "remote_broadcast_id", remoteID)
	}
	return b, nil
}

// CheckStatus polls the remote lifecycle status and reconciles the local
// record: promote to live or demote to ended if an operator transitioned
// the broadcast outside this system. Without credentials it returns the
// last-known local state without contacting the remote.
func (s *Service) CheckStatus(ctx context.Context, operatorID, remoteID string) (*models.Broadcast, error) {
	b, err := s.get(remoteID)
	if err != nil {
		return nil, err
	}

	if _, err := s.creds.Get(operatorID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
		// Availability over consistency: serve the last-known state.
		s.log.Warn("credentials unavailable, returning last-known status", "remote_broadcast_id", remoteID)
		return b, nil
	}

	remoteStatus, err := s.provider.GetBroadcastStatus(ctx, operatorID, remoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote status: %w", err)
	}

	now := time.Now()
	event := ""
	switch {
	case remoteStatus == provider.LifecycleLive && b.Status != models.StatusLive:
		won, err := s.broadcasts.MarkLive(remoteID, now)
		if err != nil {
			return nil, err
		}
		if won {
			s.metrics.IncTransition(models.StatusLive)
			event = models.EventSessionLive
			s.log.Info("reconciled session to live", "remote_broadcast_id", remoteID)
		}
	case remoteStatus != provider.LifecycleLive && b.Status == models.StatusLive:
		won, err := s.broadcasts.MarkEnded(remoteID, now)
		if err != nil {
			return nil, err
		}
		if won {
			s.metrics.IncTransition(models.StatusEnded)
			event = models.EventSessionEnded
			if err := s.checks.Schedule(remoteID, operatorID, now.Add(s.opts.FinalizerDelay)); err != nil {
				return nil, err
			}
			s.log.Info("reconciled session to ended", "remote_broadcast_id", remoteID)
		}
	}

	b, err = s.get(remoteID)
	if err != nil {
		return nil, err
	}
	if event != "" {
		s.publish(event, b)
	}
	return b, nil
}

// OverrideSession substitutes a different remote video for the canonical
// slot: every scheduled/live record is demoted to overridden and a new
// live record is inserted with IsOverride set.
func (s *Service) OverrideSession(ctx context.Context, operatorID, remoteVideoID, title, description string) (*models.Broadcast, error) {
	video, err := s.provider.GetVideo(ctx, operatorID, remoteVideoID)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, ErrRemoteResourceNotFound
		}
		return nil, fmt.Errorf("failed to resolve override video: %w", err)
	}

	if title == "" {
		title = video.Title
	}
	if description == "" {
		description = video.Description
	}
	started := time.Now()
	if video.ActualStartTime != nil {
		started = *video.ActualStartTime
	}

	b := &models.Broadcast{
		ID:                 uuid.New(),
		RemoteBroadcastID:  remoteVideoID,
		Title:              title,
		Description:        description,
		ScheduledStartTime: video.ScheduledStartTime,
		ActualStartTime:    &started,
		Status:             models.StatusLive,
		IsOverride:         true,
	}
	if video.ThumbnailURL != "" {
		b.ThumbnailURL = &video.ThumbnailURL
	}

	if err := s.broadcasts.Override(b); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(models.StatusOverridden)
	s.metrics.IncTransition(models.StatusLive)
	s.publish(models.EventSessionOverridden, b)
	s.log.Info("session overridden", "remote_video_id", remoteVideoID)
	return b, nil
}

// UpdateDetails updates local descriptive metadata for a record.
func (s *Service) UpdateDetails(remoteID, title, description string, scheduledStart *time.Time) (*models.Broadcast, error) {
	if err := s.broadcasts.UpdateDetails(remoteID, title, description, scheduledStart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return s.get(remoteID)
}

// GetActiveSession returns the record currently occupying the canonical
// slot, or ErrNoActiveSession.
func (s *Service) GetActiveSession() (*models.Broadcast, error) {
	b, err := s.broadcasts.GetActive()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return b, nil
}

// ListSessions returns lifecycle records, newest first.
func (s *Service) ListSessions(limit int) ([]models.Broadcast, error) {
	return s.broadcasts.List(limit)
}

// ListRecordings returns recording catalog entries, newest first.
func (s *Service) ListRecordings(limit int) ([]models.Recording, error) {
	return s.recordings.List(limit)
}

// SaveCredentials bootstraps or replaces the operator's OAuth token pair.
func (s *Service) SaveCredentials(operatorID, accessToken, refreshToken string, expiresAt time.Time) error {
	return s.creds.Save(&models.Credential{
		OperatorID:   operatorID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	})
}

func (s *Service) get(remoteID string) (*models.Broadcast, error) {
	b, err := s.broadcasts.GetByRemoteID(remoteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) publish(eventType string, b *models.Broadcast) {
	if s.events == nil {
		return
	}
	event := models.LifecycleEvent{
		Type:              eventType,
		RemoteBroadcastID: b.RemoteBroadcastID,
		Title:             b.Title,
		Status:            b.Status,
		OccurredAt:        time.Now(),
	}
	if err := s.events.PublishLifecycleEvent(event); err != nil {
		s.log.Warn("failed to publish lifecycle event", "type", eventType, "error", err)
	}
}
