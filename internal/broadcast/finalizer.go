package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/aulacast/backend/internal/models"
	"github.com/aulacast/backend/internal/provider"
)

// FinalizeDueRecordings processes every due recording check once. For each
// due check the provider is asked for the video's processing status:
//
//   - processed: the record is marked recording-available, a catalog entry
//     is inserted (idempotent on remote broadcast id) and the check is
//     deleted.
//   - fetched but not yet processed: the check is dropped. Finalization is
//     single-shot and best-effort; a later poll cycle or a manual re-check
//     picks it up.
//   - provider/transport error: the check is left in place for the next
//     sweep, since the check itself never fired.
//
// Returns the number of recordings finalized.
func (s *Service) FinalizeDueRecordings(ctx context.Context) (int, error) {
	due, err := s.checks.Due(time.Now())
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, check := range due {
		video, err := s.provider.GetVideo(ctx, check.OperatorID, check.RemoteBroadcastID)
		if err != nil {
			if provider.IsNotFound(err) {
				s.log.Warn("recording check target no longer exists, dropping",
					"remote_broadcast_id", check.RemoteBroadcastID)
				if err := s.checks.Delete(check.RemoteBroadcastID); err != nil {
					return finalized, err
				}
				continue
			}
			s.log.Warn("recording check failed, will retry next sweep",
				"remote_broadcast_id", check.RemoteBroadcastID, "error", err)
			continue
		}

		if video.ProcessingStatus != provider.ProcessingDone {
			if err := s.checks.Delete(check.RemoteBroadcastID); err != nil {
				return finalized, err
			}
			s.log.Info("recording not yet processed, check dropped",
				"remote_broadcast_id", check.RemoteBroadcastID)
			continue
		}

		if err := s.finalizeRecording(check.RemoteBroadcastID, video); err != nil {
			return finalized, err
		}
		if err := s.checks.Delete(check.RemoteBroadcastID); err != nil {
			return finalized, err
		}
		finalized++
	}

	return finalized, nil
}

func (s *Service) finalizeRecording(remoteID string, video *provider.VideoResource) error {
	if err := s.broadcasts.SetRecording(remoteID, video.PlaybackURL); err != nil {
		return err
	}

	if err := s.recordings.Insert(&models.Recording{
		RemoteBroadcastID: remoteID,
		Title:             video.Title,
		Description:       video.Description,
		PlaybackURL:       video.PlaybackURL,
		Visibility:        models.VisibilityUnlisted,
	}); err != nil {
		return err
	}

	s.metrics.IncRecordingsFinalized()
	if s.events != nil {
		event := models.LifecycleEvent{
			Type:              models.EventRecordingReady,
			RemoteBroadcastID: remoteID,
			Title:             video.Title,
			Status:            models.StatusEnded,
			OccurredAt:        time.Now(),
		}
		if err := s.events.PublishLifecycleEvent(event); err != nil {
			s.log.Warn("failed to publish recording event", "error", err)
		}
	}
	s.log.Info("recording finalized", "remote_broadcast_id", remoteID)
	return nil
}

// Finalizer periodically sweeps the durable recording-check table. The
// sweep model replaces an in-process timer so pending checks survive
// restarts.
type Finalizer struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewFinalizer(svc *Service, interval time.Duration, log *slog.Logger) *Finalizer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Finalizer{svc: svc, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled.
func (f *Finalizer) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := f.svc.FinalizeDueRecordings(ctx); err != nil {
				f.log.Error("recording finalizer sweep failed", "error", err)
			}
		}
	}
}
