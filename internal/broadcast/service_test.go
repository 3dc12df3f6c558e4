package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aulacast/backend/internal/models"
	"github.com/aulacast/backend/internal/provider"
)

func futureTime() *time.Time {
	t := time.Now().Add(time.Hour)
	return &t
}

func TestSyncUpcomingFiltersByTitlePrefix(t *testing.T) {
	env := newTestEnv(Options{TitlePrefix: "Live Session"})
	env.provider.upcoming = []provider.BroadcastResource{
		{ID: "bc-1", Title: "Live Session #12", ScheduledStartTime: futureTime()},
		{ID: "bc-2", Title: "Unrelated broadcast", ScheduledStartTime: futureTime()},
		{ID: "bc-3", Title: "Live Session #13", ScheduledStartTime: futureTime()},
	}

	count, err := env.svc.SyncUpcoming(context.Background(), "op@example.com")
	if err != nil {
		t.Fatalf("SyncUpcoming failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 synced records, got %d", count)
	}
	if _, err := env.broadcasts.GetByRemoteID("bc-2"); err == nil {
		t.Error("Expected unrelated broadcast to be skipped")
	}

	b, err := env.broadcasts.GetByRemoteID("bc-1")
	if err != nil {
		t.Fatalf("Expected bc-1 to be stored: %v", err)
	}
	if b.Status != models.StatusScheduled {
		t.Errorf("Expected status scheduled, got %s", b.Status)
	}
}

func TestSyncUpcomingIsIdempotent(t *testing.T) {
	env := newTestEnv(Options{})
	env.provider.upcoming = []provider.BroadcastResource{
		{ID: "bc-1", Title: "Live Session #12", ScheduledStartTime: futureTime()},
	}

	ctx := context.Background()
	if _, err := env.svc.SyncUpcoming(ctx, "op"); err != nil {
		t.Fatalf("First sync failed: %v", err)
	}
	first, _ := env.broadcasts.GetByRemoteID("bc-1")

	if _, err := env.svc.SyncUpcoming(ctx, "op"); err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	second, _ := env.broadcasts.GetByRemoteID("bc-1")

	if first.ID != second.ID {
		t.Error("Expected re-sync to update in place, not create a new record")
	}
	if all, _ := env.broadcasts.List(100); len(all) != 1 {
		t.Errorf("Expected 1 record after re-sync, got %d", len(all))
	}
}

func TestSyncUpcomingNeverRegressesStatus(t *testing.T) {
	env := newTestEnv(Options{})
	env.provider.upcoming = []provider.BroadcastResource{
		{ID: "bc-1", Title: "Live Session #12", ScheduledStartTime: futureTime()},
	}

	ctx := context.Background()
	if _, err := env.svc.SyncUpcoming(ctx, "op"); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if _, err := env.broadcasts.MarkLive("bc-1", time.Now()); err != nil {
		t.Fatalf("MarkLive failed: %v", err)
	}

	// The provider list may lag behind the actual lifecycle.
	if _, err := env.svc.SyncUpcoming(ctx, "op"); err != nil {
		t.Fatalf("Re-sync failed: %v", err)
	}

	b, _ := env.broadcasts.GetByRemoteID("bc-1")
	if b.Status != models.StatusLive {
		t.Errorf("Expected re-sync to preserve live status, got %s", b.Status)
	}
}

func TestSyncUpcomingDemoFallback(t *testing.T) {
	env := newTestEnv(Options{DemoFallback: true})
	env.provider.upcomingErr = provider.ErrCredentialsUnavailable

	count, err := env.svc.SyncUpcoming(context.Background(), "op")
	if err != nil {
		t.Fatalf("Expected fallback, got error: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 demo record, got %d", count)
	}

	b, err := env.broadcasts.GetByRemoteID(DemoBroadcastID)
	if err != nil {
		t.Fatalf("Expected demo record: %v", err)
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected demo record to be live, got %s", b.Status)
	}
}

func TestSyncUpcomingNoFallbackWhenDisabled(t *testing.T) {
	env := newTestEnv(Options{DemoFallback: false})
	env.provider.upcomingErr = provider.ErrCredentialsUnavailable

	if _, err := env.svc.SyncUpcoming(context.Background(), "op"); !errors.Is(err, provider.ErrCredentialsUnavailable) {
		t.Errorf("Expected ErrCredentialsUnavailable, got %v", err)
	}
	if all, _ := env.broadcasts.List(100); len(all) != 0 {
		t.Error("Expected no records without fallback")
	}
}

func TestCreateSessionPersistsOnlyAfterRemoteSuccess(t *testing.T) {
	env := newTestEnv(Options{})
	env.provider.stream = &provider.StreamResource{ID: "st-1", IngestURL: "rtmp://ingest.example.com/live", StreamKey: "secret-key"}
	env.provider.broadcastID = "bc-9"

	b, err := env.svc.CreateSession(context.Background(), "op", "Live Session #14", "desc", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if b.RemoteBroadcastID != "bc-9" {
		t.Errorf("Expected remote id bc-9, got %s", b.RemoteBroadcastID)
	}
	if b.StreamKey == nil || *b.StreamKey != "secret-key" {
		t.Error("Expected stream key to be persisted")
	}
	if b.Status != models.StatusScheduled {
		t.Errorf("Expected scheduled status, got %s", b.Status)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != models.EventSessionScheduled {
		t.Errorf("Expected scheduled event, got %v", got)
	}
}

func TestCreateSessionNoPartialRecordOnBindFailure(t *testing.T) {
	env := newTestEnv(Options{})
	env.provider.stream = &provider.StreamResource{ID: "st-1"}
	env.provider.broadcastID = "bc-9"
	env.provider.bindErr = &provider.Error{Status: 500, Message: "backend error"}

	if _, err := env.svc.CreateSession(context.Background(), "op", "t", "d", time.Now()); err == nil {
		t.Fatal("Expected bind failure to surface")
	}
	if all, _ := env.broadcasts.List(100); len(all) != 0 {
		t.Error("Expected no local record after remote failure")
	}
}

func TestStartSession(t *testing.T) {
	env := newTestEnv(Options{})
	seedScheduled(t, env, "bc-1")

	b, err := env.svc.StartSession(context.Background(), "op", "bc-1")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected live status, got %s", b.Status)
	}
	if b.ActualStartTime == nil {
		t.Error("Expected actual start time to be set")
	}
	if len(env.provider.transitions) != 1 || env.provider.transitions[0] != provider.LifecycleLive {
		t.Errorf("Expected one live transition, got %v", env.provider.transitions)
	}
}

func TestStartSessionTwiceIsIdempotent(t *testing.T) {
	env := newTestEnv(Options{})
	seedScheduled(t, env, "bc-1")

	ctx := context.Background()
	if _, err := env.svc.StartSession(ctx, "op", "bc-1"); err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	first, _ := env.broadcasts.GetByRemoteID("bc-1")

	b, err := env.svc.StartSession(ctx, "op", "bc-1")
	if err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	if !b.ActualStartTime.Equal(*first.ActualStartTime) {
		t.Error("Expected second start to leave the start time untouched")
	}
	if got := env.events.types(); len(got) != 1 {
		t.Errorf("Expected exactly one live event, got %v", got)
	}
}

func TestStartSessionRemoteFailureLeavesLocalState(t *testing.T) {
	env := newTestEnv(Options{})
	seedScheduled(t, env, "bc-1")
	env.provider.transitionErr = &provider.Error{Status: 403, Message: "forbidden"}

	if _, err := env.svc.StartSession(context.Background(), "op", "bc-1"); err == nil {
		t.Fatal("Expected transition failure to surface")
	}
	b, _ := env.broadcasts.GetByRemoteID("bc-1")
	if b.Status != models.StatusScheduled {
		t.Errorf("Expected status to stay scheduled, got %s", b.Status)
	}
}

func TestStartSessionUnknownRecord(t *testing.T) {
	env := newTestEnv(Options{})
	if _, err := env.svc.StartSession(context.Background(), "op", "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestEndSessionSchedulesRecordingCheckOnce(t *testing.T) {
	env := newTestEnv(Options{FinalizerDelay: time.Minute})
	seedLive(t, env, "bc-1")

	ctx := context.Background()
	b, err := env.svc.EndSession(ctx, "op", "bc-1")
	if err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if b.Status != models.StatusEnded {
		t.Errorf("Expected ended status, got %s", b.Status)
	}
	if env.checks.count() != 1 {
		t.Fatalf("Expected 1 recording check, got %d", env.checks.count())
	}

	// Losing an end/end race must not schedule a second check.
	if _, err := env.svc.EndSession(ctx, "op", "bc-1"); err != nil {
		t.Fatalf("Second end failed: %v", err)
	}
	if env.checks.count() != 1 {
		t.Errorf("Expected duplicate end to be a no-op, got %d checks", env.checks.count())
	}
}

func TestCheckStatusPromotesToLive(t *testing.T) {
	env := newTestEnv(Options{})
	seedScheduled(t, env, "bc-1")
	seedCreds(t, env, "op")
	env.provider.status = provider.LifecycleLive

	b, err := env.svc.CheckStatus(context.Background(), "op", "bc-1")
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected promotion to live, got %s", b.Status)
	}
	if got := env.events.types(); len(got) != 1 || got[0] != models.EventSessionLive {
		t.Errorf("Expected live event, got %v", got)
	}
}

func TestCheckStatusDemotesAndSchedulesCheck(t *testing.T) {
	env := newTestEnv(Options{FinalizerDelay: time.Minute})
	seedLive(t, env, "bc-1")
	seedCreds(t, env, "op")
	env.provider.status = provider.LifecycleComplete

	b, err := env.svc.CheckStatus(context.Background(), "op", "bc-1")
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if b.Status != models.StatusEnded {
		t.Errorf("Expected demotion to ended, got %s", b.Status)
	}
	if env.checks.count() != 1 {
		t.Errorf("Expected a recording check after external end, got %d", env.checks.count())
	}
}

func TestCheckStatusNoChange(t *testing.T) {
	env := newTestEnv(Options{})
	seedLive(t, env, "bc-1")
	seedCreds(t, env, "op")
	env.provider.status = provider.LifecycleLive

	b, err := env.svc.CheckStatus(context.Background(), "op", "bc-1")
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected status to stay live, got %s", b.Status)
	}
	if got := env.events.types(); len(got) != 0 {
		t.Errorf("Expected no events for an unchanged status, got %v", got)
	}
}

func TestCheckStatusWithoutCredentialsReturnsLastKnown(t *testing.T) {
	env := newTestEnv(Options{})
	seedLive(t, env, "bc-1")
	env.provider.statusErr = errors.New("should not be called")

	b, err := env.svc.CheckStatus(context.Background(), "op", "bc-1")
	if err != nil {
		t.Fatalf("Expected last-known state, got error: %v", err)
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected last-known live status, got %s", b.Status)
	}
}

func TestCheckStatusCredentialStoreFailure(t *testing.T) {
	env := newTestEnv(Options{})
	seedLive(t, env, "bc-1")
	env.creds.getErr = errors.New("connection refused")

	// Only a missing credential row degrades to last-known state; a broken
	// credential store must surface.
	if _, err := env.svc.CheckStatus(context.Background(), "op", "bc-1"); err == nil {
		t.Fatal("Expected a credential store failure to surface")
	}
}

func TestOverrideSessionDemotesActiveRecords(t *testing.T) {
	env := newTestEnv(Options{})
	seedLive(t, env, "bc-1")
	env.provider.video = &provider.VideoResource{
		ID:          "vid-7",
		Title:       "Backup stream",
		Description: "manual override",
	}

	b, err := env.svc.OverrideSession(context.Background(), "op", "vid-7", "", "")
	if err != nil {
		t.Fatalf("OverrideSession failed: %v", err)
	}
	if !b.IsOverride {
		t.Error("Expected override flag on replacement record")
	}
	if b.Status != models.StatusLive {
		t.Errorf("Expected replacement to be live, got %s", b.Status)
	}
	if b.Title != "Backup stream" {
		t.Errorf("Expected title from video metadata, got %q", b.Title)
	}

	old, _ := env.broadcasts.GetByRemoteID("bc-1")
	if old.Status != models.StatusOverridden {
		t.Errorf("Expected prior record demoted to overridden, got %s", old.Status)
	}

	active, err := env.svc.GetActiveSession()
	if err != nil {
		t.Fatalf("Expected an active session: %v", err)
	}
	if active.RemoteBroadcastID != "vid-7" {
		t.Errorf("Expected the override to own the slot, got %s", active.RemoteBroadcastID)
	}
}

func TestOverrideSessionToPreviouslyTrackedVideo(t *testing.T) {
	env := newTestEnv(Options{})
	seedLive(t, env, "bc-1")
	ctx := context.Background()

	env.provider.video = &provider.VideoResource{ID: "vid-7", Title: "Backup A"}
	first, err := env.svc.OverrideSession(ctx, "op", "vid-7", "", "")
	if err != nil {
		t.Fatalf("First override failed: %v", err)
	}

	env.provider.video = &provider.VideoResource{ID: "vid-8", Title: "Backup B"}
	if _, err := env.svc.OverrideSession(ctx, "op", "vid-8", "", ""); err != nil {
		t.Fatalf("Second override failed: %v", err)
	}

	// Back to a video the table already tracks.
	env.provider.video = &provider.VideoResource{ID: "vid-7", Title: "Backup A again"}
	again, err := env.svc.OverrideSession(ctx, "op", "vid-7", "", "")
	if err != nil {
		t.Fatalf("Override back to a tracked video failed: %v", err)
	}
	if again.Status != models.StatusLive || !again.IsOverride {
		t.Errorf("Expected re-promoted live override, got status=%s override=%v", again.Status, again.IsOverride)
	}
	if again.ID != first.ID {
		t.Error("Expected the tracked record to keep its identity")
	}
	if again.Title != "Backup A again" {
		t.Errorf("Expected refreshed metadata, got %q", again.Title)
	}

	demoted, _ := env.broadcasts.GetByRemoteID("vid-8")
	if demoted.Status != models.StatusOverridden {
		t.Errorf("Expected vid-8 demoted to overridden, got %s", demoted.Status)
	}

	active, err := env.svc.GetActiveSession()
	if err != nil {
		t.Fatalf("Expected an active session: %v", err)
	}
	if active.RemoteBroadcastID != "vid-7" {
		t.Errorf("Expected vid-7 to own the slot, got %s", active.RemoteBroadcastID)
	}
	if all, _ := env.broadcasts.List(100); len(all) != 3 {
		t.Errorf("Expected 3 records (bc-1, vid-7, vid-8), got %d", len(all))
	}
}

func TestOverrideSessionUnknownVideo(t *testing.T) {
	env := newTestEnv(Options{})
	env.provider.videoErr = &provider.Error{Status: 404, Message: "not found"}

	if _, err := env.svc.OverrideSession(context.Background(), "op", "vid-7", "", ""); !errors.Is(err, ErrRemoteResourceNotFound) {
		t.Errorf("Expected ErrRemoteResourceNotFound, got %v", err)
	}
}

func TestGetActiveSessionEmpty(t *testing.T) {
	env := newTestEnv(Options{})
	if _, err := env.svc.GetActiveSession(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Expected ErrNoActiveSession, got %v", err)
	}
}

func TestUpdateDetailsUnknownRecord(t *testing.T) {
	env := newTestEnv(Options{})
	if _, err := env.svc.UpdateDetails("missing", "t", "d", nil); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func seedScheduled(t *testing.T, env *testEnv, remoteID string) {
	t.Helper()
	env.provider.upcoming = []provider.BroadcastResource{
		{ID: remoteID, Title: "Live Session #1", ScheduledStartTime: futureTime()},
	}
	if _, err := env.svc.SyncUpcoming(context.Background(), "op"); err != nil {
		t.Fatalf("Seed sync failed: %v", err)
	}
}

func seedLive(t *testing.T, env *testEnv, remoteID string) {
	t.Helper()
	seedScheduled(t, env, remoteID)
	won, err := env.broadcasts.MarkLive(remoteID, time.Now())
	if err != nil || !won {
		t.Fatalf("Seed MarkLive failed: won=%v err=%v", won, err)
	}
}

func seedCreds(t *testing.T, env *testEnv, operatorID string) {
	t.Helper()
	if err := env.svc.SaveCredentials(operatorID, "access", "refresh", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Seed credentials failed: %v", err)
	}
}
