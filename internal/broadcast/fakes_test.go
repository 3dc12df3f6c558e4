package broadcast

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aulacast/backend/internal/metrics"
	"github.com/aulacast/backend/internal/models"
	"github.com/aulacast/backend/internal/provider"
)

// memBroadcasts mirrors the Postgres repository semantics in memory:
// upserts keyed by remote id update descriptive fields only, and the
// Mark* writes are conditional on the expected prior status.
type memBroadcasts struct {
	mu      sync.Mutex
	records map[string]*models.Broadcast
}

func newMemBroadcasts() *memBroadcasts {
	return &memBroadcasts{records: make(map[string]*models.Broadcast)}
}

func (m *memBroadcasts) Create(b *models.Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.records[b.RemoteBroadcastID] = &cp
	return nil
}

func (m *memBroadcasts) Upsert(b *models.Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[b.RemoteBroadcastID]; ok {
		existing.Title = b.Title
		existing.Description = b.Description
		existing.ScheduledStartTime = b.ScheduledStartTime
		existing.ThumbnailURL = b.ThumbnailURL
		return nil
	}
	cp := *b
	m.records[b.RemoteBroadcastID] = &cp
	return nil
}

func (m *memBroadcasts) GetByRemoteID(remoteID string) (*models.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[remoteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memBroadcasts) GetActive() (*models.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.records {
		if b.Active() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memBroadcasts) List(limit int) ([]models.Broadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Broadcast, 0, len(m.records))
	for _, b := range m.records {
		out = append(out, *b)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memBroadcasts) MarkLive(remoteID string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[remoteID]
	if !ok || b.Status != models.StatusScheduled {
		return false, nil
	}
	b.Status = models.StatusLive
	b.ActualStartTime = &startedAt
	return true, nil
}

func (m *memBroadcasts) MarkEnded(remoteID string, endedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[remoteID]
	if !ok || b.Status != models.StatusLive {
		return false, nil
	}
	b.Status = models.StatusEnded
	b.ActualEndTime = &endedAt
	return true, nil
}

func (m *memBroadcasts) Override(replacement *models.Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.records {
		if b.Active() {
			b.Status = models.StatusOverridden
		}
	}
	// A tracked target is re-promoted in place, keeping its identity.
	if existing, ok := m.records[replacement.RemoteBroadcastID]; ok {
		existing.Title = replacement.Title
		existing.Description = replacement.Description
		existing.ThumbnailURL = replacement.ThumbnailURL
		existing.ScheduledStartTime = replacement.ScheduledStartTime
		existing.ActualStartTime = replacement.ActualStartTime
		existing.ActualEndTime = nil
		existing.Status = replacement.Status
		existing.IsOverride = true
		replacement.ID = existing.ID
		return nil
	}
	cp := *replacement
	m.records[replacement.RemoteBroadcastID] = &cp
	return nil
}

func (m *memBroadcasts) UpdateDetails(remoteID, title, description string, scheduledStart *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[remoteID]
	if !ok {
		return sql.ErrNoRows
	}
	b.Title = title
	b.Description = description
	if scheduledStart != nil {
		b.ScheduledStartTime = scheduledStart
	}
	return nil
}

func (m *memBroadcasts) SetRecording(remoteID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[remoteID]
	if !ok {
		return sql.ErrNoRows
	}
	b.RecordingAvailable = true
	b.RecordingURL = &url
	return nil
}

type memRecordings struct {
	mu      sync.Mutex
	entries map[string]models.Recording
}

func newMemRecordings() *memRecordings {
	return &memRecordings{entries: make(map[string]models.Recording)}
}

func (m *memRecordings) Insert(rec *models.Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[rec.RemoteBroadcastID]; ok {
		return nil
	}
	m.entries[rec.RemoteBroadcastID] = *rec
	return nil
}

func (m *memRecordings) List(limit int) ([]models.Recording, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Recording, 0, len(m.entries))
	for _, rec := range m.entries {
		out = append(out, rec)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memChecks struct {
	mu     sync.Mutex
	checks map[string]models.RecordingCheck
}

func newMemChecks() *memChecks {
	return &memChecks{checks: make(map[string]models.RecordingCheck)}
}

func (m *memChecks) Schedule(remoteID, operatorID string, notBefore time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[remoteID]; ok {
		return nil
	}
	m.checks[remoteID] = models.RecordingCheck{
		RemoteBroadcastID: remoteID,
		OperatorID:        operatorID,
		NotBefore:         notBefore,
	}
	return nil
}

func (m *memChecks) Due(now time.Time) ([]models.RecordingCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []models.RecordingCheck
	for _, c := range m.checks {
		if !c.NotBefore.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}

func (m *memChecks) Delete(remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, remoteID)
	return nil
}

func (m *memChecks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.checks)
}

type memCreds struct {
	mu     sync.Mutex
	creds  map[string]*models.Credential
	getErr error
}

func newMemCreds() *memCreds {
	return &memCreds{creds: make(map[string]*models.Credential)}
}

func (m *memCreds) Get(operatorID string) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.creds[operatorID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memCreds) Save(c *models.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.creds[c.OperatorID] = &cp
	return nil
}

// fakeProvider scripts remote responses and records every call.
type fakeProvider struct {
	upcoming    []provider.BroadcastResource
	upcomingErr error

	stream    *provider.StreamResource
	streamErr error

	broadcastID  string
	broadcastErr error

	bindErr error

	transitionErr error
	transitions   []string

	status    string
	statusErr error

	video    *provider.VideoResource
	videoErr error
	videoGot int
}

func (f *fakeProvider) ListUpcoming(ctx context.Context, operatorID string) ([]provider.BroadcastResource, error) {
	if f.upcomingErr != nil {
		return nil, f.upcomingErr
	}
	return f.upcoming, nil
}

func (f *fakeProvider) CreateStream(ctx context.Context, operatorID, title string) (*provider.StreamResource, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

func (f *fakeProvider) CreateBroadcast(ctx context.Context, operatorID string, params provider.CreateBroadcastParams) (string, error) {
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	return f.broadcastID, nil
}

func (f *fakeProvider) BindStream(ctx context.Context, operatorID, broadcastID, streamID string) error {
	return f.bindErr
}

func (f *fakeProvider) Transition(ctx context.Context, operatorID, broadcastID, status string) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	f.transitions = append(f.transitions, status)
	return nil
}

func (f *fakeProvider) GetBroadcastStatus(ctx context.Context, operatorID, broadcastID string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeProvider) GetVideo(ctx context.Context, operatorID, videoID string) (*provider.VideoResource, error) {
	f.videoGot++
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.video, nil
}

type memEvents struct {
	mu     sync.Mutex
	events []models.LifecycleEvent
}

func (m *memEvents) PublishLifecycleEvent(event models.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	svc        *Service
	provider   *fakeProvider
	broadcasts *memBroadcasts
	creds      *memCreds
	checks     *memChecks
	recordings *memRecordings
	events     *memEvents
}

func newTestEnv(opts Options) *testEnv {
	env := &testEnv{
		provider:   &fakeProvider{},
		broadcasts: newMemBroadcasts(),
		creds:      newMemCreds(),
		checks:     newMemChecks(),
		recordings: newMemRecordings(),
		events:     &memEvents{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.svc = NewService(env.provider, env.broadcasts, env.creds, env.checks, env.recordings, env.events, metrics.New(), log, opts)
	return env
}
