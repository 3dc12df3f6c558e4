package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aulacast/backend/internal/database"
	"github.com/aulacast/backend/internal/models"
)

const broadcastColumns = `id, remote_broadcast_id, remote_stream_id, title, description, thumbnail_url,
        scheduled_start_time, actual_start_time, actual_end_time, rtmp_ingest_url, stream_key,
        status, is_override, recording_available, recording_url, created_at, updated_at`

type BroadcastRepository struct {
	db *database.DB
}

func NewBroadcastRepository(db *database.DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// Create inserts a new broadcast record.
func (r *BroadcastRepository) Create(b *models.Broadcast) error {
	query := `
        INSERT INTO broadcasts (id, remote_broadcast_id, remote_stream_id, title, description, thumbnail_url,
            scheduled_start_time, actual_start_time, actual_end_time, rtmp_ingest_url, stream_key,
            status, is_override, recording_available, recording_url, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW())
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(query,
		b.ID,
		b.RemoteBroadcastID,
		b.RemoteStreamID,
		b.Title,
		b.Description,
		b.ThumbnailURL,
		b.ScheduledStartTime,
		b.ActualStartTime,
		b.ActualEndTime,
		b.RTMPIngestURL,
		b.StreamKey,
		b.Status,
		b.IsOverride,
		b.RecordingAvailable,
		b.RecordingURL,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create broadcast: %w", err)
	}
	return nil
}

// Upsert inserts a record observed remotely, or refreshes its descriptive
// fields if it already exists. The conflict target is remote_broadcast_id,
// so re-syncing an unchanged remote list never duplicates records and
// never regresses a more advanced local status.
func (r *BroadcastRepository) Upsert(b *models.Broadcast) error {
	query := `
        INSERT INTO broadcasts (id, remote_broadcast_id, title, description, thumbnail_url,
            scheduled_start_time, status, is_override, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
        ON CONFLICT (remote_broadcast_id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            thumbnail_url = EXCLUDED.thumbnail_url,
            scheduled_start_time = EXCLUDED.scheduled_start_time,
            updated_at = NOW()
        RETURNING id, status, created_at, updated_at
    `
	err := r.db.QueryRow(query,
		b.ID,
		b.RemoteBroadcastID,
		b.Title,
		b.Description,
		b.ThumbnailURL,
		b.ScheduledStartTime,
		b.Status,
		b.IsOverride,
	).Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert broadcast: %w", err)
	}
	return nil
}

// GetByRemoteID returns the record for the given remote broadcast id.
func (r *BroadcastRepository) GetByRemoteID(remoteID string) (*models.Broadcast, error) {
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts WHERE remote_broadcast_id = $1`
	b := &models.Broadcast{}
	err := scanBroadcast(r.db.QueryRow(query, remoteID), b)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcast: %w", err)
	}
	return b, nil
}

// GetActive returns the most recent record occupying the canonical slot
// (scheduled or live), if any.
func (r *BroadcastRepository) GetActive() (*models.Broadcast, error) {
	query := `
        SELECT ` + broadcastColumns + `
        FROM broadcasts WHERE status IN ('scheduled','live')
        ORDER BY created_at DESC LIMIT 1
    `
	b := &models.Broadcast{}
	err := scanBroadcast(r.db.QueryRow(query), b)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active broadcast: %w", err)
	}
	return b, nil
}

// List returns broadcast records, newest first.
func (r *BroadcastRepository) List(limit int) ([]models.Broadcast, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + broadcastColumns + ` FROM broadcasts ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	defer rows.Close()

	var out []models.Broadcast
	for rows.Next() {
		var b models.Broadcast
		if err := scanBroadcast(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkLive promotes a scheduled record to live with the given start time.
// The write is conditional on the current status; a concurrent caller that
// already promoted the record makes this a no-op and won=false.
func (r *BroadcastRepository) MarkLive(remoteID string, startedAt time.Time) (bool, error) {
	query := `
        UPDATE broadcasts SET status = 'live', actual_start_time = $2, updated_at = NOW()
        WHERE remote_broadcast_id = $1 AND status = 'scheduled'
    `
	res, err := r.db.Exec(query, remoteID, startedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark broadcast live: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark broadcast live: %w", err)
	}
	return n > 0, nil
}

// MarkEnded demotes a live record to ended with the given end time.
// Conditional on status='live'; the losing writer of a race is a no-op.
func (r *BroadcastRepository) MarkEnded(remoteID string, endedAt time.Time) (bool, error) {
	query := `
        UPDATE broadcasts SET status = 'ended', actual_end_time = $2, updated_at = NOW()
        WHERE remote_broadcast_id = $1 AND status = 'live'
    `
	res, err := r.db.Exec(query, remoteID, endedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark broadcast ended: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark broadcast ended: %w", err)
	}
	return n > 0, nil
}

// Override atomically demotes every scheduled/live record to overridden and
// inserts the replacement record in a single transaction, preserving the
// invariant that at most one record occupies the canonical slot. A target
// that is already tracked is re-promoted to live in place.
func (r *BroadcastRepository) Override(replacement *models.Broadcast) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin override: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE broadcasts SET status = 'overridden', updated_at = NOW() WHERE status IN ('scheduled','live')`,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to demote active broadcasts: %w", err)
	}

	// The override target may already be tracked (a previous override or an
	// ended session). Re-promote the existing row instead of violating the
	// unique remote_broadcast_id constraint.
	insert := `
        INSERT INTO broadcasts (id, remote_broadcast_id, title, description, thumbnail_url,
            scheduled_start_time, actual_start_time, status, is_override, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
        ON CONFLICT (remote_broadcast_id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            thumbnail_url = EXCLUDED.thumbnail_url,
            scheduled_start_time = EXCLUDED.scheduled_start_time,
            actual_start_time = EXCLUDED.actual_start_time,
            actual_end_time = NULL,
            status = EXCLUDED.status,
            is_override = true,
            updated_at = NOW()
        RETURNING id, created_at, updated_at
    `
	if err := tx.QueryRow(insert,
		replacement.ID,
		replacement.RemoteBroadcastID,
		replacement.Title,
		replacement.Description,
		replacement.ThumbnailURL,
		replacement.ScheduledStartTime,
		replacement.ActualStartTime,
		replacement.Status,
		replacement.IsOverride,
	).Scan(&replacement.ID, &replacement.CreatedAt, &replacement.UpdatedAt); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert override broadcast: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit override: %w", err)
	}
	return nil
}

// UpdateDetails updates local descriptive metadata only.
func (r *BroadcastRepository) UpdateDetails(remoteID, title, description string, scheduledStart *time.Time) error {
	query := `
        UPDATE broadcasts
        SET title = $2, description = $3,
            scheduled_start_time = COALESCE($4, scheduled_start_time),
            updated_at = NOW()
        WHERE remote_broadcast_id = $1
    `
	res, err := r.db.Exec(query, remoteID, title, description, scheduledStart)
	if err != nil {
		return fmt.Errorf("failed to update broadcast details: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update broadcast details: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetRecording marks the record's recording as available.
func (r *BroadcastRepository) SetRecording(remoteID, url string) error {
	query := `
        UPDATE broadcasts SET recording_available = true, recording_url = $2, updated_at = NOW()
        WHERE remote_broadcast_id = $1
    `
	if _, err := r.db.Exec(query, remoteID, url); err != nil {
		return fmt.Errorf("failed to set recording: %w", err)
	}
	return nil
}

// ActiveCount returns how many records are scheduled or live. Used for metrics.
func (r *BroadcastRepository) ActiveCount() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM broadcasts WHERE status IN ('scheduled','live')`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active broadcasts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBroadcast(row rowScanner, b *models.Broadcast) error {
	return row.Scan(
		&b.ID,
		&b.RemoteBroadcastID,
		&b.RemoteStreamID,
		&b.Title,
		&b.Description,
		&b.ThumbnailURL,
		&b.ScheduledStartTime,
		&b.ActualStartTime,
		&b.ActualEndTime,
		&b.RTMPIngestURL,
		&b.StreamKey,
		&b.Status,
		&b.IsOverride,
		&b.RecordingAvailable,
		&b.RecordingURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}
