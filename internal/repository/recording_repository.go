package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/aulacast/backend/internal/database"
	"github.com/aulacast/backend/internal/models"
)

type RecordingRepository struct {
	db *database.DB
}

func NewRecordingRepository(db *database.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Insert adds a catalog entry for the broadcast, once. Re-running the
// finalizer for the same remote broadcast id leaves the existing entry
// untouched (ON CONFLICT DO NOTHING).
func (r *RecordingRepository) Insert(rec *models.Recording) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	query := `
        INSERT INTO recordings (id, remote_broadcast_id, title, description, playback_url, visibility, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,NOW())
        ON CONFLICT (remote_broadcast_id) DO NOTHING
    `
	if _, err := r.db.Exec(query, rec.ID, rec.RemoteBroadcastID, rec.Title, rec.Description, rec.PlaybackURL, rec.Visibility); err != nil {
		return fmt.Errorf("failed to insert recording: %w", err)
	}
	return nil
}

// List returns catalog entries, newest first.
func (r *RecordingRepository) List(limit int) ([]models.Recording, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
        SELECT id, remote_broadcast_id, title, description, playback_url, visibility, created_at
        FROM recordings ORDER BY created_at DESC LIMIT $1
    `
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	var out []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.RemoteBroadcastID, &rec.Title, &rec.Description, &rec.PlaybackURL, &rec.Visibility, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
