package repository

import (
	"fmt"
	"time"

	"github.com/aulacast/backend/internal/database"
	"github.com/aulacast/backend/internal/models"
)

// CheckRepository persists deferred recording checks. The table replaces an
// in-memory timer so a pending check survives process restarts.
type CheckRepository struct {
	db *database.DB
}

func NewCheckRepository(db *database.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

// Schedule records that the broadcast's recording should be checked no
// earlier than notBefore. Scheduling twice for the same broadcast keeps the
// original check (exactly one pending check per broadcast).
func (r *CheckRepository) Schedule(remoteID, operatorID string, notBefore time.Time) error {
	query := `
        INSERT INTO recording_checks (remote_broadcast_id, operator_id, not_before, created_at)
        VALUES ($1,$2,$3,NOW())
        ON CONFLICT (remote_broadcast_id) DO NOTHING
    `
	if _, err := r.db.Exec(query, remoteID, operatorID, notBefore); err != nil {
		return fmt.Errorf("failed to schedule recording check: %w", err)
	}
	return nil
}

// Due returns checks whose not_before has passed.
func (r *CheckRepository) Due(now time.Time) ([]models.RecordingCheck, error) {
	query := `
        SELECT remote_broadcast_id, operator_id, not_before, created_at
        FROM recording_checks WHERE not_before <= $1
        ORDER BY not_before ASC LIMIT 50
    `
	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due checks: %w", err)
	}
	defer rows.Close()

	var out []models.RecordingCheck
	for rows.Next() {
		var c models.RecordingCheck
		if err := rows.Scan(&c.RemoteBroadcastID, &c.OperatorID, &c.NotBefore, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a handled check.
func (r *CheckRepository) Delete(remoteID string) error {
	if _, err := r.db.Exec(`DELETE FROM recording_checks WHERE remote_broadcast_id = $1`, remoteID); err != nil {
		return fmt.Errorf("failed to delete recording check: %w", err)
	}
	return nil
}
