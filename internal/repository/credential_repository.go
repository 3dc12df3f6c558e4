package repository

import (
	"database/sql"
	"fmt"

	"github.com/aulacast/backend/internal/database"
	"github.com/aulacast/backend/internal/models"
)

type CredentialRepository struct {
	db *database.DB
}

func NewCredentialRepository(db *database.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the credential for the given operator identity.
func (r *CredentialRepository) Get(operatorID string) (*models.Credential, error) {
	query := `
        SELECT operator_id, access_token, refresh_token, expires_at, updated_at
        FROM credentials WHERE operator_id = $1
    `
	c := &models.Credential{}
	err := r.db.QueryRow(query, operatorID).Scan(
		&c.OperatorID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.ExpiresAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return c, nil
}

// Save upserts the credential for the operator. Called on the bootstrap
// path and by the token refresher after every successful refresh.
func (r *CredentialRepository) Save(c *models.Credential) error {
	query := `
        INSERT INTO credentials (operator_id, access_token, refresh_token, expires_at, updated_at)
        VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (operator_id) DO UPDATE SET
            access_token = EXCLUDED.access_token,
            refresh_token = EXCLUDED.refresh_token,
            expires_at = EXCLUDED.expires_at,
            updated_at = NOW()
    `
	if _, err := r.db.Exec(query, c.OperatorID, c.AccessToken, c.RefreshToken, c.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}
