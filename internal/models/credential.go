package models

import "time"

// Credential is the persisted OAuth2 token pair for one operator identity.
// Only the token refresher mutates it.
type Credential struct {
	OperatorID   string    `json:"operator_id" db:"operator_id"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the access token must be refreshed before use.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

type SaveCredentialsRequest struct {
	AccessToken  string    `json:"access_token" binding:"required"`
	RefreshToken string    `json:"refresh_token" binding:"required"`
	ExpiresAt    time.Time `json:"expires_at" binding:"required"`
}
