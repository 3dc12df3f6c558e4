package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aulacast/backend/internal/models"
)

// CredentialStore is the persistence contract for operator token pairs.
type CredentialStore interface {
	Get(operatorID string) (*models.Credential, error)
	Save(c *models.Credential) error
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

// TokenService exchanges refresh tokens at the provider's token endpoint
// and persists the result. It is invoked reactively when a call fails with
// an auth error, and proactively when a stored token has expired.
type TokenService struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	creds        CredentialStore
}

func NewTokenService(tokenURL, clientID, clientSecret string, timeout time.Duration, creds CredentialStore) *TokenService {
	return &TokenService{
		httpClient:   &http.Client{Timeout: timeout},
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		creds:        creds,
	}
}

// Refresh exchanges the operator's refresh token for a new access token and
// persists it. Any failure maps to ErrCredentialsUnavailable; the caller
// must not retry in a loop.
func (s *TokenService) Refresh(ctx context.Context, operatorID string) (*models.Credential, error) {
	if s.clientID == "" {
		return nil, fmt.Errorf("client credentials not configured: %w", ErrCredentialsUnavailable)
	}

	cred, err := s.creds.Get(operatorID)
	if err != nil {
		return nil, fmt.Errorf("no stored credential for operator %q: %w", operatorID, ErrCredentialsUnavailable)
	}
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token for operator %q: %w", operatorID, ErrCredentialsUnavailable)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", cred.RefreshToken)
	data.Set("client_id", s.clientID)
	if s.clientSecret != "" {
		data.Set("client_secret", s.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", ErrCredentialsUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", ErrCredentialsUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token refresh rejected with status %d: %w", resp.StatusCode, ErrCredentialsUnavailable)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to parse refresh response: %w", ErrCredentialsUnavailable)
	}

	cred.AccessToken = token.AccessToken
	cred.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := s.creds.Save(cred); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	return cred, nil
}
