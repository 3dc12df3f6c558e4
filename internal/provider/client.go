package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aulacast/backend/internal/metrics"
	"github.com/aulacast/backend/internal/models"
)

// Client is a narrow typed facade over the streaming provider's REST API.
// Every call attaches the operator's current access token, refreshes it
// once on an auth failure and retries, and surfaces any other non-2xx
// response as *Error without retrying.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      CredentialStore
	tokens     *TokenService
	metrics    *metrics.Metrics
}

// NewClient builds a provider client. The remote API is rate limited, so
// every call waits on a shared limiter before going out. timeout caps each
// round trip; a timed-out call surfaces as *Error.
func NewClient(baseURL string, timeout time.Duration, ratePerSec int, creds CredentialStore, tokens *TokenService, m *metrics.Metrics) *Client {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		creds:      creds,
		tokens:     tokens,
		metrics:    m,
	}
}

// ListUpcoming returns the provider's upcoming broadcasts.
func (c *Client) ListUpcoming(ctx context.Context, operatorID string) ([]BroadcastResource, error) {
	q := url.Values{}
	q.Set("status", "upcoming")
	var out listBroadcastsResponse
	if err := c.do(ctx, operatorID, http.MethodGet, "/broadcasts", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreateStream creates an ingest stream with the fixed encoding profile:
// 1080p, variable framerate, RTMP ingestion.
func (c *Client) CreateStream(ctx context.Context, operatorID, title string) (*StreamResource, error) {
	params := createStreamParams{
		Title:      title,
		Resolution: StreamResolution,
		FrameRate:  StreamFrameRate,
		IngestType: StreamIngestType,
	}
	var out StreamResource
	if err := c.do(ctx, operatorID, http.MethodPost, "/streams", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBroadcast creates a broadcast resource and returns its id.
func (c *Client) CreateBroadcast(ctx context.Context, operatorID string, params CreateBroadcastParams) (string, error) {
	var out createBroadcastResponse
	if err := c.do(ctx, operatorID, http.MethodPost, "/broadcasts", nil, params, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// BindStream binds an ingest stream to a broadcast.
func (c *Client) BindStream(ctx context.Context, operatorID, broadcastID, streamID string) error {
	q := url.Values{}
	q.Set("streamId", streamID)
	path := fmt.Sprintf("/broadcasts/%s/bind", url.PathEscape(broadcastID))
	return c.do(ctx, operatorID, http.MethodPost, path, q, nil, nil)
}

// Transition changes a broadcast's lifecycle status ("live" or "complete").
func (c *Client) Transition(ctx context.Context, operatorID, broadcastID, status string) error {
	q := url.Values{}
	q.Set("status", status)
	path := fmt.Sprintf("/broadcasts/%s/transition", url.PathEscape(broadcastID))
	return c.do(ctx, operatorID, http.MethodPost, path, q, nil, nil)
}

// GetBroadcastStatus fetches the remote lifecycle status of a broadcast.
func (c *Client) GetBroadcastStatus(ctx context.Context, operatorID, broadcastID string) (string, error) {
	q := url.Values{}
	q.Set("part", "status")
	path := fmt.Sprintf("/broadcasts/%s", url.PathEscape(broadcastID))
	var out broadcastStatusResponse
	if err := c.do(ctx, operatorID, http.MethodGet, path, q, nil, &out); err != nil {
		return "", err
	}
	return out.LifecycleStatus, nil
}

// GetVideo fetches a video's metadata and processing status.
func (c *Client) GetVideo(ctx context.Context, operatorID, videoID string) (*VideoResource, error) {
	q := url.Values{}
	q.Set("part", "snippet,status,liveDetails")
	path := fmt.Sprintf("/videos/%s", url.PathEscape(videoID))
	var out VideoResource
	if err := c.do(ctx, operatorID, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one provider call: wait for the rate limiter, load the
// operator's token (refreshing proactively if expired), send, and on a 401
// refresh exactly once and retry. Any other non-2xx maps to *Error.
func (c *Client) do(ctx context.Context, operatorID, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	cred, err := c.creds.Get(operatorID)
	if err != nil {
		return fmt.Errorf("no stored credential for operator %q: %w", operatorID, ErrCredentialsUnavailable)
	}
	if cred.Expired(time.Now()) {
		cred, err = c.refresh(ctx, operatorID)
		if err != nil {
			return err
		}
	}

	status, respBody, err := c.send(ctx, method, path, query, body, cred.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		cred, err = c.refresh(ctx, operatorID)
		if err != nil {
			return err
		}
		status, respBody, err = c.send(ctx, method, path, query, body, cred.AccessToken)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		c.metrics.IncProviderErrors()
		return &Error{Status: status, Message: providerMessage(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

func (c *Client) refresh(ctx context.Context, operatorID string) (*models.Credential, error) {
	refreshed, err := c.tokens.Refresh(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	c.metrics.IncTokenRefreshes()
	return refreshed, nil
}

// send performs a single HTTP round trip. Transport failures, including
// timeouts, surface as *Error so callers see one error type for all
// provider-side trouble.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}, token string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.metrics.IncProviderRequests()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncProviderErrors()
		return 0, nil, &Error{Status: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{Status: resp.StatusCode, Message: err.Error()}
	}
	return resp.StatusCode, respBody, nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "request rejected"
	}
	return msg
}
