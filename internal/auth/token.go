package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gyaneshwarpardhi/auditflow/internal/metrics"
)

// tokenTTL is the fixed validity window granted by the token endpoint.
const tokenTTL = time.Hour

// RefreshError wraps any failure to obtain a bearer token. The poll loop
// treats it as cycle-aborting: no fetch may proceed without a valid token.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return fmt.Sprintf("token refresh: %s", e.Err) }
func (e *RefreshError) Unwrap() error { return e.Err }

// Manager obtains and caches a bearer token for one (tenant, endpoint)
// pair. It performs at most one refresh at a time; the poll loop is
// strictly sequential, so no locking is needed.
type Manager struct {
	client    *http.Client
	input     string
	endpoint  string
	tenant    string
	keyID     string
	keySecret string
	now       func() time.Time

	token     string
	expiresAt time.Time
}

// NewManager creates a Manager with no cached token; the first EnsureValid
// call refreshes. The input name is used only for metric labels.
func NewManager(client *http.Client, input, endpoint, tenant, keyID, keySecret string) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{
		client:    client,
		input:     input,
		endpoint:  endpoint,
		tenant:    tenant,
		keyID:     keyID,
		keySecret: keySecret,
		now:       time.Now,
	}
}

// EnsureValid returns a bearer token that is valid at the time of the call.
// The cached token is reused without any network traffic while unexpired;
// otherwise a synchronous refresh runs first. On failure no cached state
// changes, so a later call retries cleanly.
func (m *Manager) EnsureValid(ctx context.Context) (string, error) {
	if m.token != "" && m.expiresAt.After(m.now()) {
		return m.token, nil
	}
	tok, err := m.refresh(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(m.input, "error").Inc()
		return "", &RefreshError{Err: err}
	}
	metrics.TokenRefreshes.WithLabelValues(m.input, "success").Inc()
	m.token = tok
	m.expiresAt = m.now().Add(tokenTTL)
	return m.token, nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"key_id":     m.keyID,
		"key_secret": m.keySecret,
	})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1/teams/%s/service_token", m.endpoint, m.tenant)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, msg)
	}

	var parsed struct {
		BearerToken string `json:"bearer_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.BearerToken == "" {
		return "", fmt.Errorf("token endpoint returned empty bearer_token")
	}
	return parsed.BearerToken, nil
}
