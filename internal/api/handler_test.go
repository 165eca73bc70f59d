package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/auditflow/internal/config"
	"github.com/gyaneshwarpardhi/auditflow/internal/event"
	"github.com/gyaneshwarpardhi/auditflow/internal/poll"
	"github.com/gyaneshwarpardhi/auditflow/internal/sink"
)

type stubTokens struct{}

func (stubTokens) EnsureValid(ctx context.Context) (string, error) { return "tok", nil }

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, bearer string, since time.Time) ([]event.Raw, error) {
	return []event.Raw{}, nil
}

type stubStore struct{}

func (stubStore) Load(tenant, endpoint string) (time.Time, bool)   { return time.Time{}, false }
func (stubStore) Save(tenant, endpoint string, wm time.Time) error { return nil }

func testPoller(t *testing.T) *poll.Poller {
	t.Helper()
	return poll.New(poll.Options{
		Name:     "corp-audit",
		Tenant:   "acme",
		Endpoint: "https://audit.example.com",
		Interval: time.Minute,
		Tokens:   stubTokens{},
		Fetcher:  stubFetcher{},
		Store:    stubStore{},
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func testLoader(t *testing.T) *config.Loader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auditflow.yaml")
	body := `
version: "1"
inputs:
  - name: corp-audit
    tenant: acme
    endpoint: https://audit.example.com
    key_id: 0123456789abcdef0123456789abcdef
    key_secret: secret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	l, err := config.NewLoader(path, func(c *config.Config) error {
		return config.Validate(c, sink.Defaults())
	})
	require.NoError(t, err)
	return l
}

func TestEndpoints(t *testing.T) {
	p := testPoller(t)
	h := New([]*poll.Poller{p}, testLoader(t))
	srv := httptest.NewServer(h)
	defer srv.Close()

	t.Run("healthz is always ok", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readyz reports starting before first cycle", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("inputs lists poller snapshots", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/inputs")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Inputs []poll.Status `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Inputs, 1)
		assert.Equal(t, "corp-audit", body.Inputs[0].Name)
	})

	t.Run("reload re-reads config", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/config/reload", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics served", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
