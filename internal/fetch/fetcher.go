package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

// RequestError wraps any transport failure or malformed response from the
// audit endpoint. No partial results accompany it.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("audit fetch: %s", e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

// Fetcher performs single-page fetches of recent audit events for one
// (tenant, endpoint) pair.
type Fetcher struct {
	client   *http.Client
	endpoint string
	tenant   string
}

// New creates a Fetcher. A nil client falls back to http.DefaultClient.
func New(client *http.Client, endpoint, tenant string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, endpoint: endpoint, tenant: tenant}
}

// Fetch issues one authenticated GET for recent events in descending
// timestamp order. A known watermark is forwarded as a lower-bound hint;
// the server-side filter is advisory only and callers must still filter
// by watermark themselves. A page with zero events is an empty slice, not
// an error.
func (f *Fetcher) Fetch(ctx context.Context, bearer string, since time.Time) ([]event.Raw, error) {
	q := url.Values{"descending": {"1"}}
	if !since.IsZero() {
		q.Set("after_time", strconv.FormatInt(since.UnixMilli(), 10))
	}
	u := fmt.Sprintf("%s/v1/teams/%s/audits?%s", f.endpoint, f.tenant, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Err: fmt.Errorf("audit endpoint returned %d", resp.StatusCode)}
	}

	var page struct {
		List []event.Raw `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("decode audit page: %w", err)}
	}

	// Rare, but some deployments omit event ids; downstream dedupe keys
	// need one.
	for i := range page.List {
		if page.List[i].ID == "" {
			page.List[i].ID = uuid.New().String()
		}
	}
	return page.List, nil
}
