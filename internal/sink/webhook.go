package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

type webhookFactory struct{}

func (*webhookFactory) Type() string { return "webhook" }

func (*webhookFactory) Validate(params map[string]interface{}) error {
	raw, _ := params["url"].(string)
	if raw == "" {
		return fmt.Errorf("webhook sink: 'url' param is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("webhook sink: invalid url %q", raw)
	}
	return nil
}

func (*webhookFactory) New(params map[string]interface{}) (Sink, error) {
	raw, _ := params["url"].(string)
	return &webhookSink{
		url:    raw,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// webhookSink POSTs each record as a JSON body. Deliveries carry a unique
// id header so receivers can dedupe retransmissions after a crash in the
// checkpoint risk window.
type webhookSink struct {
	url    string
	client *http.Client
}

func (s *webhookSink) Emit(rec event.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (s *webhookSink) Close() error { return nil }
