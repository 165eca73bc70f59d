package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Raw is a single audit event as returned by the remote API.
// Every field other than id and timestamp lands in Details unmodified.
type Raw struct {
	ID        string
	Timestamp time.Time
	Details   map[string]interface{}
}

// Record is the flat, sink-ready form of an event.
type Record map[string]interface{}

// UnmarshalJSON splits the wire object into the identity fields and the
// open details mapping. Timestamps arrive either as epoch milliseconds
// (the historical encoding) or as an RFC 3339 string.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.Details = make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &r.ID); err != nil {
				return fmt.Errorf("event id: %w", err)
			}
		case "timestamp":
			ts, err := parseTimestamp(v)
			if err != nil {
				return err
			}
			r.Timestamp = ts
		default:
			var val interface{}
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("event field %q: %w", k, err)
			}
			r.Details[k] = val
		}
	}
	return nil
}

func parseTimestamp(v json.RawMessage) (time.Time, error) {
	var millis int64
	if err := json.Unmarshal(v, &millis); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return time.Time{}, fmt.Errorf("event timestamp: unsupported encoding %s", string(v))
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("event timestamp: %w", err)
	}
	return t.UTC(), nil
}
