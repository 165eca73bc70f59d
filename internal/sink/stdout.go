package sink

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/gyaneshwarpardhi/auditflow/internal/event"
)

type stdoutFactory struct{}

func (*stdoutFactory) Type() string { return "stdout" }

func (*stdoutFactory) Validate(params map[string]interface{}) error { return nil }

func (*stdoutFactory) New(params map[string]interface{}) (Sink, error) {
	return &writerSink{w: os.Stdout}, nil
}

// writerSink emits one JSON object per line. Multiple inputs may share
// stdout, so writes are serialized.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *writerSink) Emit(rec event.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(data, '\n'))
	return err
}

func (s *writerSink) Close() error { return nil }
