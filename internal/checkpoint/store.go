package checkpoint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store persists one watermark per (tenant, endpoint) pair under a
// directory namespaced by input name. A watermark separates already
// delivered events from not-yet-delivered ones; losing it risks duplicate
// delivery, never loss.
type Store struct {
	dir string
}

// New returns a Store rooted at dir/<inputName>.
func New(dir, inputName string) *Store {
	return &Store{dir: filepath.Join(dir, inputName)}
}

// Load reads the watermark for (tenant, endpoint). It fails soft: a missing
// file, unreadable file, or unparsable content all report absent, because
// starting over from the first page is recoverable while a crashed input
// is not.
func (s *Store) Load(tenant, endpoint string) (time.Time, bool) {
	data, err := os.ReadFile(s.path(tenant, endpoint))
	if err != nil {
		return time.Time{}, false
	}
	wm, err := decode(strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return wm, true
}

// Save writes the watermark durably, replacing any previous value. Unlike
// Load, errors here must reach the caller: a silent failure would advance
// delivery without advancing the checkpoint.
func (s *Store) Save(tenant, endpoint string, wm time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint dir %s: %w", s.dir, err)
	}
	p := s.path(tenant, endpoint)
	tmp := p + ".tmp"
	body := []byte(wm.UTC().Format(time.RFC3339Nano))

	// Write-sync-close-rename: the rename must only ever expose a
	// watermark that has actually reached the disk.
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write checkpoint %s: %w", tmp, err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return fmt.Errorf("write checkpoint %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync checkpoint %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("replace checkpoint %s: %w", p, err)
	}
	return nil
}

// path derives the checkpoint file name from a one-way hash of the pair so
// that distinct tenants on the same store never clobber each other.
func (s *Store) path(tenant, endpoint string) string {
	sum := sha1.Sum([]byte(tenant + "-" + endpoint))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:]))
}

// decode accepts the current RFC 3339 encoding as well as the legacy raw
// epoch-milliseconds integer written by earlier releases.
func decode(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty checkpoint")
	}
	if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint %q: %w", v, err)
	}
	return t.UTC(), nil
}
