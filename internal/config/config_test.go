package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/auditflow/internal/sink"
)

const testKeyID = "0123456789abcdef0123456789abcdef"

func validInput() Input {
	return Input{
		Name:            "corp-audit",
		Tenant:          "acme",
		Endpoint:        "https://audit.example.com",
		KeyID:           testKeyID,
		KeySecret:       "secret",
		IntervalSeconds: 60,
		Sinks:           []SinkDef{{Type: "stdout"}},
	}
}

func TestValidate(t *testing.T) {
	reg := sink.Defaults()

	t.Run("valid config passes", func(t *testing.T) {
		cfg := &Config{Version: "1", Inputs: []Input{validInput()}}
		assert.NoError(t, Validate(cfg, reg))
	})

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantMsg: "version is required",
		},
		{
			name:    "no inputs",
			mutate:  func(c *Config) { c.Inputs = nil },
			wantMsg: "at least one input",
		},
		{
			name: "duplicate input names",
			mutate: func(c *Config) {
				c.Inputs = append(c.Inputs, validInput())
			},
			wantMsg: "duplicate input name",
		},
		{
			name:    "interval below floor",
			mutate:  func(c *Config) { c.Inputs[0].IntervalSeconds = 29 },
			wantMsg: "interval_seconds must be >= 30",
		},
		{
			name:    "wrong key id length",
			mutate:  func(c *Config) { c.Inputs[0].KeyID = "short" },
			wantMsg: "key_id must be exactly 32 characters",
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Inputs[0].KeySecret = "" },
			wantMsg: "key_secret is required",
		},
		{
			name:    "non-http endpoint",
			mutate:  func(c *Config) { c.Inputs[0].Endpoint = "ftp://audit.example.com" },
			wantMsg: "http(s)",
		},
		{
			name:    "broken filter",
			mutate:  func(c *Config) { c.Inputs[0].Filter = "action ==" },
			wantMsg: "filter",
		},
		{
			name:    "unknown sink type",
			mutate:  func(c *Config) { c.Inputs[0].Sinks = []SinkDef{{Type: "kafka"}} },
			wantMsg: `sink type "kafka"`,
		},
		{
			name:    "sink params rejected",
			mutate:  func(c *Config) { c.Inputs[0].Sinks = []SinkDef{{Type: "sqlite"}} },
			wantMsg: "'path' param is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Version: "1", Inputs: []Input{validInput()}}
			tc.mutate(cfg)
			err := Validate(cfg, reg)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tc.wantMsg),
				"error %q should mention %q", err, tc.wantMsg)
		})
	}
}

func TestLoaderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditflow.yaml")
	body := `
version: "1"
inputs:
  - name: corp-audit
    tenant: acme
    endpoint: https://audit.example.com/
    key_id: ` + testKeyID + `
    key_secret: secret
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	l, err := NewLoader(path, nil)
	require.NoError(t, err)
	cfg := l.Config()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "checkpoints", cfg.CheckpointDir)
	require.Len(t, cfg.Inputs, 1)
	in := cfg.Inputs[0]
	assert.Equal(t, "https://audit.example.com", in.Endpoint, "trailing slash must be stripped")
	assert.Equal(t, 60, in.IntervalSeconds)
	require.Len(t, in.Sinks, 1)
	assert.Equal(t, "stdout", in.Sinks[0].Type)
}

func TestLoaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditflow.yaml")
	write := func(interval int) {
		body := `
version: "1"
inputs:
  - name: corp-audit
    tenant: acme
    endpoint: https://audit.example.com
    key_id: ` + testKeyID + `
    key_secret: secret
    interval_seconds: ` + strconv.Itoa(interval) + `
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}

	write(60)
	l, err := NewLoader(path, nil)
	require.NoError(t, err)

	var notified *Config
	l.OnChange(func(c *Config) { notified = c })

	write(120)
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Inputs[0].IntervalSeconds)
	require.NotNil(t, notified, "OnChange callback must fire on reload")
	assert.Equal(t, 120, notified.Inputs[0].IntervalSeconds)
}

func TestLoaderValidatesBeforeSwap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auditflow.yaml")
	write := func(interval int) {
		body := `
version: "1"
inputs:
  - name: corp-audit
    tenant: acme
    endpoint: https://audit.example.com
    key_id: ` + testKeyID + `
    key_secret: secret
    interval_seconds: ` + strconv.Itoa(interval) + `
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}

	reg := sink.Defaults()
	write(60)
	l, err := NewLoader(path, func(c *Config) error { return Validate(c, reg) })
	require.NoError(t, err)

	fired := false
	l.OnChange(func(*Config) { fired = true })

	// Below the interval floor: the reload must fail without swapping the
	// bad config in or notifying callbacks.
	write(10)
	_, err = l.Reload()
	require.Error(t, err)
	assert.False(t, fired, "callbacks must never observe an invalid config")
	assert.Equal(t, 60, l.Config().Inputs[0].IntervalSeconds, "old config must stay in place")

	t.Run("initial load rejects invalid config", func(t *testing.T) {
		_, err := NewLoader(path, func(c *Config) error { return Validate(c, reg) })
		assert.Error(t, err)
	})
}
