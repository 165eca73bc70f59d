package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/auditflow/internal/filter"
	"github.com/gyaneshwarpardhi/auditflow/internal/sink"
)

// keyIDLength is the fixed length of remote API key identifiers.
const keyIDLength = 32

// minIntervalSeconds guards against hammering the audit endpoint.
const minIntervalSeconds = 30

// Validate checks the config for:
//   - Required fields and duplicate input names
//   - Polling interval floor and key id shape
//   - Filter expressions that compile
//   - Sink types known to the registry, with valid params
func Validate(cfg *Config, sinks *sink.Registry) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("config: at least one input is required")
	}

	names := make(map[string]bool)
	var errs []string

	for i, in := range cfg.Inputs {
		if in.Name == "" {
			errs = append(errs, fmt.Sprintf("inputs[%d]: name is required", i))
			continue
		}
		loc := fmt.Sprintf("input %s", in.Name)
		if names[in.Name] {
			errs = append(errs, fmt.Sprintf("duplicate input name %q", in.Name))
		}
		names[in.Name] = true

		if in.Tenant == "" {
			errs = append(errs, fmt.Sprintf("%s: tenant is required", loc))
		}
		if in.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("%s: endpoint is required", loc))
		} else if !strings.HasPrefix(in.Endpoint, "http://") && !strings.HasPrefix(in.Endpoint, "https://") {
			errs = append(errs, fmt.Sprintf("%s: endpoint must be an http(s) URL", loc))
		}
		if len(in.KeyID) != keyIDLength {
			errs = append(errs, fmt.Sprintf("%s: key_id must be exactly %d characters", loc, keyIDLength))
		}
		if in.KeySecret == "" {
			errs = append(errs, fmt.Sprintf("%s: key_secret is required", loc))
		}
		if in.IntervalSeconds < minIntervalSeconds {
			errs = append(errs, fmt.Sprintf("%s: interval_seconds must be >= %d, got %d", loc, minIntervalSeconds, in.IntervalSeconds))
		}
		if in.Filter != "" {
			if _, err := filter.Compile(in.Filter); err != nil {
				errs = append(errs, fmt.Sprintf("%s: filter: %s", loc, err))
			}
		}
		for j, sd := range in.Sinks {
			f, err := sinks.Get(sd.Type)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s.sinks[%d]: %s", loc, j, err))
				continue
			}
			if err := f.Validate(sd.Params); err != nil {
				errs = append(errs, fmt.Sprintf("%s.sinks[%d]: %s", loc, j, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
