// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Tracker.EndpointBase = strings.TrimRight(strings.TrimSpace(cfg.Tracker.EndpointBase), "/")

	if cfg.Tracker.ReportTimeoutMs == 0 {
		cfg.Tracker.ReportTimeoutMs = 15000
	}
	if cfg.Tracker.PollTimeoutMs == 0 {
		cfg.Tracker.PollTimeoutMs = 10000
	}
	if cfg.Tracker.RestartDelayMs == 0 {
		cfg.Tracker.RestartDelayMs = 1000
	}

	cfg.Source.Backend = strings.ToLower(cfg.Source.Backend)
	if cfg.Source.Backend == "" {
		cfg.Source.Backend = "none"
	}

	// Providers: lowercase, de-duplicated, order kept.
	seen := make(map[string]bool, len(cfg.Source.Providers))
	providers := cfg.Source.Providers[:0]
	for _, p := range cfg.Source.Providers {
		p = strings.ToLower(strings.TrimSpace(p))
		if seen[p] {
			continue
		}
		seen[p] = true
		providers = append(providers, p)
	}
	cfg.Source.Providers = providers

	cfg.State.Backend = strings.ToLower(cfg.State.Backend)
	if cfg.State.Backend == "" {
		cfg.State.Backend = "sqlite"
	}

	// ------------------------------------------------------------
	// STATUS MIRROR NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.StatusMirror; m != nil {
		// ASCII already validated; truncate to max 16 characters
		if len(m.DeviceName) > 16 {
			m.DeviceName = m.DeviceName[:16]
		}
		if m.TimeoutMs == 0 {
			m.TimeoutMs = 2000
		}
	}
}
