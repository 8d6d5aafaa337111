// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	// ------------------------------------------------------------
	// TRACKER
	// ------------------------------------------------------------

	t := cfg.Tracker
	if strings.TrimSpace(t.EndpointBase) == "" {
		return fmt.Errorf("tracker: endpoint_base is required")
	}
	u, err := url.Parse(strings.TrimSpace(t.EndpointBase))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("tracker: endpoint_base %q must be an absolute URL", t.EndpointBase)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("tracker: endpoint_base scheme %q not supported", u.Scheme)
	}
	if t.LocationIntervalMs <= 0 {
		return fmt.Errorf("tracker: location_interval_ms must be > 0")
	}
	if t.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("tracker: heartbeat_interval_ms must be > 0")
	}
	if t.ReportTimeoutMs < 0 || t.PollTimeoutMs < 0 || t.RestartDelayMs < 0 {
		return fmt.Errorf("tracker: timeouts and restart delay must not be negative")
	}

	// ------------------------------------------------------------
	// LOCATION SOURCE
	// ------------------------------------------------------------

	s := cfg.Source
	if len(s.Providers) == 0 {
		return fmt.Errorf("source: at least one provider is required")
	}
	for _, p := range s.Providers {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "gps", "network":
		default:
			return fmt.Errorf("source: unknown provider %q", p)
		}
	}

	switch strings.ToLower(s.Backend) {
	case "none", "":
	case "mqtt":
		if s.MQTT.Broker == "" || s.MQTT.Topic == "" {
			return fmt.Errorf("source: mqtt backend requires broker and topic")
		}
		if s.MQTT.Port <= 0 || s.MQTT.Port > 65535 {
			return fmt.Errorf("source: mqtt port %d out of range", s.MQTT.Port)
		}
	case "kafka":
		if len(s.Kafka.Brokers) == 0 || s.Kafka.Topic == "" {
			return fmt.Errorf("source: kafka backend requires brokers and topic")
		}
	case "nsq":
		if s.NSQ.Topic == "" || s.NSQ.Channel == "" {
			return fmt.Errorf("source: nsq backend requires topic and channel")
		}
		if s.NSQ.NSQD == "" && s.NSQ.Lookupd == "" {
			return fmt.Errorf("source: nsq backend requires nsqd or lookupd")
		}
	default:
		return fmt.Errorf("source: unknown backend %q", s.Backend)
	}

	// ------------------------------------------------------------
	// PERSISTED STATE
	// ------------------------------------------------------------

	switch strings.ToLower(cfg.State.Backend) {
	case "sqlite", "":
		if cfg.State.SQLitePath == "" {
			return fmt.Errorf("state: sqlite_path is required")
		}
	case "redis":
		if cfg.State.Redis.Addr == "" {
			return fmt.Errorf("state: redis addr is required")
		}
	case "dynamodb":
		if cfg.State.DynamoDB.Table == "" {
			return fmt.Errorf("state: dynamodb table is required")
		}
	default:
		return fmt.Errorf("state: unknown backend %q", cfg.State.Backend)
	}

	// ------------------------------------------------------------
	// WEB
	// ------------------------------------------------------------

	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web: port %d out of range", cfg.Web.Port)
	}

	// ------------------------------------------------------------
	// STATUS MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if m := cfg.StatusMirror; m != nil {
		if m.Endpoint == "" {
			return fmt.Errorf("status_mirror: endpoint is required")
		}
		for i := 0; i < len(m.DeviceName); i++ {
			if m.DeviceName[i] > 0x7F {
				return fmt.Errorf("status_mirror: device_name must contain ASCII characters only")
			}
		}
		if m.TimeoutMs < 0 {
			return fmt.Errorf("status_mirror: timeout_ms must not be negative")
		}
	}

	return nil
}
