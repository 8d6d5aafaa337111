// internal/config/validate_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// helper to build a valid config quickly
func valid() *Config {
	cfg := Defaults()
	cfg.Source.Backend = "none"
	return cfg
}

// ---- tests ----

func TestValidate_DefaultsAreValid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EndpointRequired(t *testing.T) {
	cfg := valid()
	cfg.Tracker.EndpointBase = "  "

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for empty endpoint, got nil")
	}
}

func TestValidate_EndpointMustBeAbsolute(t *testing.T) {
	cfg := valid()
	cfg.Tracker.EndpointBase = "domipancho.com/api"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for relative endpoint, got nil")
	}
}

func TestValidate_EndpointScheme(t *testing.T) {
	cfg := valid()
	cfg.Tracker.EndpointBase = "ftp://domipancho.com"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for ftp scheme, got nil")
	}
}

func TestValidate_IntervalsPositive(t *testing.T) {
	cfg := valid()
	cfg.Tracker.LocationIntervalMs = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for zero location interval")
	}

	cfg = valid()
	cfg.Tracker.HeartbeatIntervalMs = -5
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for negative heartbeat interval")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := valid()
	cfg.Source.Providers = []string{"gps", "galileo"}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestValidate_BackendRequirements(t *testing.T) {
	cases := map[string]func(c *Config){
		"mqtt without topic":     func(c *Config) { c.Source.Backend = "mqtt"; c.Source.MQTT.Topic = "" },
		"kafka without brokers":  func(c *Config) { c.Source.Backend = "kafka" },
		"nsq without daemon":     func(c *Config) { c.Source.Backend = "nsq" },
		"unknown source":         func(c *Config) { c.Source.Backend = "serial" },
		"redis without addr":     func(c *Config) { c.State.Backend = "redis"; c.State.Redis.Addr = "" },
		"dynamodb without table": func(c *Config) { c.State.Backend = "dynamodb"; c.State.DynamoDB.Table = "" },
		"unknown state":          func(c *Config) { c.State.Backend = "etcd" },
	}

	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestValidate_StatusMirrorASCII(t *testing.T) {
	cfg := valid()
	cfg.StatusMirror = &StatusMirrorConfig{Endpoint: "127.0.0.1:502", DeviceName: "MOTO-Ñ"}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for non-ASCII device name")
	}
}

func TestNormalize(t *testing.T) {
	cfg := valid()
	cfg.Tracker.EndpointBase = " https://domipancho.com/ "
	cfg.Tracker.PollTimeoutMs = 0
	cfg.Source.Backend = "MQTT"
	cfg.Source.Providers = []string{"GPS", "gps", " network"}
	cfg.StatusMirror = &StatusMirrorConfig{Endpoint: "127.0.0.1:502", DeviceName: "MOTO-0123456789ABCDEF"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	if cfg.Tracker.EndpointBase != "https://domipancho.com" {
		t.Fatalf("endpoint = %q", cfg.Tracker.EndpointBase)
	}
	if cfg.Tracker.PollTimeoutMs != 10000 {
		t.Fatalf("poll timeout = %d, want 10000", cfg.Tracker.PollTimeoutMs)
	}
	if cfg.Source.Backend != "mqtt" {
		t.Fatalf("backend = %q", cfg.Source.Backend)
	}
	if len(cfg.Source.Providers) != 2 || cfg.Source.Providers[0] != "gps" || cfg.Source.Providers[1] != "network" {
		t.Fatalf("providers = %v", cfg.Source.Providers)
	}
	if len(cfg.StatusMirror.DeviceName) != 16 {
		t.Fatalf("device name not truncated: %q", cfg.StatusMirror.DeviceName)
	}
	if cfg.StatusMirror.TimeoutMs != 2000 {
		t.Fatalf("mirror timeout = %d, want 2000", cfg.StatusMirror.TimeoutMs)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracker.LocationIntervalMs != 10000 || cfg.Tracker.HeartbeatIntervalMs != 30000 {
		t.Fatalf("defaults not applied: %+v", cfg.Tracker)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	data := []byte(`
tracker:
  endpoint_base: https://staging.domipancho.com
  heartbeat_interval_ms: 60000
  headers:
    Cookie: connect.sid=abc
source:
  backend: kafka
  kafka:
    brokers: [kafka-1:9092]
status_mirror:
  endpoint: 10.0.0.5:502
  unit_id: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracker.EndpointBase != "https://staging.domipancho.com" {
		t.Fatalf("endpoint = %q", cfg.Tracker.EndpointBase)
	}
	if cfg.Tracker.LocationIntervalMs != 10000 {
		t.Fatalf("location interval default lost: %d", cfg.Tracker.LocationIntervalMs)
	}
	if cfg.Tracker.HeartbeatIntervalMs != 60000 {
		t.Fatalf("heartbeat interval = %d", cfg.Tracker.HeartbeatIntervalMs)
	}
	if cfg.Tracker.Headers["Cookie"] != "connect.sid=abc" {
		t.Fatalf("headers = %v", cfg.Tracker.Headers)
	}
	if cfg.Source.Kafka.Topic != "courier.location" {
		t.Fatalf("kafka topic default lost: %q", cfg.Source.Kafka.Topic)
	}
	if cfg.StatusMirror == nil || cfg.StatusMirror.UnitID != 3 {
		t.Fatalf("status mirror = %+v", cfg.StatusMirror)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}
