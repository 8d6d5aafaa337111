// internal/service/builder.go
package service

import (
	"time"

	"github.com/domipancho/courier-tracker/internal/api"
	"github.com/domipancho/courier-tracker/internal/config"
	"github.com/domipancho/courier-tracker/internal/reporter"
	"github.com/domipancho/courier-tracker/internal/source"
	"github.com/domipancho/courier-tracker/internal/state"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ReporterConfig converts the tracker section into a loop config.
func ReporterConfig(cfg config.TrackerConfig) reporter.Config {
	return reporter.Config{
		LocationInterval:  ms(cfg.LocationIntervalMs),
		HeartbeatInterval: ms(cfg.HeartbeatIntervalMs),
		EndpointBase:      cfg.EndpointBase,
	}
}

// APIConfig converts the tracker section into HTTP client settings.
func APIConfig(cfg config.TrackerConfig) api.Config {
	return api.Config{
		BaseURL:       cfg.EndpointBase,
		ReportTimeout: ms(cfg.ReportTimeoutMs),
		PollTimeout:   ms(cfg.PollTimeoutMs),
		Headers:       cfg.Headers,
	}
}

// Build wires the loop, the hub subscription and the service.
// IMPORTANT: cfg MUST be validated + normalized before calling this.
func Build(cfg *config.Config, hub *source.Hub, store state.Store, notifier Notifier) (*Service, error) {
	loop, err := reporter.New(api.Factory(APIConfig(cfg.Tracker)))
	if err != nil {
		return nil, err
	}

	svc, err := New(Options{
		Loop:         loop,
		Source:       hub,
		Store:        store,
		Reporter:     ReporterConfig(cfg.Tracker),
		RestartDelay: ms(cfg.Tracker.RestartDelayMs),
		Notifier:     notifier,
	})
	if err != nil {
		return nil, err
	}

	hub.Subscribe(loop.OnLocationUpdate)
	return svc, nil
}
