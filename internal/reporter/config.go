// internal/reporter/config.go
package reporter

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultLocationInterval  = 10 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// Config is immutable for the lifetime of one Running session.
type Config struct {
	LocationInterval  time.Duration
	HeartbeatInterval time.Duration
	EndpointBase      string
}

// DefaultConfig returns the stock intervals for the given endpoint.
func DefaultConfig(endpointBase string) Config {
	return Config{
		LocationInterval:  DefaultLocationInterval,
		HeartbeatInterval: DefaultHeartbeatInterval,
		EndpointBase:      endpointBase,
	}
}

// Validate checks the config. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.EndpointBase == "" {
		return fmt.Errorf("%w: endpoint base required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.EndpointBase)
	if err != nil {
		return fmt.Errorf("%w: endpoint base: %v", ErrInvalidConfig, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: endpoint base %q is not an absolute URL", ErrInvalidConfig, c.EndpointBase)
	}
	if c.LocationInterval <= 0 {
		return fmt.Errorf("%w: location interval must be > 0", ErrInvalidConfig)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat interval must be > 0", ErrInvalidConfig)
	}
	return nil
}
