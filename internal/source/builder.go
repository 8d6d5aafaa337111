// internal/source/builder.go
package source

import (
	"context"
	"fmt"

	"github.com/domipancho/courier-tracker/internal/config"
	"github.com/domipancho/courier-tracker/internal/reporter"
)

// Backend delivers raw fix payloads into a Hub.
type Backend interface {
	Name() string
	Start(ctx context.Context) error
	Close() error
}

// Providers converts normalized provider names. Unknown names are skipped;
// config validation already rejects them.
func Providers(names []string) []reporter.Provider {
	out := make([]reporter.Provider, 0, len(names))
	for _, n := range names {
		if p, ok := reporter.ParseProvider(n); ok {
			out = append(out, p)
		}
	}
	return out
}

// NewBackend returns the configured transport, or nil for "none".
// IMPORTANT: cfg MUST be validated + normalized before calling this.
func NewBackend(cfg config.SourceConfig, hub *Hub) (Backend, error) {
	switch cfg.Backend {
	case "mqtt":
		return NewMQTTBackend(cfg.MQTT, hub), nil
	case "kafka":
		return NewKafkaBackend(cfg.Kafka, hub), nil
	case "nsq":
		return NewNSQBackend(cfg.NSQ, hub), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown source backend: %s", cfg.Backend)
	}
}
