// internal/reporter/types.go
package reporter

import (
	"context"
	"strings"
	"time"
)

// TrackingState is the lifecycle state of a Loop.
type TrackingState int

const (
	Stopped TrackingState = iota
	Running
)

func (s TrackingState) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Provider identifies where a fix came from.
type Provider string

const (
	ProviderGPS     Provider = "gps"
	ProviderNetwork Provider = "network"
)

// ParseProvider maps a free-form provider name onto a known Provider.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gps", "fused":
		return ProviderGPS, true
	case "network", "net", "wifi", "cell":
		return ProviderNetwork, true
	default:
		return "", false
	}
}

// PositionSample is one immutable location fix.
type PositionSample struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Provider       Provider
	CapturedAt     int64 // ms since epoch
}

// CapturedTime returns CapturedAt as a time.Time.
func (s PositionSample) CapturedTime() time.Time {
	return time.UnixMilli(s.CapturedAt)
}

// Order is the subset of an order record the loop looks at.
type Order struct {
	Estado string `json:"estado"`
}

// EstadoInTransit marks an order the courier is currently delivering.
const EstadoInTransit = "camino a tu casa"

// HasActiveOrder reports whether any order is in transit.
func HasActiveOrder(orders []Order) bool {
	for _, o := range orders {
		if strings.EqualFold(o.Estado, EstadoInTransit) {
			return true
		}
	}
	return false
}

// API is the remote endpoint the loop talks to.
// Implementations apply their own per-call timeouts.
type API interface {
	ReportPosition(ctx context.Context, s PositionSample) error
	SendHeartbeat(ctx context.Context) error
	ListOrders(ctx context.Context) ([]Order, error)
}

// ClientFactory builds an API bound to one session's config.
type ClientFactory func(cfg Config) (API, error)

// LocationSource is queried once at arm time to seed the latest sample.
// Fresh fixes are pushed into Loop.OnLocationUpdate by the source's owner.
type LocationSource interface {
	ProviderEnabled(p Provider) bool
	LastKnown(p Provider) (PositionSample, bool)
}

// Callbacks receives loop notifications. Calls happen outside the loop's lock.
type Callbacks interface {
	OnSampleUpdated(s PositionSample, activeOrder bool)
	OnActiveOrderChanged(active bool)
}

// Stats is a point-in-time copy of loop state.
type Stats struct {
	State          TrackingState
	Latest         *PositionSample
	ActiveOrder    bool
	LastReportedAt time.Time
	LastReportErr  error

	ReportsOK     uint64
	ReportsFailed uint64
	PollsOK       uint64
	PollsFailed   uint64
	SkippedBusy   uint64
}
