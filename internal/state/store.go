// internal/state/store.go
package state

import (
	"context"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"
)

// Store persists whether tracking should be active across restarts.
// The reporting loop never touches it; the service reads it at startup.
type Store interface {
	// SetTrackingActive records the desired state and stamps the update time.
	SetTrackingActive(ctx context.Context, active bool) error
	TrackingActive(ctx context.Context) (bool, error)

	// SetActiveOrder records the order being delivered; 0 means none.
	SetActiveOrder(ctx context.Context, orderID int64) error
	ActiveOrder(ctx context.Context) (int64, error)

	// LastUpdate is the time of the last SetTrackingActive; zero if never set.
	LastUpdate(ctx context.Context) (time.Time, error)

	// Clear marks tracking inactive and forgets the order.
	Clear(ctx context.Context) error

	// Last known fix per provider, used to seed the loop after a restart.
	SaveLastKnown(ctx context.Context, s reporter.PositionSample) error
	LastKnown(ctx context.Context, p reporter.Provider) (reporter.PositionSample, bool, error)

	Close() error
}
