// internal/status/snapshot.go
package status

import (
	"errors"
	"time"
)

// Snapshot represents exactly what the mirror is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health             uint16
	LastErrorCode      uint16
	SecondsSinceReport uint16
	Tracking           uint16
	ActiveOrder        uint16
}

// Inputs is the tracker state a Snapshot is derived from.
type Inputs struct {
	Running        bool
	ActiveOrder    bool
	LastReportedAt time.Time // zero if no report succeeded this session
	LastReportErr  error
	Now            time.Time
	StaleAfter     time.Duration // 0 disables staleness
}

// Derive maps tracker state onto a Snapshot.
func Derive(in Inputs) Snapshot {
	var s Snapshot

	if !in.Running {
		s.Health = HealthDisabled
		return s
	}

	s.Tracking = 1
	if in.ActiveOrder {
		s.ActiveOrder = 1
	}
	s.LastErrorCode = ErrorCode(in.LastReportErr)

	if in.LastReportedAt.IsZero() {
		s.SecondsSinceReport = SecondsMax
	} else {
		s.SecondsSinceReport = saturatingSeconds(in.Now.Sub(in.LastReportedAt))
	}

	switch {
	case in.LastReportErr != nil:
		s.Health = HealthError
	case in.LastReportedAt.IsZero():
		s.Health = HealthUnknown
	case in.StaleAfter > 0 && in.Now.Sub(in.LastReportedAt) > in.StaleAfter:
		s.Health = HealthStale
	default:
		s.Health = HealthOK
	}
	return s
}

func saturatingSeconds(d time.Duration) uint16 {
	if d < 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if sec > int64(SecondsMax) {
		return SecondsMax
	}
	return uint16(sec)
}

// ErrorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, returns 1 (generic error).
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return 1
}
