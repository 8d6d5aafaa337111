// internal/reporter/loop.go
package reporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Loop periodically reports the latest position and a liveness heartbeat,
// and tracks whether the courier has an order in transit.
//
// Stopped -> Arm -> Running -> Disarm -> Stopped. Stopped can be re-armed.
type Loop struct {
	factory ClientFactory
	now     func() time.Time

	mu             sync.Mutex
	state          TrackingState
	session        uint64 // bumped on every Arm and Disarm; stale completions are dropped
	cfg            Config
	api            API
	cb             Callbacks
	latest         *PositionSample
	lastReportedAt time.Time
	lastReportErr  error
	activeOrder    bool
	counters       counters

	cancel context.CancelFunc
	done   chan struct{}

	// at most one in-flight call per kind, across sessions
	reportBusy    atomic.Bool
	heartbeatBusy atomic.Bool
	pollBusy      atomic.Bool

	workers sync.WaitGroup
}

type counters struct {
	reportsOK     uint64
	reportsFailed uint64
	pollsOK       uint64
	pollsFailed   uint64
	skippedBusy   uint64
}

// New creates a stopped loop. The factory is called on every Arm.
func New(factory ClientFactory) (*Loop, error) {
	if factory == nil {
		return nil, errors.New("reporter: client factory required")
	}
	return &Loop{
		factory: factory,
		now:     time.Now,
	}, nil
}

// Arm validates cfg, seeds the latest sample from src and starts both timers.
// Both timers fire immediately, then every interval.
func (l *Loop) Arm(cfg Config, src LocationSource, cb Callbacks) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cb == nil {
		cb = nopCallbacks{}
	}

	l.mu.Lock()
	if l.state == Running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}

	api, err := l.factory(cfg)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	l.session++
	session := l.session
	l.state = Running
	l.cfg = cfg
	l.api = api
	l.cb = cb
	l.latest = nil
	l.lastReportedAt = time.Time{}
	l.lastReportErr = nil
	l.activeOrder = false

	if src != nil {
		if !src.ProviderEnabled(ProviderGPS) && !src.ProviderEnabled(ProviderNetwork) {
			log.Printf("reporter: no location provider enabled, waiting for fixes")
		}
		if s, ok := seedSample(src); ok {
			l.latest = &s
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	seeded := l.latest != nil
	l.mu.Unlock()

	log.Printf("reporter: armed (endpoint=%s location=%s heartbeat=%s seeded=%t)",
		cfg.EndpointBase, cfg.LocationInterval, cfg.HeartbeatInterval, seeded)

	l.locationTick(session)
	l.heartbeatTick(session)

	go l.run(ctx, session, cfg, done)
	return nil
}

// Disarm cancels both timers and waits for the control goroutine to exit.
// In-flight calls are not aborted; their results are discarded.
// Calling Disarm on a stopped loop is a no-op.
func (l *Loop) Disarm() {
	l.mu.Lock()
	if l.state == Stopped {
		l.mu.Unlock()
		return
	}
	l.state = Stopped
	l.session++
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	cancel()
	<-done
	log.Printf("reporter: disarmed")
}

// OnLocationUpdate replaces the latest sample. Samples pushed while the loop
// is stopped are ignored.
func (l *Loop) OnLocationUpdate(s PositionSample) {
	l.mu.Lock()
	if l.state != Running {
		l.mu.Unlock()
		return
	}
	sample := s
	l.latest = &sample
	active := l.activeOrder
	cb := l.cb
	l.mu.Unlock()

	cb.OnSampleUpdated(s, active)
}

// State returns the current tracking state.
func (l *Loop) State() TrackingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ActiveOrder returns the most recent active-order flag.
func (l *Loop) ActiveOrder() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeOrder
}

// Stats returns a copy of the loop's current state and counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Stats{
		State:          l.state,
		ActiveOrder:    l.activeOrder,
		LastReportedAt: l.lastReportedAt,
		LastReportErr:  l.lastReportErr,
		ReportsOK:      l.counters.reportsOK,
		ReportsFailed:  l.counters.reportsFailed,
		PollsOK:        l.counters.pollsOK,
		PollsFailed:    l.counters.pollsFailed,
		SkippedBusy:    l.counters.skippedBusy,
	}
	if l.latest != nil {
		s := *l.latest
		st.Latest = &s
	}
	return st
}

func seedSample(src LocationSource) (PositionSample, bool) {
	for _, p := range []Provider{ProviderGPS, ProviderNetwork} {
		if s, ok := src.LastKnown(p); ok {
			return s, true
		}
	}
	return PositionSample{}, false
}

type nopCallbacks struct{}

func (nopCallbacks) OnSampleUpdated(PositionSample, bool) {}
func (nopCallbacks) OnActiveOrderChanged(bool)            {}
