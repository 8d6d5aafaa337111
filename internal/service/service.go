// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"
	"github.com/domipancho/courier-tracker/internal/state"

	"github.com/google/uuid"
)

const DefaultRestartDelay = time.Second

// Notifier receives the tracking notification whenever its content changes.
type Notifier interface {
	Notify(n Notification)
}

// Options wires a Service. Loop, Source and Store are required.
type Options struct {
	Loop         *reporter.Loop
	Source       reporter.LocationSource
	Store        state.Store
	Reporter     reporter.Config
	RestartDelay time.Duration
	Notifier     Notifier // optional
}

// Service owns the tracking lifecycle: it persists the user's intent,
// arms and disarms the loop, and restarts it if it stops on its own.
type Service struct {
	loop         *reporter.Loop
	src          reporter.LocationSource
	store        state.Store
	cfg          reporter.Config
	restartDelay time.Duration
	notifier     Notifier
	newSession   func() string

	// serializes Start, Stop, Restore and the watchdog
	opMu sync.Mutex
	// orders notifications so a loop callback cannot land after Stop's reset
	notifyMu sync.Mutex

	mu         sync.Mutex
	want       bool
	sessionID  string
	orderID    int64
	lastArmErr error
	restarts   uint64
	lastNotice Notification
}

func New(opts Options) (*Service, error) {
	if opts.Loop == nil {
		return nil, errors.New("service: loop required")
	}
	if opts.Source == nil {
		return nil, errors.New("service: location source required")
	}
	if opts.Store == nil {
		return nil, errors.New("service: state store required")
	}
	if err := opts.Reporter.Validate(); err != nil {
		return nil, err
	}
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}

	return &Service{
		loop:         opts.Loop,
		src:          opts.Source,
		store:        opts.Store,
		cfg:          opts.Reporter,
		restartDelay: opts.RestartDelay,
		notifier:     opts.Notifier,
		newSession:   uuid.NewString,
		lastNotice:   notificationFor(nil, false),
	}, nil
}

// Start persists the intent to track and arms the loop. If tracking is
// already running only the order id is updated.
func (s *Service) Start(ctx context.Context, orderID int64) error {
	if orderID < 0 {
		return fmt.Errorf("service: invalid order id %d", orderID)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.store.SetTrackingActive(ctx, true); err != nil {
		return fmt.Errorf("service: persist tracking state: %w", err)
	}
	if err := s.store.SetActiveOrder(ctx, orderID); err != nil {
		return fmt.Errorf("service: persist order: %w", err)
	}

	s.mu.Lock()
	s.want = true
	s.orderID = orderID
	s.mu.Unlock()

	if s.loop.State() == reporter.Running {
		log.Printf("service: tracking already running, order updated (order=%d)", orderID)
		return nil
	}
	return s.arm()
}

// Stop disarms the loop and clears the persisted state. The watchdog will
// not restart tracking after Stop.
func (s *Service) Stop(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.want = false
	s.sessionID = ""
	s.orderID = 0
	s.lastArmErr = nil
	s.mu.Unlock()

	s.loop.Disarm()
	s.publish(notificationFor(nil, false))

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("service: clear tracking state: %w", err)
	}
	log.Printf("service: tracking stopped")
	return nil
}

// Shutdown disarms the loop for process exit. The persisted state is kept so
// the next Restore resumes tracking.
func (s *Service) Shutdown() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.want = false
	s.mu.Unlock()

	s.loop.Disarm()
}

// Restore re-arms tracking at process start when the persisted state says
// it should be active.
func (s *Service) Restore(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	active, err := s.store.TrackingActive(ctx)
	if err != nil {
		return fmt.Errorf("service: read tracking state: %w", err)
	}
	if !active {
		return nil
	}
	orderID, err := s.store.ActiveOrder(ctx)
	if err != nil {
		return fmt.Errorf("service: read order: %w", err)
	}
	since, _ := s.store.LastUpdate(ctx)

	s.mu.Lock()
	s.want = true
	s.orderID = orderID
	s.mu.Unlock()

	log.Printf("service: restoring tracking (order=%d since=%s)", orderID, since.Format(time.RFC3339))
	return s.arm()
}

// Run is the watchdog. It re-arms the loop every restart delay while the
// user wants tracking and the loop is stopped. Blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	t := time.NewTicker(s.restartDelay)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.reconcile()
		}
	}
}

func (s *Service) reconcile() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	want := s.want
	s.mu.Unlock()

	if !want || s.loop.State() == reporter.Running {
		return
	}

	log.Printf("service: tracking not running, restarting")
	if err := s.arm(); err == nil {
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
	}
}

// arm must be called with opMu held.
func (s *Service) arm() error {
	id := s.newSession()

	err := s.loop.Arm(s.cfg, s.src, callbacks{s})
	if errors.Is(err, reporter.ErrAlreadyRunning) {
		err = nil
	}

	s.mu.Lock()
	s.lastArmErr = err
	if err == nil {
		s.sessionID = id
	}
	order := s.orderID
	s.mu.Unlock()

	if err != nil {
		log.Printf("service: arm failed (order=%d): %v", order, err)
		return err
	}
	log.Printf("service: tracking started (session=%s order=%d)", id, order)
	return nil
}

// ---- status ----

// Location is the JSON view of a position sample.
type Location struct {
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Accuracy   float64 `json:"accuracy"`
	Provider   string  `json:"provider"`
	CapturedAt int64   `json:"capturedAt"`
}

type Status struct {
	Running         bool         `json:"isRunning"`
	SessionID       string       `json:"sessionId,omitempty"`
	OrderID         int64        `json:"orderId"`
	ActiveOrder     bool         `json:"activeOrder"`
	LastLocation    *Location    `json:"lastLocation,omitempty"`
	LastReportedAt  *time.Time   `json:"lastReportedAt,omitempty"`
	LastReportError string       `json:"lastReportError,omitempty"`
	LastArmError    string       `json:"lastArmError,omitempty"`
	Restarts        uint64       `json:"restarts"`
	ReportsOK       uint64       `json:"reportsOk"`
	ReportsFailed   uint64       `json:"reportsFailed"`
	Notification    Notification `json:"notification"`
}

func (s *Service) Status() Status {
	st := s.loop.Stats()

	s.mu.Lock()
	out := Status{
		Running:       st.State == reporter.Running,
		SessionID:     s.sessionID,
		OrderID:       s.orderID,
		ActiveOrder:   st.ActiveOrder,
		Restarts:      s.restarts,
		ReportsOK:     st.ReportsOK,
		ReportsFailed: st.ReportsFailed,
	}
	if s.lastArmErr != nil {
		out.LastArmError = s.lastArmErr.Error()
	}
	s.mu.Unlock()

	if !out.Running {
		out.SessionID = ""
	}
	if st.Latest != nil {
		out.LastLocation = &Location{
			Latitude:   st.Latest.Latitude,
			Longitude:  st.Latest.Longitude,
			Accuracy:   st.Latest.AccuracyMeters,
			Provider:   string(st.Latest.Provider),
			CapturedAt: st.Latest.CapturedAt,
		}
	}
	if !st.LastReportedAt.IsZero() {
		t := st.LastReportedAt
		out.LastReportedAt = &t
	}
	if st.LastReportErr != nil {
		out.LastReportError = st.LastReportErr.Error()
	}
	out.Notification = notificationFor(st.Latest, st.ActiveOrder)
	return out
}

// LoopStats returns the reporting loop's raw counters and last error.
func (s *Service) LoopStats() reporter.Stats {
	return s.loop.Stats()
}

// Notification returns the most recently published notification.
func (s *Service) Notification() Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastNotice
}

func (s *Service) publish(n Notification) {
	s.deliver(n, false)
}

// publishFromLoop is publish for loop callbacks. It is dropped once the
// user stopped tracking.
func (s *Service) publishFromLoop(n Notification) {
	s.deliver(n, true)
}

func (s *Service) deliver(n Notification, fromLoop bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if fromLoop && !s.want {
		s.mu.Unlock()
		return
	}
	changed := n != s.lastNotice
	s.lastNotice = n
	notifier := s.notifier
	s.mu.Unlock()

	if changed && notifier != nil {
		notifier.Notify(n)
	}
}

// ---- loop callbacks ----

type callbacks struct{ s *Service }

func (c callbacks) OnSampleUpdated(sample reporter.PositionSample, activeOrder bool) {
	c.s.publishFromLoop(notificationFor(&sample, activeOrder))
}

func (c callbacks) OnActiveOrderChanged(active bool) {
	if active {
		log.Printf("service: order in transit")
	} else {
		log.Printf("service: no order in transit")
	}
	st := c.s.loop.Stats()
	c.s.publishFromLoop(notificationFor(st.Latest, active))
}
