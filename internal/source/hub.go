// internal/source/hub.go
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"
)

var (
	ErrMalformedFix     = errors.New("source: malformed fix")
	ErrProviderDisabled = errors.New("source: provider disabled")
)

// LastKnownStore is the persistence the hub needs. state.Store satisfies it.
type LastKnownStore interface {
	SaveLastKnown(ctx context.Context, s reporter.PositionSample) error
	LastKnown(ctx context.Context, p reporter.Provider) (reporter.PositionSample, bool, error)
}

const persistTimeout = 2 * time.Second

// Hub is the process-wide location source. Backends push raw payloads into
// Ingest; accepted fixes are remembered per provider, persisted, and handed
// to the subscriber.
type Hub struct {
	store LastKnownStore
	now   func() time.Time

	mu      sync.RWMutex
	enabled map[reporter.Provider]bool
	last    map[reporter.Provider]reporter.PositionSample
	sink    func(reporter.PositionSample)
}

// NewHub enables the given providers. store may be nil.
func NewHub(providers []reporter.Provider, store LastKnownStore) *Hub {
	h := &Hub{
		store:   store,
		now:     time.Now,
		enabled: make(map[reporter.Provider]bool),
		last:    make(map[reporter.Provider]reporter.PositionSample),
	}
	for _, p := range providers {
		h.enabled[p] = true
	}
	return h
}

// Seed loads the persisted last-known fix for every enabled provider.
func (h *Hub) Seed(ctx context.Context) error {
	if h.store == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for p := range h.enabled {
		s, ok, err := h.store.LastKnown(ctx, p)
		if err != nil {
			return fmt.Errorf("seed %s: %w", p, err)
		}
		if ok {
			h.last[p] = s
		}
	}
	return nil
}

// Subscribe sets the single receiver of accepted fixes.
func (h *Hub) Subscribe(fn func(reporter.PositionSample)) {
	h.mu.Lock()
	h.sink = fn
	h.mu.Unlock()
}

func (h *Hub) ProviderEnabled(p reporter.Provider) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enabled[p]
}

// SetProviderEnabled toggles a provider at runtime.
func (h *Hub) SetProviderEnabled(p reporter.Provider, on bool) {
	h.mu.Lock()
	prev := h.enabled[p]
	h.enabled[p] = on
	h.mu.Unlock()

	if prev == on {
		return
	}
	if on {
		log.Printf("source: provider enabled (%s)", p)
	} else {
		log.Printf("source: provider disabled (%s)", p)
	}
}

func (h *Hub) LastKnown(p reporter.Provider) (reporter.PositionSample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.last[p]
	return s, ok
}

// Ingest decodes one payload and accepts it.
func (h *Hub) Ingest(payload []byte) error {
	s, err := DecodeFix(payload, h.now)
	if err != nil {
		return err
	}
	return h.Accept(s)
}

// Accept records a decoded fix and forwards it to the subscriber.
func (h *Hub) Accept(s reporter.PositionSample) error {
	h.mu.Lock()
	if !h.enabled[s.Provider] {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrProviderDisabled, s.Provider)
	}
	h.last[s.Provider] = s
	sink := h.sink
	h.mu.Unlock()

	if h.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := h.store.SaveLastKnown(ctx, s); err != nil {
			log.Printf("source: persist last known failed (provider=%s): %v", s.Provider, err)
		}
		cancel()
	}

	if sink != nil {
		sink(s)
	}
	return nil
}

// handler adapts Ingest for a transport callback, logging rejected payloads.
func (h *Hub) handler(backend string) func([]byte) {
	return func(payload []byte) {
		if err := h.Ingest(payload); err != nil {
			log.Printf("source: %s payload rejected: %v", backend, err)
		}
	}
}

// ---- wire format ----

type fixMessage struct {
	Lat      *float64        `json:"lat"`
	Lon      *float64        `json:"lon"`
	Accuracy float64         `json:"accuracy"`
	Provider string          `json:"provider"`
	Time     json.RawMessage `json:"time"`
}

// DecodeFix parses {"lat","lon","accuracy","provider","time"}. time is either
// RFC3339 or milliseconds since epoch; when absent, now is used.
func DecodeFix(payload []byte, now func() time.Time) (reporter.PositionSample, error) {
	var m fixMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return reporter.PositionSample{}, fmt.Errorf("%w: %v", ErrMalformedFix, err)
	}
	if m.Lat == nil || m.Lon == nil {
		return reporter.PositionSample{}, fmt.Errorf("%w: lat and lon required", ErrMalformedFix)
	}
	if *m.Lat < -90 || *m.Lat > 90 || *m.Lon < -180 || *m.Lon > 180 {
		return reporter.PositionSample{}, fmt.Errorf("%w: coordinates out of range (%f, %f)", ErrMalformedFix, *m.Lat, *m.Lon)
	}
	if m.Accuracy < 0 {
		return reporter.PositionSample{}, fmt.Errorf("%w: negative accuracy", ErrMalformedFix)
	}

	provider := reporter.ProviderGPS
	if m.Provider != "" {
		p, ok := reporter.ParseProvider(m.Provider)
		if !ok {
			return reporter.PositionSample{}, fmt.Errorf("%w: unknown provider %q", ErrMalformedFix, m.Provider)
		}
		provider = p
	}

	captured, err := decodeTime(m.Time, now)
	if err != nil {
		return reporter.PositionSample{}, err
	}

	return reporter.PositionSample{
		Latitude:       *m.Lat,
		Longitude:      *m.Lon,
		AccuracyMeters: m.Accuracy,
		Provider:       provider,
		CapturedAt:     captured,
	}, nil
}

func decodeTime(raw json.RawMessage, now func() time.Time) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return now().UnixMilli(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return 0, fmt.Errorf("%w: bad time %q", ErrMalformedFix, s)
		}
		return t.UnixMilli(), nil
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return 0, fmt.Errorf("%w: bad time %s", ErrMalformedFix, raw)
	}
	return ms, nil
}
