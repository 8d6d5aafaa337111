// internal/source/hub_test.go
package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/domipancho/courier-tracker/internal/config"
	"github.com/domipancho/courier-tracker/internal/reporter"
)

// ---- fakes ----

type memStore struct {
	mu    sync.Mutex
	saved map[reporter.Provider]reporter.PositionSample
	err   error
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[reporter.Provider]reporter.PositionSample)}
}

func (m *memStore) SaveLastKnown(_ context.Context, s reporter.PositionSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved[s.Provider] = s
	return nil
}

func (m *memStore) LastKnown(_ context.Context, p reporter.Provider) (reporter.PositionSample, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saved[p]
	return s, ok, nil
}

func fixedNow() time.Time { return time.UnixMilli(1_700_000_000_000) }

// ---- decode ----

func TestDecodeFix(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    reporter.PositionSample
	}{
		{
			name:    "millis",
			payload: `{"lat":6.2442,"lon":-75.5812,"accuracy":12,"provider":"gps","time":1700000001000}`,
			want:    reporter.PositionSample{Latitude: 6.2442, Longitude: -75.5812, AccuracyMeters: 12, Provider: reporter.ProviderGPS, CapturedAt: 1700000001000},
		},
		{
			name:    "rfc3339",
			payload: `{"lat":1,"lon":2,"provider":"network","time":"2023-11-14T22:13:20Z"}`,
			want:    reporter.PositionSample{Latitude: 1, Longitude: 2, Provider: reporter.ProviderNetwork, CapturedAt: 1700000000000},
		},
		{
			name:    "millis as string",
			payload: `{"lat":1,"lon":2,"time":"1700000002000"}`,
			want:    reporter.PositionSample{Latitude: 1, Longitude: 2, Provider: reporter.ProviderGPS, CapturedAt: 1700000002000},
		},
		{
			name:    "no time uses now",
			payload: `{"lat":0,"lon":0,"provider":"wifi"}`,
			want:    reporter.PositionSample{Provider: reporter.ProviderNetwork, CapturedAt: 1700000000000},
		},
	}

	for _, tc := range cases {
		got, err := DecodeFix([]byte(tc.payload), fixedNow)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestDecodeFix_Rejects(t *testing.T) {
	bad := map[string]string{
		"not json":       `lat=1`,
		"missing lon":    `{"lat":1}`,
		"lat range":      `{"lat":91,"lon":0}`,
		"lon range":      `{"lat":0,"lon":-181}`,
		"neg accuracy":   `{"lat":0,"lon":0,"accuracy":-1}`,
		"bad provider":   `{"lat":0,"lon":0,"provider":"galileo"}`,
		"bad time":       `{"lat":0,"lon":0,"time":"yesterday"}`,
		"bad time value": `{"lat":0,"lon":0,"time":true}`,
	}

	for name, payload := range bad {
		_, err := DecodeFix([]byte(payload), fixedNow)
		if !errors.Is(err, ErrMalformedFix) {
			t.Errorf("%s: expected ErrMalformedFix, got %v", name, err)
		}
	}
}

// ---- hub ----

func TestHub_AcceptForwardsAndPersists(t *testing.T) {
	store := newMemStore()
	h := NewHub([]reporter.Provider{reporter.ProviderGPS}, store)

	var got []reporter.PositionSample
	h.Subscribe(func(s reporter.PositionSample) { got = append(got, s) })

	if err := h.Ingest([]byte(`{"lat":6.2,"lon":-75.5,"provider":"gps","time":5}`)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if len(got) != 1 || got[0].Latitude != 6.2 {
		t.Fatalf("subscriber got %+v", got)
	}
	if s, ok := h.LastKnown(reporter.ProviderGPS); !ok || s.CapturedAt != 5 {
		t.Fatalf("last known = %+v %v", s, ok)
	}
	if s, ok := store.saved[reporter.ProviderGPS]; !ok || s.Longitude != -75.5 {
		t.Fatalf("not persisted: %+v", store.saved)
	}
}

func TestHub_DisabledProviderRejected(t *testing.T) {
	h := NewHub([]reporter.Provider{reporter.ProviderGPS}, nil)

	called := false
	h.Subscribe(func(reporter.PositionSample) { called = true })

	err := h.Ingest([]byte(`{"lat":1,"lon":1,"provider":"network"}`))
	if !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected ErrProviderDisabled, got %v", err)
	}
	if called {
		t.Fatalf("subscriber must not see disabled provider fixes")
	}
	if _, ok := h.LastKnown(reporter.ProviderNetwork); ok {
		t.Fatalf("disabled provider must not be remembered")
	}
}

func TestHub_ToggleProvider(t *testing.T) {
	h := NewHub(nil, nil)
	if h.ProviderEnabled(reporter.ProviderNetwork) {
		t.Fatalf("network should start disabled")
	}

	h.SetProviderEnabled(reporter.ProviderNetwork, true)
	if err := h.Accept(reporter.PositionSample{Provider: reporter.ProviderNetwork}); err != nil {
		t.Fatalf("accept after enable: %v", err)
	}

	h.SetProviderEnabled(reporter.ProviderNetwork, false)
	if err := h.Accept(reporter.PositionSample{Provider: reporter.ProviderNetwork}); err == nil {
		t.Fatalf("expected rejection after disable")
	}
}

func TestHub_PersistFailureStillForwards(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk full")
	h := NewHub([]reporter.Provider{reporter.ProviderGPS}, store)

	forwarded := false
	h.Subscribe(func(reporter.PositionSample) { forwarded = true })

	if err := h.Accept(reporter.PositionSample{Provider: reporter.ProviderGPS}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !forwarded {
		t.Fatalf("fix should be forwarded even when persistence fails")
	}
}

func TestHub_SeedFromStore(t *testing.T) {
	store := newMemStore()
	store.saved[reporter.ProviderGPS] = reporter.PositionSample{Latitude: 4.6, Provider: reporter.ProviderGPS}
	store.saved[reporter.ProviderNetwork] = reporter.PositionSample{Latitude: 4.7, Provider: reporter.ProviderNetwork}

	h := NewHub([]reporter.Provider{reporter.ProviderGPS}, store)
	if err := h.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if s, ok := h.LastKnown(reporter.ProviderGPS); !ok || s.Latitude != 4.6 {
		t.Fatalf("gps seed = %+v %v", s, ok)
	}
	if _, ok := h.LastKnown(reporter.ProviderNetwork); ok {
		t.Fatalf("disabled provider must not be seeded")
	}
}

// ---- builder ----

func TestNewBackend(t *testing.T) {
	h := NewHub(nil, nil)
	cfg := config.Defaults().Source

	for _, name := range []string{"mqtt", "kafka", "nsq"} {
		cfg.Backend = name
		b, err := NewBackend(cfg, h)
		if err != nil || b == nil || b.Name() != name {
			t.Fatalf("%s: got %v, %v", name, b, err)
		}
	}

	cfg.Backend = "none"
	if b, err := NewBackend(cfg, h); err != nil || b != nil {
		t.Fatalf("none: got %v, %v", b, err)
	}

	cfg.Backend = "serial"
	if _, err := NewBackend(cfg, h); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestProviders(t *testing.T) {
	got := Providers([]string{"gps", "network", "galileo"})
	if len(got) != 2 || got[0] != reporter.ProviderGPS || got[1] != reporter.ProviderNetwork {
		t.Fatalf("providers = %v", got)
	}
}
