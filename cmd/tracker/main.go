// cmd/tracker/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/domipancho/courier-tracker/internal/config"
	"github.com/domipancho/courier-tracker/internal/mirror"
	"github.com/domipancho/courier-tracker/internal/reporter"
	"github.com/domipancho/courier-tracker/internal/service"
	"github.com/domipancho/courier-tracker/internal/source"
	"github.com/domipancho/courier-tracker/internal/state"
	"github.com/domipancho/courier-tracker/internal/status"
	"github.com/domipancho/courier-tracker/internal/www"
)

func main() {
	configPath := flag.String("config", "tracker.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *port > 0 {
		cfg.Web.Port = *port
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --------------------
	// Persisted tracking state
	// --------------------

	store, err := openStore(ctx, cfg.State)
	if err != nil {
		log.Fatalf("state open failed (backend=%s): %v", cfg.State.Backend, err)
	}
	defer store.Close()

	// --------------------
	// Location source
	// --------------------

	hub := source.NewHub(source.Providers(cfg.Source.Providers), store)
	if err := hub.Seed(ctx); err != nil {
		log.Printf("source: seed from store failed: %v", err)
	}

	backend, err := source.NewBackend(cfg.Source, hub)
	if err != nil {
		log.Fatalf("source build failed: %v", err)
	}
	if backend != nil {
		if err := backend.Start(ctx); err != nil {
			log.Printf("source: %s start failed: %v (fixes still accepted over http)", backend.Name(), err)
		}
		defer backend.Close()
	}

	// --------------------
	// Tracking service
	// --------------------

	var notifier service.Notifier
	if *debug {
		notifier = logNotifier{}
	}

	svc, err := service.Build(cfg, hub, store, notifier)
	if err != nil {
		log.Fatalf("service build failed: %v", err)
	}
	if err := svc.Restore(ctx); err != nil {
		log.Printf("service: restore failed: %v (watchdog will retry)", err)
	}
	go svc.Run(ctx)

	// --------------------
	// Status mirror (optional)
	// --------------------

	if cfg.StatusMirror != nil {
		closeMirror, err := startMirror(ctx, cfg, svc)
		if err != nil {
			log.Printf("status mirror disabled: %v", err)
		} else {
			defer closeMirror()
		}
	}

	// --------------------
	// Local control API
	// --------------------

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	server := &http.Server{Addr: addr, Handler: www.NewRouter(svc, hub)}

	go func() {
		log.Printf("courier tracker listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}

	cancel()
	svc.Shutdown()
}

func openStore(ctx context.Context, cfg config.StateConfig) (state.Store, error) {
	switch cfg.Backend {
	case "redis":
		return state.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	case "dynamodb":
		d := cfg.DynamoDB
		return state.OpenDynamo(ctx, d.Region, d.Endpoint, d.Table, d.Prefix)
	default:
		return state.OpenSQLite(cfg.SQLitePath)
	}
}

// startMirror runs the 1Hz status mirror until ctx is done.
func startMirror(ctx context.Context, cfg *config.Config, svc *service.Service) (func(), error) {
	mc := cfg.StatusMirror

	cli, err := mirror.NewEndpointClient(mirror.ClientConfig{
		Endpoint: mc.Endpoint,
		Timeout:  time.Duration(mc.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", mc.Endpoint, err)
	}

	w, err := mirror.NewWriter(mirror.Plan{
		UnitID:     mc.UnitID,
		Slot:       mc.Slot,
		DeviceName: mc.DeviceName,
	}, cli)
	if err != nil {
		cli.Close()
		return nil, err
	}

	staleAfter := 3 * time.Duration(cfg.Tracker.LocationIntervalMs) * time.Millisecond

	go func() {
		secTicker := time.NewTicker(time.Second)
		defer secTicker.Stop()

		write := func() {
			st := svc.LoopStats()
			snap := status.Derive(status.Inputs{
				Running:        st.State == reporter.Running,
				ActiveOrder:    st.ActiveOrder,
				LastReportedAt: st.LastReportedAt,
				LastReportErr:  st.LastReportErr,
				Now:            time.Now(),
				StaleAfter:     staleAfter,
			})
			if err := w.WriteStatus(snap); err != nil {
				log.Printf("status write failed (endpoint=%s): %v", mc.Endpoint, err)
			}
		}

		// Full block write on start (identity re-assert).
		write()

		for {
			select {
			case <-ctx.Done():
				return
			case <-secTicker.C:
				write()
			}
		}
	}()

	log.Printf("status mirror started (endpoint=%s unit=%d slot=%d)", mc.Endpoint, mc.UnitID, mc.Slot)
	return func() { cli.Close() }, nil
}

type logNotifier struct{}

func (logNotifier) Notify(n service.Notification) {
	log.Printf("notification: %s | %s", n.Title, n.Body)
}
