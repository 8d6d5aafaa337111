// internal/reporter/runner.go
package reporter

import (
	"context"
	"log"
	"time"
)

// run owns both tickers for one session. Network I/O never happens here.
func (l *Loop) run(ctx context.Context, session uint64, cfg Config, done chan struct{}) {
	defer close(done)

	locTicker := time.NewTicker(cfg.LocationInterval)
	defer locTicker.Stop()
	hbTicker := time.NewTicker(cfg.HeartbeatInterval)
	defer hbTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-locTicker.C:
			l.locationTick(session)
		case <-hbTicker.C:
			l.heartbeatTick(session)
		}
	}
}

// locationTick dispatches a position report when one is due.
func (l *Loop) locationTick(session uint64) {
	l.mu.Lock()
	if l.session != session || l.state != Running || l.latest == nil {
		l.mu.Unlock()
		return
	}
	now := l.now()
	if !l.lastReportedAt.IsZero() && now.Sub(l.lastReportedAt) < l.cfg.LocationInterval {
		l.mu.Unlock()
		return
	}
	sample := *l.latest
	api := l.api
	l.mu.Unlock()

	if !l.reportBusy.CompareAndSwap(false, true) {
		l.skipped("position report")
		return
	}

	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		defer l.reportBusy.Store(false)
		err := api.ReportPosition(context.Background(), sample)
		l.finishReport(session, now, sample, err)
	}()
}

func (l *Loop) finishReport(session uint64, at time.Time, s PositionSample, err error) {
	l.mu.Lock()
	if l.session != session {
		l.mu.Unlock()
		return
	}
	if err != nil {
		l.lastReportErr = err
		l.counters.reportsFailed++
		l.mu.Unlock()
		log.Printf("reporter: position report failed: %v", err)
		return
	}
	l.lastReportedAt = at
	l.lastReportErr = nil
	l.counters.reportsOK++
	l.mu.Unlock()

	log.Printf("reporter: position sent (lat=%.6f lon=%.6f acc=%.0fm provider=%s)",
		s.Latitude, s.Longitude, s.AccuracyMeters, s.Provider)
}

// heartbeatTick dispatches the heartbeat and the order poll independently.
func (l *Loop) heartbeatTick(session uint64) {
	l.mu.Lock()
	if l.session != session || l.state != Running {
		l.mu.Unlock()
		return
	}
	api := l.api
	l.mu.Unlock()

	if l.heartbeatBusy.CompareAndSwap(false, true) {
		l.workers.Add(1)
		go func() {
			defer l.workers.Done()
			defer l.heartbeatBusy.Store(false)
			if err := api.SendHeartbeat(context.Background()); err != nil {
				log.Printf("reporter: heartbeat failed: %v", err)
				return
			}
			log.Printf("reporter: heartbeat sent")
		}()
	} else {
		l.skipped("heartbeat")
	}

	if l.pollBusy.CompareAndSwap(false, true) {
		l.workers.Add(1)
		go func() {
			defer l.workers.Done()
			defer l.pollBusy.Store(false)
			orders, err := api.ListOrders(context.Background())
			l.finishPoll(session, orders, err)
		}()
	} else {
		l.skipped("order poll")
	}
}

func (l *Loop) finishPoll(session uint64, orders []Order, err error) {
	l.mu.Lock()
	if l.session != session {
		l.mu.Unlock()
		return
	}
	if err != nil {
		l.counters.pollsFailed++
		l.mu.Unlock()
		log.Printf("reporter: order poll failed: %v", err)
		return
	}
	l.counters.pollsOK++

	active := HasActiveOrder(orders)
	changed := active != l.activeOrder
	if changed {
		l.activeOrder = active
	}
	cb := l.cb
	l.mu.Unlock()

	if changed {
		log.Printf("reporter: active order changed (active=%t orders=%d)", active, len(orders))
		cb.OnActiveOrderChanged(active)
	}
}

func (l *Loop) skipped(kind string) {
	l.mu.Lock()
	l.counters.skippedBusy++
	l.mu.Unlock()
	log.Printf("reporter: %s still in flight, skipping tick", kind)
}
