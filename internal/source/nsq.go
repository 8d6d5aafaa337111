// internal/source/nsq.go
package source

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/domipancho/courier-tracker/internal/config"

	"github.com/nsqio/go-nsq"
)

// NSQBackend consumes fixes from an nsqd or via nsqlookupd.
type NSQBackend struct {
	cfg config.NSQConfig
	hub *Hub

	mu       sync.Mutex
	consumer *nsq.Consumer
}

func NewNSQBackend(cfg config.NSQConfig, hub *Hub) *NSQBackend {
	return &NSQBackend{cfg: cfg, hub: hub}
}

func (b *NSQBackend) Name() string { return "nsq" }

func (b *NSQBackend) Start(ctx context.Context) error {
	c, err := nsq.NewConsumer(b.cfg.Topic, b.cfg.Channel, nsq.NewConfig())
	if err != nil {
		return fmt.Errorf("nsq consumer: %w", err)
	}
	c.SetLogger(log.Default(), nsq.LogLevelWarning)

	handle := b.hub.handler(b.Name())
	c.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		// malformed fixes are dropped, never requeued
		handle(m.Body)
		return nil
	}))

	if b.cfg.Lookupd != "" {
		err = c.ConnectToNSQLookupd(b.cfg.Lookupd)
	} else {
		err = c.ConnectToNSQD(b.cfg.NSQD)
	}
	if err != nil {
		c.Stop()
		return fmt.Errorf("nsq connect: %w", err)
	}

	b.mu.Lock()
	b.consumer = c
	b.mu.Unlock()

	log.Printf("source: nsq consumer started (topic=%s channel=%s)", b.cfg.Topic, b.cfg.Channel)
	return nil
}

func (b *NSQBackend) Close() error {
	b.mu.Lock()
	c := b.consumer
	b.consumer = nil
	b.mu.Unlock()

	if c == nil {
		return nil
	}
	c.Stop()
	<-c.StopChan
	return nil
}
