// internal/source/kafka.go
package source

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/domipancho/courier-tracker/internal/config"

	kafkago "github.com/segmentio/kafka-go"
)

// kafkaRetryDelay is the pause after a failed read before the next one.
const kafkaRetryDelay = 2 * time.Second

// messageReader is the part of *kafkago.Reader the consume loop uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// KafkaBackend reads fixes from a topic with a consumer group.
type KafkaBackend struct {
	cfg config.KafkaConfig
	hub *Hub

	mu     sync.Mutex
	reader *kafkago.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKafkaBackend(cfg config.KafkaConfig, hub *Hub) *KafkaBackend {
	return &KafkaBackend{cfg: cfg, hub: hub}
}

func (b *KafkaBackend) Name() string { return "kafka" }

func (b *KafkaBackend) Start(ctx context.Context) error {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: b.cfg.Brokers,
		Topic:   b.cfg.Topic,
		GroupID: b.cfg.GroupID,
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	b.mu.Lock()
	b.reader = r
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	handle := b.hub.handler(b.Name())
	go func() {
		defer close(done)
		consume(runCtx, r, b.cfg.Topic, kafkaRetryDelay, handle)
	}()

	log.Printf("source: kafka reader started (brokers=%v topic=%s group=%s)", b.cfg.Brokers, b.cfg.Topic, b.cfg.GroupID)
	return nil
}

func (b *KafkaBackend) Close() error {
	b.mu.Lock()
	r, cancel, done := b.reader, b.cancel, b.done
	b.reader, b.cancel, b.done = nil, nil, nil
	b.mu.Unlock()

	if r == nil {
		return nil
	}
	cancel()
	<-done
	return r.Close()
}

// consume reads until ctx is done. A failed read (broker down, commit error)
// is logged and retried after delay; the feed only ends with ctx.
func consume(ctx context.Context, r messageReader, topic string, delay time.Duration, handle func([]byte)) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("source: kafka read failed (topic=%s): %v", topic, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		handle(msg.Value)
	}
}
