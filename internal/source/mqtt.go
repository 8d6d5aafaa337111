// internal/source/mqtt.go
package source

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/domipancho/courier-tracker/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultMQTTConnectWait bounds how long Start waits for the first connect.
const DefaultMQTTConnectWait = 5 * time.Second

// MQTTBackend subscribes to one topic and feeds every message to the hub.
// An unreachable broker does not block Start; paho keeps retrying and the
// subscription is made on the first successful connect.
type MQTTBackend struct {
	cfg         config.MQTTConfig
	hub         *Hub
	connectWait time.Duration

	mu   sync.Mutex
	conn mqtt.Client
}

func NewMQTTBackend(cfg config.MQTTConfig, hub *Hub) *MQTTBackend {
	return &MQTTBackend{cfg: cfg, hub: hub, connectWait: DefaultMQTTConnectWait}
}

func (b *MQTTBackend) Name() string { return "mqtt" }

func (b *MQTTBackend) Start(ctx context.Context) error {
	broker := fmt.Sprintf("tcp://%s:%d", b.cfg.Broker, b.cfg.Port)
	handle := b.hub.handler(b.Name())

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(b.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			// resubscribe after every reconnect
			token := c.Subscribe(b.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
				handle(msg.Payload())
			})
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("source: mqtt subscribe failed (topic=%s): %v", b.cfg.Topic, err)
				return
			}
			log.Printf("source: mqtt subscribed (broker=%s topic=%s)", broker, b.cfg.Topic)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("source: mqtt connection lost (broker=%s): %v", broker, err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()

	wait := time.NewTimer(b.connectWait)
	defer wait.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-wait.C:
		log.Printf("source: mqtt broker not reachable yet (broker=%s), retrying in background", broker)
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	}

	b.mu.Lock()
	b.conn = client
	b.mu.Unlock()
	return nil
}

func (b *MQTTBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Disconnect(1000)
		b.conn = nil
	}
	return nil
}
