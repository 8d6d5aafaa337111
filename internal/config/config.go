// internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tracker      TrackerConfig       `yaml:"tracker"`
	Source       SourceConfig        `yaml:"source"`
	State        StateConfig         `yaml:"state"`
	Web          WebConfig           `yaml:"web"`
	StatusMirror *StatusMirrorConfig `yaml:"status_mirror"` // optional, opt-in
}

// ---- TRACKER ----

type TrackerConfig struct {
	EndpointBase        string            `yaml:"endpoint_base"`
	LocationIntervalMs  int               `yaml:"location_interval_ms"`
	HeartbeatIntervalMs int               `yaml:"heartbeat_interval_ms"`
	ReportTimeoutMs     int               `yaml:"report_timeout_ms"`
	PollTimeoutMs       int               `yaml:"poll_timeout_ms"`
	RestartDelayMs      int               `yaml:"restart_delay_ms"`
	Headers             map[string]string `yaml:"headers"`
}

// ---- LOCATION SOURCE ----

type SourceConfig struct {
	Backend   string      `yaml:"backend"` // mqtt | kafka | nsq | none
	Providers []string    `yaml:"providers"`
	MQTT      MQTTConfig  `yaml:"mqtt"`
	Kafka     KafkaConfig `yaml:"kafka"`
	NSQ       NSQConfig   `yaml:"nsq"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type NSQConfig struct {
	NSQD    string `yaml:"nsqd"`
	Lookupd string `yaml:"lookupd"`
	Topic   string `yaml:"topic"`
	Channel string `yaml:"channel"`
}

// ---- PERSISTED STATE ----

type StateConfig struct {
	Backend    string       `yaml:"backend"` // sqlite | redis | dynamodb
	SQLitePath string       `yaml:"sqlite_path"`
	Redis      RedisConfig  `yaml:"redis"`
	DynamoDB   DynamoConfig `yaml:"dynamodb"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type DynamoConfig struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"` // optional, for a local DynamoDB
	Table    string `yaml:"table"`
	Prefix   string `yaml:"prefix"`
}

// ---- LOCAL CONTROL API ----

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ---- STATUS MIRROR ----

type StatusMirrorConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// Defaults returns a Config with the stock intervals and local backends.
func Defaults() *Config {
	return &Config{
		Tracker: TrackerConfig{
			EndpointBase:        "https://domipancho.com",
			LocationIntervalMs:  10000,
			HeartbeatIntervalMs: 30000,
			ReportTimeoutMs:     15000,
			PollTimeoutMs:       10000,
			RestartDelayMs:      1000,
		},
		Source: SourceConfig{
			Backend:   "mqtt",
			Providers: []string{"gps", "network"},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "courier-tracker",
				Topic:    "courier/location",
			},
			Kafka: KafkaConfig{
				Topic:   "courier.location",
				GroupID: "courier-tracker",
			},
			NSQ: NSQConfig{
				Topic:   "courier_location",
				Channel: "tracker",
			},
		},
		State: StateConfig{
			Backend:    "sqlite",
			SQLitePath: "tracker.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "courier-tracker",
			},
			DynamoDB: DynamoConfig{
				Table:  "courier-tracker-state",
				Prefix: "courier-tracker",
			},
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
	}
}

// Load reads a YAML config file over Defaults. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
