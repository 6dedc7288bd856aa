package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven client configuration.
type Config struct {
	ServerURL string `env:"SERVER_URL" envDefault:"http://localhost:5000"`
	WSURL     string `env:"WS_URL" envDefault:"ws://localhost:5000"`
	OpsAddr   string `env:"OPS_ADDR" envDefault:":8083"`
	DBPath    string `env:"DB_PATH" envDefault:"messenger-client.db"`

	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"3s"`
	PendingWindow  time.Duration `env:"PENDING_WINDOW" envDefault:"15s"`

	Username string `env:"MESSENGER_USERNAME"`
	Password string `env:"MESSENGER_PASSWORD"`

	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"client_events"`
	SyncRoutingKey string `env:"SYNC_ROUTING_KEY" envDefault:"client_events.sync"`
	Environment    string `env:"ENVIRONMENT" envDefault:"dev"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT"`
	DebugRoutes    bool   `env:"DEBUG_ROUTES" envDefault:"false"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
