// Package config binds the busrpc process host's settings from the
// environment using struct tags, the same caarlos0/env idiom the rest of
// the retrieval corpus uses for its own config structs.
package config

import (
	"github.com/caarlos0/env/v11"

	"github.com/mrjvadi/busrpc/internal/amqpx"
)

// Environment selects a deployment tier. Only EnvProduction suppresses
// exception detail in the gateway-facing error shape.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// IsProduction reports whether e is the production tier.
func (e Environment) IsProduction() bool { return e == EnvProduction }

// AppSettings is the full set of settings a busrpc process host binds at
// startup: the broker connection plus the operational knobs every consumer
// or producer subcommand shares.
type AppSettings struct {
	Broker amqpx.Settings

	Environment    Environment `env:"APP_ENV" envDefault:"development"`
	QueueName      string      `env:"QUEUE_NAME" envDefault:"busrpc"`
	MaxConcurrency int         `env:"MAX_CONCURRENCY" envDefault:"16"`
	MetricsAddr    string      `env:"METRICS_ADDR" envDefault:":9090"`
	DatabaseURL    string      `env:"DATABASE_URL"`
}

// Load binds AppSettings from the process environment. Callers that want a
// .env file loaded first should call godotenv.Load before Load.
func Load() (AppSettings, error) {
	var s AppSettings
	if err := env.Parse(&s); err != nil {
		return AppSettings{}, err
	}
	return s, nil
}
