package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App
	HTTP     HTTP
	Postgres Postgres
	Redis    Redis
	Auth     Auth
	Catalog  Catalog
	Notify   Notify
	Presence Presence
	Bot      Bot
	Probe    Probe
	Metrics  Metrics
}

type App struct {
	Name     string     `env:"APP_NAME" envDefault:"trade_market"`
	Version  string     `env:"APP_VERSION" envDefault:"dev"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

type HTTP struct {
	ListenAddress   string        `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogFieldMaxLen  int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"2000"`
}

type Auth struct {
	Secret string `env:"JWT_SECRET,notEmpty" json:"-"`
	Issuer string `env:"JWT_ISSUER" envDefault:"trade_market"`
}

type Catalog struct {
	URL             string        `env:"CATALOG_URL,notEmpty"`
	ServiceTokenTTL time.Duration `env:"CATALOG_SERVICE_TOKEN_TTL" envDefault:"5m"`
	CacheTTL        time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"30s"`
	Timeout         time.Duration `env:"CATALOG_TIMEOUT" envDefault:"3s"`
}

type Notify struct {
	// Async включает доставку уведомлений через очередь asynq, нужен Redis.
	Async bool   `env:"NOTIFY_ASYNC" envDefault:"false"`
	Queue string `env:"NOTIFY_QUEUE" envDefault:"notifications"`
}

type Presence struct {
	TTL time.Duration `env:"PRESENCE_TTL" envDefault:"2m"`
}

type Probe struct {
	ListenAddress string `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
}

type Metrics struct {
	ListenAddress string `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if config.Notify.Async && !config.Redis.Enabled() {
		return Config{}, errors.New("NOTIFY_ASYNC requires REDIS_ADDRESS")
	}

	return config, nil
}
