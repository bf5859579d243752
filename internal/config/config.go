package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Server holds the settings of cmd/server.
type Server struct {
	Port            string        `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	TickRate        time.Duration `env:"TICK_RATE,default=100ms"`
	GameIdleTimeout time.Duration `env:"GAME_IDLE_TIMEOUT,default=30m"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS,default=*"`
	RequireTokens   bool          `env:"REQUIRE_GAME_TOKENS,default=true"`
	TokenTTL        time.Duration `env:"GAME_TOKEN_TTL,default=24h"`
	DisableRedis    bool          `env:"DISABLE_REDIS,default=false"`
	DisableDatabase bool          `env:"DISABLE_DATABASE,default=false"`
}

// Historian holds the settings of cmd/historian.
type Historian struct {
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	BatchSize         int           `env:"HISTORIAN_BATCH_SIZE,default=20"`
	FlushInterval     time.Duration `env:"HISTORIAN_FLUSH_INTERVAL,default=500ms"`
	PopTimeout        time.Duration `env:"HISTORIAN_POP_TIMEOUT,default=3s"`
	InactivityTimeout time.Duration `env:"GAME_INACTIVITY_TIMEOUT,default=10m"`
	InactivityCheck   time.Duration `env:"GAME_INACTIVITY_CHECK,default=1m"`
}

// LoadServer decodes Server from the environment.
func LoadServer() (Server, error) {
	var cfg Server
	if err := decode(&cfg); err != nil {
		return cfg, err
	}
	if cfg.TickRate <= 0 {
		return cfg, fmt.Errorf("TICK_RATE must be positive, got %s", cfg.TickRate)
	}
	return cfg, nil
}

// LoadHistorian decodes Historian from the environment.
func LoadHistorian() (Historian, error) {
	var cfg Historian
	if err := decode(&cfg); err != nil {
		return cfg, err
	}
	if cfg.BatchSize <= 0 {
		return cfg, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}
	if cfg.FlushInterval <= 0 || cfg.PopTimeout <= 0 || cfg.InactivityCheck <= 0 {
		return cfg, errors.New("historian intervals must be positive")
	}
	return cfg, nil
}

func decode(target interface{}) error {
	err := envdecode.Decode(target)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}
	return nil
}
