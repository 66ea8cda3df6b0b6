package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"risk_dice.db"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Roll animation pacing.
	TickRate     int           `env:"TICK_RATE" envDefault:"60"`
	SpinDuration time.Duration `env:"SPIN_DURATION" envDefault:"1200ms"`

	// Probability that a roll comes up skull. 1/20 matches one bad face on
	// the d20.
	SkullChance float64 `env:"SKULL_CHANCE" envDefault:"0.05"`

	RollsPerMinute int `env:"ROLLS_PER_MINUTE" envDefault:"30"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.Env == "production" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.TickRate < 1 || c.TickRate > 240 {
		return fmt.Errorf("TICK_RATE must be between 1 and 240, got %d", c.TickRate)
	}
	if c.SpinDuration <= 0 {
		return fmt.Errorf("SPIN_DURATION must be positive, got %s", c.SpinDuration)
	}
	if c.SkullChance < 0 || c.SkullChance >= 1 {
		return fmt.Errorf("SKULL_CHANCE must be in [0, 1), got %g", c.SkullChance)
	}
	if c.RollsPerMinute < 1 {
		return fmt.Errorf("ROLLS_PER_MINUTE must be positive, got %d", c.RollsPerMinute)
	}
	return nil
}

// TickInterval is the time between animation frames.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}
