// Package config loads application configuration from environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable of the server. Defaults match production.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`

	// DBPath is the sqlite ledger location.
	DBPath string `env:"DB_PATH" envDefault:"./data/lottery.db"`

	// BotToken authenticates against the Telegram Bot API and signs
	// WebApp init data.
	BotToken string `env:"BOT_TOKEN"`

	// BotAPIURL is the Bot API base URL, overridable for tests.
	BotAPIURL string `env:"BOT_API_URL" envDefault:"https://api.telegram.org"`

	// WebhookURL is the public base URL registered with Telegram.
	// Webhook registration is skipped when empty.
	WebhookURL string `env:"WEBHOOK_URL"`

	// EntryFees is the enumerated set of allowed stakes, in Stars.
	EntryFees []int64 `env:"ENTRY_FEES" envDefault:"50,100,250,500"`

	// RoomCapacity is how many participants fill a room.
	RoomCapacity int `env:"ROOM_CAPACITY" envDefault:"6"`

	// WinnerShare is the fraction of the pool paid to the winner; the
	// house keeps the remainder.
	WinnerShare float64 `env:"WINNER_SHARE" envDefault:"0.8"`

	// SweepInterval is how often the scheduler looks for rooms to draw.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5s"`

	// StaleRoomAge is how long a waiting room may sit unfilled before
	// the reaper removes it.
	StaleRoomAge time.Duration `env:"STALE_ROOM_AGE" envDefault:"24h"`

	// JWTSecret signs admin API tokens. Admin routes are disabled when
	// empty.
	JWTSecret string `env:"JWT_SECRET"`

	// AdminTokenTTL is how long admin tokens stay valid.
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"24h"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the parser cannot.
func (c *Config) Validate() error {
	if c.RoomCapacity < 2 {
		return fmt.Errorf("room capacity must be at least 2, got %d", c.RoomCapacity)
	}
	if c.WinnerShare <= 0 || c.WinnerShare >= 1 {
		return fmt.Errorf("winner share must be in (0, 1), got %v", c.WinnerShare)
	}
	if len(c.EntryFees) == 0 {
		return fmt.Errorf("at least one entry fee is required")
	}
	for _, fee := range c.EntryFees {
		if fee <= 0 {
			return fmt.Errorf("entry fees must be positive, got %d", fee)
		}
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", c.SweepInterval)
	}
	return nil
}

// AllowsEntryFee reports whether fee is in the configured set.
func (c *Config) AllowsEntryFee(fee int64) bool {
	for _, f := range c.EntryFees {
		if f == fee {
			return true
		}
	}
	return false
}
