package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting for the bot.
type Config struct {
	BotToken    string `env:"BOT_TOKEN,required"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// StaffAdmins are bot-staff user ids; the first entry is the primary
	// admin allowed to use /annuncio.
	StaffAdmins     []int64 `env:"STAFF_ADMINS" envSeparator:","`
	AnnounceChannel string  `env:"ANNOUNCE_CHANNEL" envDefault:"@QuackTVUpdates"`

	PointsPerWin        int `env:"POINTS_PER_WIN" envDefault:"5"`
	QuackPointsPerPoint int `env:"QUACKPOINTS_PER_POINT" envDefault:"20"`
	BlockTimerSeconds   int `env:"BLOCK_TIMER_SECONDS" envDefault:"30"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads .env if present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// IsStaff reports whether userID belongs to the bot staff.
func (c *Config) IsStaff(userID int64) bool {
	for _, id := range c.StaffAdmins {
		if id == userID {
			return true
		}
	}
	return false
}

// PrimaryAdmin returns the first staff id, or 0 if none is configured.
func (c *Config) PrimaryAdmin() int64 {
	if len(c.StaffAdmins) == 0 {
		return 0
	}
	return c.StaffAdmins[0]
}
