// Package config loads server configuration from the environment.
//
// Values come from process env (optionally seeded from a .env file by main)
// and are validated before use.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/robalobadob/gerdgame/internal/game"
)

// Config holds all server settings.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175" validate:"required,numeric"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error fatal panic disabled"`

	DBPath          string `env:"DB_PATH" envDefault:"./data/gerd.db" validate:"required"`
	ProgressBackend string `env:"PROGRESS_BACKEND" envDefault:"sqlite" validate:"oneof=sqlite file"`
	ProgressFile    string `env:"PROGRESS_FILE" envDefault:"./data/progress.json" validate:"required_if=ProgressBackend file"`
	CatalogFile     string `env:"CATALOG_FILE"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me" validate:"required"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14" validate:"gt=0"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"gerd_token" validate:"required"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173" validate:"required"`
	Production     bool   `env:"PRODUCTION"`

	RandomSeed int64  `env:"RANDOM_SEED"` // 0 draws a fresh seed per session
	DailySalt  string `env:"DAILY_SALT" envDefault:"local_dev_salt" validate:"required"`

	WinThreshold        int `env:"WIN_THRESHOLD" envDefault:"50"`
	GroceryWinThreshold int `env:"GROCERY_WIN_THRESHOLD" envDefault:"100"`
	LoseThreshold       int `env:"LOSE_THRESHOLD" envDefault:"-20" validate:"ltfield=WinThreshold,ltfield=GroceryWinThreshold"`
	GroceryBatchSize    int `env:"GROCERY_BATCH_SIZE" envDefault:"50" validate:"gt=0"`
	GroceryPickLimit    int `env:"GROCERY_PICK_LIMIT" envDefault:"20" validate:"gt=0"`
}

var validate = validator.New()

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints and the derived game rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Game().Validate()
}

// Game returns the game rules.
func (c *Config) Game() game.Config {
	return game.Config{
		WinThresholds: map[game.Mode]int{
			game.ModeSequential: c.WinThreshold,
			game.ModeGrocery:    c.GroceryWinThreshold,
		},
		LoseThreshold:    c.LoseThreshold,
		GroceryBatchSize: c.GroceryBatchSize,
		GroceryPickLimit: c.GroceryPickLimit,
	}
}
