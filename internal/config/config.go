// internal/config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the server's environment-driven settings. Database and Redis
// connection details are read directly by their packages; this covers the
// HTTP server and game tuning knobs.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	JWTPrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	// Game pacing, in seconds. Zero falls back to the engine defaults.
	TurnTimeoutSec   int  `env:"TURN_TIMEOUT_SEC" envDefault:"60"`
	DiscussionSec    int  `env:"DISCUSSION_SEC" envDefault:"30"`
	DefenseSec       int  `env:"DEFENSE_SEC" envDefault:"180"`
	CancelWindowSec  int  `env:"CANCEL_WINDOW_SEC" envDefault:"4"`
	RevealGraceSec   int  `env:"REVEAL_GRACE_SEC" envDefault:"300"`
	DisableHistorian bool `env:"DISABLE_HISTORIAN" envDefault:"false"`
	DisablePersist   bool `env:"DISABLE_PERSIST" envDefault:"false"`
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
