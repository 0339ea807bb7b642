// Package config loads runtime settings for the Possam client.
//
// Sources are applied in order, later sources overriding earlier ones:
// built-in defaults, a JSON file (-c/-config), environment variables,
// and finally command-line flags.
package config

import "time"

// Config holds runtime settings for the Possam client.
type Config struct {
	// BackendURL is the base URL of the identity backend
	// (a GoTrue-compatible auth API).
	BackendURL string `env:"POSSAM_BACKEND_URL"`

	// AnonKey is the public API key sent with every backend request.
	AnonKey string `env:"POSSAM_ANON_KEY"`

	// DataFile is the path of the local sqlite database holding tokens
	// and the tools-connection flags.
	DataFile string `env:"POSSAM_DATA_FILE"`

	// AssistantID identifies the voice assistant to start calls with.
	AssistantID string `env:"POSSAM_ASSISTANT_ID"`

	// LaunchDelay is how long the splash state lasts before the initial
	// session check runs.
	LaunchDelay time.Duration `env:"POSSAM_LAUNCH_DELAY"`

	// ResendCooldown is the minimum interval between verification-email
	// resend requests.
	ResendCooldown time.Duration `env:"POSSAM_RESEND_COOLDOWN"`

	// RequestTimeout bounds every identity backend call.
	RequestTimeout time.Duration `env:"POSSAM_REQUEST_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:9999"
	c.AnonKey = ""
	c.DataFile = "possam.db"
	c.AssistantID = ""
	c.LaunchDelay = 2 * time.Second
	c.ResendCooldown = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), the environment, and command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	parseFlags(cfg)
	return cfg, nil
}
