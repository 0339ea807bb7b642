package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/possamhq/possam/internal/flagx"
	"github.com/possamhq/possam/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are timex.Duration so the file can say "2s" instead of nanoseconds.
// Pointer fields distinguish "absent" from "zero" so partial files only
// override what they mention.
type jsonConfig struct {
	BackendURL     *string         `json:"backend_url"`
	AnonKey        *string         `json:"anon_key"`
	DataFile       *string         `json:"data_file"`
	AssistantID    *string         `json:"assistant_id"`
	LaunchDelay    *timex.Duration `json:"launch_delay"`
	ResendCooldown *timex.Duration `json:"resend_cooldown"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

// parseJSON overlays cfg with values from the JSON file named by the
// -c/-config flag. No flag, no file, no overlay.
func parseJSON(cfg *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.BackendURL != nil {
		cfg.BackendURL = *jc.BackendURL
	}
	if jc.AnonKey != nil {
		cfg.AnonKey = *jc.AnonKey
	}
	if jc.DataFile != nil {
		cfg.DataFile = *jc.DataFile
	}
	if jc.AssistantID != nil {
		cfg.AssistantID = *jc.AssistantID
	}
	if jc.LaunchDelay != nil {
		cfg.LaunchDelay = time.Duration(jc.LaunchDelay.Duration)
	}
	if jc.ResendCooldown != nil {
		cfg.ResendCooldown = time.Duration(jc.ResendCooldown.Duration)
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	return nil
}
