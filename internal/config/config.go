// Package config loads agent.json, the agent's optional on-disk
// defaults for values the CLI doesn't otherwise pin down (spec.md §6.3
// names AGENT_ID/PORT/HOST as CLI arguments; everything else — timeouts,
// log verbosity — lives here instead of forcing a longer command line).
package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Config holds agent-wide defaults. ReadConfig fills every field from
// Defaults() when agent.json is absent.
type Config struct {
	DebugMode bool `json:"debug_mode"`
	// LogFile is an optional path the logger additionally tees output to
	// alongside stdout (spec.md §4.8). Empty means stdout only.
	LogFile string `json:"log_file"`
	// DefaultPort records the default controller port (47619) in
	// agent.json. Nothing reads it: cmd/agent takes the controller port
	// from the PORT argument or its own built-in 47619, and the
	// ControlEndpoint always listens on an OS-assigned port.
	DefaultPort int `json:"default_port"`
	// BootstrapTimeoutSeconds bounds how long AgentLink spends per
	// candidate controller host before trying the next one.
	BootstrapTimeoutSeconds int `json:"bootstrap_timeout_seconds"`
	// CleanupTimeoutSeconds bounds how long the shutdown Cleaner waits
	// for any one registered Callable.
	CleanupTimeoutSeconds int `json:"cleanup_timeout_seconds"`
	// ReconnectBackoff is the fixed backoff every Session hands to the
	// MQTT client library (spec.md §4.3.1 step 4: a deliberately large
	// value so a broker restart never masks a test as a silent
	// reconnect). Accepts the same "10s"/"5m"/"2h"/"1d" grammar as the
	// teacher's time-string parser; kept overridable so tests don't
	// have to wait a real day for it to matter.
	ReconnectBackoff string `json:"reconnect_backoff"`
}

var config Config
var initialized = false

// Defaults matches spec.md §6.3's CLI defaults plus this package's own
// additions.
func Defaults() Config {
	return Config{
		DebugMode:               false,
		LogFile:                 "",
		DefaultPort:             47619,
		BootstrapTimeoutSeconds: 5,
		CleanupTimeoutSeconds:   10,
		ReconnectBackoff:        "24h",
	}
}

// ReadConfig loads agent.json from the current directory, creating it
// from Defaults() if absent so a first run leaves behind an editable
// file rather than failing outright.
func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile("agent.json")

	if err != nil {
		config = Defaults()
		writer, werr := os.OpenFile("agent.json", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if werr == nil {
			data, _ := json.MarshalIndent(config, "", "\t")
			_, _ = writer.Write(data)
			_ = writer.Close()
		}
		initialized = true
		return config, nil
	}

	if err := json.Unmarshal(bytes, &config); err != nil {
		return config, errors.New("agent.json does not contain valid JSON")
	}

	initialized = true
	return config, nil
}

// GetConfig returns the already-loaded Config, loading it on first call.
func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}
