// Package config handles configuration loading and persistence for zai.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/diogo/zai/internal/errors"
	"github.com/diogo/zai/internal/models"
)

// Environment overrides
const (
	EnvBridgeURL   = "ZAI_BRIDGE_URL"
	EnvBridgeToken = "ZAI_BRIDGE_TOKEN"
	EnvHome        = "ZAI_HOME"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "zega", "dark", "light", "notty" or path to a JSON style
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
}

// BridgeConfig selects and configures the query bridge.
type BridgeConfig struct {
	// URL picks the transport by scheme: http(s) or ws(s).
	// Empty means no bridge; exchanges resolve through the fallback.
	URL            string `json:"url"`
	Token          string `json:"token,omitempty"`
	ResponsePath   string `json:"response_path"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Config represents the user configuration
type Config struct {
	DefaultEngine string       `json:"default_engine"`
	Engines       []string     `json:"engines"`
	Bridge        BridgeConfig `json:"bridge"`
	// FallbackDelayMS is how long a placeholder stays pending before the
	// "bridge not detected" text replaces it.
	FallbackDelayMS int `json:"fallback_delay_ms"`
	// ResponseTimeoutSeconds bounds how long a configured bridge may take. 0 disables.
	ResponseTimeoutSeconds int            `json:"response_timeout_seconds"`
	CopyToClipboard        bool           `json:"copy_to_clipboard"`
	SaveHistory            bool           `json:"save_history"`
	TUITheme               string         `json:"tui_theme,omitempty"`
	Verbose                bool           `json:"verbose"`
	LogFile                string         `json:"log_file,omitempty"`
	Markdown               MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "zega",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	dir, _ := GetConfigDir()
	return Config{
		DefaultEngine: models.DefaultEngine,
		Engines:       models.DefaultEngines(),
		Bridge: BridgeConfig{
			ResponsePath:   "response",
			TimeoutSeconds: 300,
		},
		FallbackDelayMS:        int(models.DefaultFallbackDelay / time.Millisecond),
		ResponseTimeoutSeconds: int(models.DefaultResponseTimeout / time.Second),
		CopyToClipboard:        false,
		SaveHistory:            true,
		TUITheme:               "zega",
		Verbose:                false,
		LogFile:                filepath.Join(dir, "zai.log"),
		Markdown:               DefaultMarkdownConfig(),
	}
}

// FallbackDelay returns the configured fallback delay as a duration
func (c Config) FallbackDelay() time.Duration {
	return time.Duration(c.FallbackDelayMS) * time.Millisecond
}

// ResponseTimeout returns the configured bridge response timeout
func (c Config) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSeconds) * time.Second
}

// BridgeTimeout returns the transport timeout for remote bridges
func (c Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.TimeoutSeconds) * time.Second
}

// Validate checks the configuration for values the client cannot work with
func (c Config) Validate() error {
	if len(c.Engines) > 0 && !containsEngine(c.Engines, c.DefaultEngine) {
		return apierrors.NewConfigError("default_engine",
			fmt.Sprintf("%q is not in engines %v", c.DefaultEngine, c.Engines))
	}
	if strings.TrimSpace(c.DefaultEngine) == "" {
		return apierrors.NewConfigError("default_engine", "must not be empty")
	}
	if c.FallbackDelayMS < 0 {
		return apierrors.NewConfigError("fallback_delay_ms", "must not be negative")
	}
	if c.ResponseTimeoutSeconds < 0 {
		return apierrors.NewConfigError("response_timeout_seconds", "must not be negative")
	}
	if c.Bridge.TimeoutSeconds < 0 {
		return apierrors.NewConfigError("bridge.timeout_seconds", "must not be negative")
	}
	if c.Bridge.URL != "" {
		u, err := url.Parse(c.Bridge.URL)
		if err != nil {
			return apierrors.NewConfigError("bridge.url", err.Error())
		}
		switch u.Scheme {
		case "http", "https", "ws", "wss":
		default:
			return apierrors.NewConfigError("bridge.url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
		}
	}
	return nil
}

func containsEngine(engines []string, name string) bool {
	for _, e := range engines {
		if e == name {
			return true
		}
	}
	return false
}

// GetConfigDir returns the configuration directory path.
// ZAI_HOME overrides the default ~/.zai location.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".zai"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds the bridge token and chat history
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies environment overrides
func LoadConfig() (Config, error) {
	cfg, err := LoadFileConfig()
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadFileConfig loads the configuration file without environment
// overrides. Use it when the result is written back with SaveConfig.
func LoadFileConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBridgeURL); v != "" {
		cfg.Bridge.URL = v
	}
	if v := os.Getenv(EnvBridgeToken); v != "" {
		cfg.Bridge.Token = v
	}
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0o600: may contain the bridge token
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SettableKeys lists the keys accepted by Set.
func SettableKeys() []string {
	return []string{
		"default_engine",
		"engines",
		"bridge.url",
		"bridge.token",
		"bridge.response_path",
		"bridge.timeout_seconds",
		"fallback_delay_ms",
		"response_timeout_seconds",
		"copy_to_clipboard",
		"save_history",
		"tui_theme",
		"verbose",
		"log_file",
		"markdown.style",
	}
}

// Set assigns a scalar value by dotted key. The result is validated.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "default_engine":
		next.DefaultEngine = value
	case "engines":
		var engines []string
		for _, e := range strings.Split(value, ",") {
			if e = strings.TrimSpace(e); e != "" {
				engines = append(engines, e)
			}
		}
		next.Engines = engines
	case "bridge.url":
		next.Bridge.URL = value
	case "bridge.token":
		next.Bridge.Token = value
	case "bridge.response_path":
		next.Bridge.ResponsePath = value
	case "bridge.timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return apierrors.NewConfigError(key, "expected an integer")
		}
		next.Bridge.TimeoutSeconds = n
	case "fallback_delay_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return apierrors.NewConfigError(key, "expected an integer")
		}
		next.FallbackDelayMS = n
	case "response_timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return apierrors.NewConfigError(key, "expected an integer")
		}
		next.ResponseTimeoutSeconds = n
	case "copy_to_clipboard", "save_history", "verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return apierrors.NewConfigError(key, "expected true or false")
		}
		switch key {
		case "copy_to_clipboard":
			next.CopyToClipboard = b
		case "save_history":
			next.SaveHistory = b
		default:
			next.Verbose = b
		}
	case "tui_theme":
		next.TUITheme = value
	case "log_file":
		next.LogFile = value
	case "markdown.style":
		next.Markdown.Style = value
	default:
		return apierrors.NewConfigError(key, "unknown key")
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
