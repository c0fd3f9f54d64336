// Package config resolves settings from the environment, an optional
// settings file and the feeds file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TAPESTRY"

	keyConfig    = "config"
	keyDataDir   = "data_dir"
	keyTimeout   = "timeout"
	keyUserAgent = "user_agent"
	keyLogLevel  = "log_level"
	keyRetention = "retention"

	defaultTimeout   = 30 * time.Second
	defaultRetention = 30 * 24 * time.Hour
	defaultLogLevel  = "info"
)

// Config holds application-level configuration.
type Config struct {
	FeedsPath string // feeds.yaml
	DataDir   string // store, cache, log and UI state live here
	Timeout   time.Duration
	UserAgent string // empty means the request default
	LogLevel  string
	Retention time.Duration // cached items older than this are pruned
}

func (c Config) StorePath() string     { return filepath.Join(c.DataDir, "store.db") }
func (c Config) CachePath() string     { return filepath.Join(c.DataDir, "items.db") }
func (c Config) LogPath() string       { return filepath.Join(c.DataDir, "tapestry.log") }
func (c Config) UIStatePath() string   { return filepath.Join(c.DataDir, "ui_state.json") }
func (c Config) ConnectorsDir() string { return filepath.Join(c.DataDir, "connectors") }

// LoadDotEnv loads .env files into the environment. Missing files are
// ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Load resolves configuration. Environment variables override the optional
// settings file (config.yaml next to the feeds file), which overrides the
// defaults:
//
//	TAPESTRY_CONFIG      feeds file (default: $XDG_CONFIG_HOME/tapestry/feeds.yaml)
//	TAPESTRY_DATA_DIR    data directory (default: ~/.local/share/tapestry)
//	TAPESTRY_TIMEOUT     per-connector deadline (default: 30s)
//	TAPESTRY_USER_AGENT  User-Agent for outgoing requests
//	TAPESTRY_LOG_LEVEL   debug, info, warn or error (default: info)
//	TAPESTRY_RETENTION   cache retention (default: 720h)
func Load() (Config, error) {
	configDir, err := defaultConfigDir()
	if err != nil {
		return Config{}, err
	}
	dataDir, err := defaultDataDir()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault(keyConfig, filepath.Join(configDir, "feeds.yaml"))
	v.SetDefault(keyDataDir, dataDir)
	v.SetDefault(keyTimeout, defaultTimeout)
	v.SetDefault(keyUserAgent, "")
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyRetention, defaultRetention)

	feedsPath := expandHome(v.GetString(keyConfig))
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Dir(feedsPath))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read settings: %w", err)
		}
	}

	cfg := Config{
		FeedsPath: feedsPath,
		DataDir:   expandHome(v.GetString(keyDataDir)),
		Timeout:   v.GetDuration(keyTimeout),
		UserAgent: strings.TrimSpace(v.GetString(keyUserAgent)),
		LogLevel:  strings.ToLower(strings.TrimSpace(v.GetString(keyLogLevel))),
		Retention: v.GetDuration(keyRetention),
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("invalid %s_TIMEOUT: must be a positive duration", envPrefix)
	}
	if cfg.Retention < 0 {
		return Config{}, fmt.Errorf("invalid %s_RETENTION: must not be negative", envPrefix)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid %s_LOG_LEVEL %q", envPrefix, cfg.LogLevel)
	}
	return cfg, nil
}

func defaultConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tapestry"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tapestry"), nil
}

func defaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "tapestry"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tapestry"), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
