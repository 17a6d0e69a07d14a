// Package config loads flmon settings from config.yaml, FLMON_* environment
// variables and built-in defaults.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. FLMON_IDLE_THRESHOLD.
const EnvPrefix = "FLMON"

// Config represents the complete flmon configuration
type Config struct {
	Target   string         `mapstructure:"target"`
	DataDir  string         `mapstructure:"data_dir"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Idle     IdleConfig     `mapstructure:"idle"`
	WakaTime WakaTimeConfig `mapstructure:"wakatime"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Journal  JournalConfig  `mapstructure:"journal"`
}

// MonitorConfig controls instance discovery and heartbeat timing
type MonitorConfig struct {
	// HeartbeatInterval is the minimum spacing of periodic heartbeats
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// WriteDebounce absorbs duplicate save notifications
	WriteDebounce time.Duration `mapstructure:"write_debounce"`
	// CreationGrace is how long a new main window must survive before it is tracked
	CreationGrace time.Duration `mapstructure:"creation_grace"`
	ProcessPollInterval time.Duration `mapstructure:"process_poll_interval"`
	// StatusInterval is how often the status file is rewritten
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// IdleConfig controls away-from-keyboard detection
type IdleConfig struct {
	Threshold time.Duration `mapstructure:"threshold"`
}

// WakaTimeConfig controls the wakatime-cli integration
type WakaTimeConfig struct {
	// Home holds the .wakatime directory; empty means the user's home
	Home        string        `mapstructure:"home"`
	Category    string        `mapstructure:"category"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DownloadURL string        `mapstructure:"download_url"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	Console bool   `mapstructure:"console"`
}

// JournalConfig controls the encrypted heartbeat journal
type JournalConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	RetentionDays int  `mapstructure:"retention_days"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	dir := ConfigDir()
	return &Config{
		Target:  "flstudio",
		DataDir: dir,
		Monitor: MonitorConfig{
			HeartbeatInterval:   2 * time.Minute,
			WriteDebounce:       time.Second,
			CreationGrace:       250 * time.Millisecond,
			ProcessPollInterval: 5 * time.Second,
			StatusInterval:      10 * time.Second,
		},
		Idle: IdleConfig{
			Threshold: 15 * time.Second,
		},
		WakaTime: WakaTimeConfig{
			Home:        os.Getenv("WAKATIME_HOME"),
			Category:    "designing",
			Timeout:     30 * time.Second,
			DownloadURL: "https://github.com/wakatime/wakatime-cli/releases/latest/download",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Dir:     dir,
			Console: false,
		},
		Journal: JournalConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("target", defaults.Target)
	v.SetDefault("data_dir", defaults.DataDir)

	v.SetDefault("monitor.heartbeat_interval", defaults.Monitor.HeartbeatInterval)
	v.SetDefault("monitor.write_debounce", defaults.Monitor.WriteDebounce)
	v.SetDefault("monitor.creation_grace", defaults.Monitor.CreationGrace)
	v.SetDefault("monitor.process_poll_interval", defaults.Monitor.ProcessPollInterval)
	v.SetDefault("monitor.status_interval", defaults.Monitor.StatusInterval)

	v.SetDefault("idle.threshold", defaults.Idle.Threshold)

	v.SetDefault("wakatime.home", defaults.WakaTime.Home)
	v.SetDefault("wakatime.category", defaults.WakaTime.Category)
	v.SetDefault("wakatime.timeout", defaults.WakaTime.Timeout)
	v.SetDefault("wakatime.download_url", defaults.WakaTime.DownloadURL)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.console", defaults.Logging.Console)

	v.SetDefault("journal.enabled", defaults.Journal.Enabled)
	v.SetDefault("journal.retention_days", defaults.Journal.RetentionDays)
}

// NewViper creates a viper instance with defaults, environment overrides and
// the config file. An explicit configFile must exist; the default one may not.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the per-user flmon directory (%APPDATA%\flmon on Windows)
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "flmon")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flmon"
	}
	return filepath.Join(home, ".flmon")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
