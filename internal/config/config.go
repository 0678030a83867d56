package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Remote RemoteConfig `yaml:"remote"`
	Poll   PollConfig   `yaml:"poll"`
	Web    WebConfig    `yaml:"web"`
	Stats  StatsConfig  `yaml:"stats"`
	State  StateConfig  `yaml:"state"`
	Alerts AlertsConfig `yaml:"alerts"`
	Log    LogConfig    `yaml:"log,omitempty"`
}

// RemoteConfig describes the counter service the dashboard polls
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig contains the intervals of the periodic tasks
type PollConfig struct {
	ClockInterval  time.Duration `yaml:"clock_interval"`
	StatusInterval time.Duration `yaml:"status_interval"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
}

// WebConfig contains the local operator surface configuration
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// StatsConfig contains statistics defaults
type StatsConfig struct {
	DefaultDays int `yaml:"default_days"`
}

// StateConfig contains the client-side preference store location
type StateConfig struct {
	DataDir string `yaml:"data_dir"`
}

// AlertsConfig contains alert center configuration
type AlertsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// getDefaultConfigPath returns the default configuration file path
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"/etc/counterdash/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return paths[0]
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = "http://localhost:5000"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 10 * time.Second
	}

	if c.Poll.ClockInterval == 0 {
		c.Poll.ClockInterval = time.Second
	}
	if c.Poll.StatusInterval == 0 {
		c.Poll.StatusInterval = 2 * time.Second
	}
	if c.Poll.FrameInterval == 0 {
		c.Poll.FrameInterval = 100 * time.Millisecond
	}
	if c.Poll.SyncInterval == 0 {
		c.Poll.SyncInterval = 5 * time.Second
	}

	if c.Web.Host == "" {
		c.Web.Host = "localhost"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8090
	}

	if c.Stats.DefaultDays == 0 {
		c.Stats.DefaultDays = 7
	}

	if c.State.DataDir == "" {
		c.State.DataDir = "./data"
	}

	if c.Alerts.TTL == 0 {
		c.Alerts.TTL = 5 * time.Second
	}
}

// validate rejects configurations the pollers cannot run with
func (c *Config) validate() error {
	intervals := map[string]time.Duration{
		"poll.clock_interval":  c.Poll.ClockInterval,
		"poll.status_interval": c.Poll.StatusInterval,
		"poll.frame_interval":  c.Poll.FrameInterval,
		"poll.sync_interval":   c.Poll.SyncInterval,
	}
	for name, d := range intervals {
		if d < 0 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %s", name, d)
		}
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid configuration: web.port out of range: %d", c.Web.Port)
	}
	return nil
}

// StateDBPath returns the path of the preference database
func (c *Config) StateDBPath() string {
	return filepath.Join(c.State.DataDir, "db", "counterdash.db")
}
