package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Signals struct {
		Timezone           string        `yaml:"timezone"`
		MinConfidence      float64       `yaml:"min_confidence"`
		MaxDisplay         int           `yaml:"max_display"`
		MaxDurationMinutes int           `yaml:"max_duration_minutes"`
		GraceWindow        time.Duration `yaml:"grace_window"`
		RolloverThreshold  time.Duration `yaml:"rollover_threshold"`
		TickInterval       time.Duration `yaml:"tick_interval"`
	} `yaml:"signals"`
	Feed struct {
		URL          string        `yaml:"url"`
		PollInterval time.Duration `yaml:"poll_interval"`
		Timeout      time.Duration `yaml:"timeout"`
		StaleTTL     time.Duration `yaml:"stale_ttl"`
	} `yaml:"feed"`
	Dispatch struct {
		URL           string        `yaml:"url"`
		Token         string        `yaml:"token"`
		Ref           string        `yaml:"ref"`
		SuccessStatus int           `yaml:"success_status"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"dispatch"`
	Cooldown struct {
		Duration time.Duration `yaml:"duration"`
	} `yaml:"cooldown"`
	State struct {
		Backend string `yaml:"backend"` // "redis" or "memory"
		Prefix  string `yaml:"prefix"`
		Redis   struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"state"`
	Events struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"events"`
	History struct {
		Enabled    bool   `yaml:"enabled"`
		Table      string `yaml:"table"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"history"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("DISPATCH_URL"); v != "" {
		c.Dispatch.URL = v
	}
	if v := os.Getenv("DISPATCH_TOKEN"); v != "" {
		c.Dispatch.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := splitHostPort(v, c.State.Redis.Port)
		c.State.Redis.Host = host
		c.State.Redis.Port = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SIGNALS_TIMEZONE"); v != "" {
		c.Signals.Timezone = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Signals.Timezone == "" {
		c.Signals.Timezone = "Europe/Kyiv"
	}
	if c.Signals.MinConfidence == 0 {
		c.Signals.MinConfidence = 0.70
	}
	if c.Signals.MaxDisplay == 0 {
		c.Signals.MaxDisplay = 3
	}
	if c.Signals.MaxDurationMinutes == 0 {
		c.Signals.MaxDurationMinutes = 5
	}
	if c.Signals.GraceWindow == 0 {
		c.Signals.GraceWindow = time.Minute
	}
	if c.Signals.RolloverThreshold == 0 {
		c.Signals.RolloverThreshold = 12 * time.Hour
	}
	if c.Signals.TickInterval == 0 {
		c.Signals.TickInterval = time.Second
	}
	if c.Feed.PollInterval == 0 {
		c.Feed.PollInterval = 30 * time.Second
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 10 * time.Second
	}
	if c.Feed.StaleTTL == 0 {
		c.Feed.StaleTTL = 5 * time.Minute
	}
	if c.Cooldown.Duration == 0 {
		c.Cooldown.Duration = 5 * time.Minute
	}
	if c.Dispatch.SuccessStatus == 0 {
		c.Dispatch.SuccessStatus = 204
	}
	if c.Dispatch.Timeout == 0 {
		c.Dispatch.Timeout = 15 * time.Second
	}
	if c.State.Backend == "" {
		c.State.Backend = "memory"
	}
	if c.State.Prefix == "" {
		c.State.Prefix = "signaldeck"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.State.Backend != "redis" && c.State.Backend != "memory" {
		return fmt.Errorf("state.backend must be 'redis' or 'memory', got '%s'", c.State.Backend)
	}
	if c.Signals.MinConfidence < 0 || c.Signals.MinConfidence > 1 {
		return fmt.Errorf("signals.min_confidence must be in [0,1]")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return fmt.Errorf("events.brokers cannot be empty when events are enabled")
	}
	if c.History.Enabled && c.History.ClickHouse.Host == "" {
		return fmt.Errorf("history.clickhouse.host is required when history is enabled")
	}
	return nil
}

func splitHostPort(addr string, defPort int) (string, int) {
	host := addr
	port := defPort
	if i := strings.LastIndex(addr, ":"); i > 0 {
		host = addr[:i]
		if p, err := fmt.Sscanf(addr[i+1:], "%d", &port); err != nil || p != 1 {
			port = defPort
		}
	}
	return host, port
}
