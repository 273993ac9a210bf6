// Package config loads service configuration from a YAML file with
// environment-variable overrides. Environment variables take precedence so
// deploys can keep secrets out of the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	httpserver "github.com/Overmuse/risk-manager/internal/interfaces/http"
)

// Duration is a time.Duration that decodes from YAML strings like "10s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// BrokerConfig holds the account API credentials used for hydration.
type BrokerConfig struct {
	BaseURL   string   `yaml:"base_url"`
	KeyID     string   `yaml:"key_id"`
	SecretKey string   `yaml:"secret_key"`
	Timeout   Duration `yaml:"timeout"`
}

// RedisConfig holds the connection shared by the price cache and the event
// streams.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StreamConfig names the streams and the consumer-group identity.
type StreamConfig struct {
	Events    string `yaml:"events"`
	Decisions string `yaml:"decisions"`
	Group     string `yaml:"group"`
	Consumer  string `yaml:"consumer"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// HTTPConfig configures the read-only HTTP surface.
type HTTPConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// Server converts to the server package's config.
func (c HTTPConfig) Server() httpserver.ServerConfig {
	return httpserver.ServerConfig{
		Host:         c.Host,
		Port:         c.Port,
		ReadTimeout:  c.ReadTimeout.Std(),
		WriteTimeout: c.WriteTimeout.Std(),
		IdleTimeout:  c.IdleTimeout.Std(),
	}
}

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Broker BrokerConfig `yaml:"broker"`
	Redis  RedisConfig  `yaml:"redis"`
	Stream StreamConfig `yaml:"stream"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	server := httpserver.DefaultServerConfig()
	return Config{
		Log: LogConfig{Level: "info"},
		Broker: BrokerConfig{
			BaseURL: "https://paper-api.alpaca.markets",
			Timeout: Duration(10 * time.Second),
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Stream: StreamConfig{
			Events:    "risk-events",
			Decisions: "risk-check-response",
			Group:     "risk-manager",
			Consumer:  "risk-manager-1",
		},
		HTTP: HTTPConfig{
			Host:         server.Host,
			Port:         server.Port,
			ReadTimeout:  Duration(server.ReadTimeout),
			WriteTimeout: Duration(server.WriteTimeout),
			IdleTimeout:  Duration(server.IdleTimeout),
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates. An empty path skips the file and uses defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from RISK_MANAGER__SECTION__FIELD variables.
func (c *Config) applyEnv() {
	setString(&c.Log.Level, "RISK_MANAGER__LOG__LEVEL")
	setString(&c.Broker.BaseURL, "RISK_MANAGER__BROKER__BASE_URL")
	setString(&c.Broker.KeyID, "RISK_MANAGER__BROKER__KEY_ID")
	setString(&c.Broker.SecretKey, "RISK_MANAGER__BROKER__SECRET_KEY")
	setString(&c.Redis.Addr, "RISK_MANAGER__REDIS__ADDR")
	setString(&c.Redis.Password, "RISK_MANAGER__REDIS__PASSWORD")
	setInt(&c.Redis.DB, "RISK_MANAGER__REDIS__DB")
	setString(&c.Stream.Events, "RISK_MANAGER__STREAM__EVENTS")
	setString(&c.Stream.Decisions, "RISK_MANAGER__STREAM__DECISIONS")
	setString(&c.Stream.Group, "RISK_MANAGER__STREAM__GROUP")
	setString(&c.Stream.Consumer, "RISK_MANAGER__STREAM__CONSUMER")
	setString(&c.HTTP.Host, "RISK_MANAGER__HTTP__HOST")
	setInt(&c.HTTP.Port, "RISK_MANAGER__HTTP__PORT")
}

// Validate checks the fields every run mode needs.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.Stream.Events == "" || c.Stream.Decisions == "" {
		return fmt.Errorf("stream names are required")
	}
	if c.Stream.Group == "" || c.Stream.Consumer == "" {
		return fmt.Errorf("stream group and consumer are required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
