package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "voltwatch/backend/libs/config"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultHTTPPort = "3001"

// Config defines voltage service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"VOLTAGE_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		Driver string `yaml:"driver" env:"VOLTAGE_DB_DRIVER"`
		DSN    string `yaml:"dsn" env:"VOLTAGE_DB_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"VOLTAGE_REDIS_ADDR"`
		Password string `yaml:"password" env:"VOLTAGE_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"VOLTAGE_REDIS_DB"`
		TTL      int    `yaml:"ttlSeconds" env:"VOLTAGE_REDIS_TTL"`
	} `yaml:"redis"`
	Auth struct {
		APIKey         string   `yaml:"apiKey" env:"VOLTAGE_API_KEY"`
		APIKeyHash     string   `yaml:"apiKeyHash" env:"VOLTAGE_API_KEY_HASH"`
		AllowedDevices []string `yaml:"allowedDevices" env:"VOLTAGE_ALLOWED_DEVICES"`
		ViewerSecret   string   `yaml:"viewerSecret" env:"VOLTAGE_VIEWER_SECRET"`
	} `yaml:"auth"`
	WebSocket struct {
		PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"VOLTAGE_WS_PING_INTERVAL"`
		WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds" env:"VOLTAGE_WS_WRITE_TIMEOUT"`
		SendBuffer          int `yaml:"sendBuffer" env:"VOLTAGE_WS_SEND_BUFFER"`
	} `yaml:"websocket"`
	MQTT struct {
		Enabled bool   `yaml:"enabled" env:"VOLTAGE_MQTT_ENABLED"`
		Address string `yaml:"address" env:"VOLTAGE_MQTT_ADDRESS"`
	} `yaml:"mqtt"`
}

// Load reads configuration via shared helper and validates required fields.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns configuration prefilled with default values.
func Defaults() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = defaultHTTPPort
	cfg.Database.Driver = DriverPostgres
	cfg.Redis.TTL = 86400
	cfg.WebSocket.PingIntervalSeconds = 30
	cfg.WebSocket.WriteTimeoutSeconds = 10
	cfg.WebSocket.SendBuffer = 64
	cfg.MQTT.Address = ":1883"
	return cfg
}

// Validate checks that mandatory settings are present.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.Auth.APIKey) == "" && strings.TrimSpace(c.Auth.APIKeyHash) == "" {
		return errors.New("config: auth api key or api key hash required")
	}
	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Address) == "" {
		return errors.New("config: mqtt address required when mqtt is enabled")
	}
	return nil
}

// DatabaseDriver returns the normalized driver name.
func (c *Config) DatabaseDriver() string {
	return strings.ToLower(strings.TrimSpace(c.Database.Driver))
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultHTTPPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether the open-session cache is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// OpenSessionTTL returns ttl as duration.
func (c *Config) OpenSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// PingInterval returns websocket ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.PingIntervalSeconds) * time.Second
}

// WriteTimeout returns websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WebSocket.WriteTimeoutSeconds) * time.Second
}

// SendBuffer returns the per observer outbound queue size.
func (c *Config) SendBuffer() int {
	if c.WebSocket.SendBuffer <= 0 {
		return 64
	}
	return c.WebSocket.SendBuffer
}
