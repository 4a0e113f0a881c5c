package config

import (
	"fmt"
	"time"
)

// APIConfig locates the classification service
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PollerConfig controls the metrics poller
type PollerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// StoreConfig selects and configures one key-value backend
type StoreConfig struct {
	Type             string
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	KeyPrefix        string
	TTL              time.Duration
	CleanupFrequency time.Duration
}

// ServerConfig configures the dashboard HTTP API
type ServerConfig struct {
	ListenAddress string
}

// IntakeConfig configures the SMTP intake
type IntakeConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	AllowedDomains  []string
	ScanTimeout     time.Duration
	MaxMessageBytes int64
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string
	Format string
}

// GetAPI returns the classification service configuration
func (c *Config) GetAPI() (APIConfig, error) {
	timeout, err := c.GetDuration("api.timeout")
	if err != nil {
		return APIConfig{}, err
	}
	return APIConfig{
		BaseURL: c.GetString("api.base_url"),
		Timeout: timeout,
	}, nil
}

// GetPoller returns the poller configuration
func (c *Config) GetPoller() (PollerConfig, error) {
	interval, err := c.GetDuration("poller.interval")
	if err != nil {
		return PollerConfig{}, err
	}
	if interval < 0 {
		return PollerConfig{}, fmt.Errorf("poller.interval must not be negative")
	}
	return PollerConfig{
		Enabled:  c.GetBool("poller.enabled"),
		Interval: interval,
	}, nil
}

// GetDurableStore returns the backend configuration for history and preferences
func (c *Config) GetDurableStore() (StoreConfig, error) {
	return c.getStore("store.durable")
}

// GetSessionStore returns the backend configuration for the last scan handoff
func (c *Config) GetSessionStore() (StoreConfig, error) {
	return c.getStore("store.session")
}

func (c *Config) getStore(prefix string) (StoreConfig, error) {
	ttl, err := c.GetDuration(prefix + ".ttl")
	if err != nil {
		return StoreConfig{}, err
	}
	cleanup, err := c.GetDuration(prefix + ".cleanup_frequency")
	if err != nil {
		return StoreConfig{}, err
	}
	return StoreConfig{
		Type:             c.GetString(prefix + ".type"),
		SQLitePath:       c.GetString(prefix + ".sqlite_path"),
		MySQLDSN:         c.GetString(prefix + ".mysql_dsn"),
		RedisAddr:        c.GetString(prefix + ".redis_addr"),
		RedisPassword:    c.GetString(prefix + ".redis_password"),
		RedisDB:          c.GetInt(prefix + ".redis_db"),
		KeyPrefix:        c.GetString(prefix + ".key_prefix"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
	}, nil
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
	}
}

// GetIntake returns the SMTP intake configuration
func (c *Config) GetIntake() (IntakeConfig, error) {
	timeout, err := c.GetDuration("intake.scan_timeout")
	if err != nil {
		return IntakeConfig{}, err
	}
	return IntakeConfig{
		Enabled:         c.GetBool("intake.enabled"),
		ListenAddress:   c.GetString("intake.listen_address"),
		Domain:          c.GetString("intake.domain"),
		AllowedDomains:  c.GetStringSlice("intake.allowed_domains"),
		ScanTimeout:     timeout,
		MaxMessageBytes: c.GetInt64("intake.max_message_bytes"),
	}, nil
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
