package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SPAM_DASH_API_BASE_URL
const EnvPrefix = "SPAM_DASH"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. When configFile is empty the
// standard locations are searched and a missing file is not an error.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/spam-dashboard/")
		v.AddConfigPath("$HOME/.spam-dashboard")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// Classification service
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "0s")

	// Metrics poller
	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.interval", "20s")

	// Durable storage: history and preferences
	v.SetDefault("store.durable.type", "sqlite")
	v.SetDefault("store.durable.sqlite_path", "/data/spam_dashboard.db")
	v.SetDefault("store.durable.mysql_dsn", "user:password@tcp(localhost:3306)/spam_dashboard")
	v.SetDefault("store.durable.redis_addr", "localhost:6379")
	v.SetDefault("store.durable.redis_password", "")
	v.SetDefault("store.durable.redis_db", 0)
	v.SetDefault("store.durable.key_prefix", "spam-dashboard:")

	// Session storage: last scan handoff
	v.SetDefault("store.session.type", "memory")
	v.SetDefault("store.session.ttl", "30m")
	v.SetDefault("store.session.cleanup_frequency", "5m")
	v.SetDefault("store.session.redis_addr", "localhost:6379")
	v.SetDefault("store.session.redis_password", "")
	v.SetDefault("store.session.redis_db", 0)
	v.SetDefault("store.session.key_prefix", "spam-dashboard:session:")

	// Dashboard HTTP API
	v.SetDefault("server.listen_address", ":8080")

	// SMTP intake
	v.SetDefault("intake.enabled", false)
	v.SetDefault("intake.listen_address", "127.0.0.1:2525")
	v.SetDefault("intake.domain", "localhost")
	v.SetDefault("intake.allowed_domains", []string{})
	v.SetDefault("intake.scan_timeout", "10s")
	v.SetDefault("intake.max_message_bytes", 1<<20)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Set overrides a value, taking precedence over file and environment
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	raw := strings.TrimSpace(c.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
