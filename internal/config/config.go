package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"tutorlink/pkg/logging"
)

// Config is the full client configuration.
type Config struct {
	API       APIConfig      `mapstructure:"api"`
	WebSocket SocketConfig   `mapstructure:"ws"`
	Auth      AuthConfig     `mapstructure:"auth"`
	Cache     CacheConfig    `mapstructure:"cache"`
	Room      RoomConfig     `mapstructure:"room"`
	Log       logging.Config `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SocketConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type AuthConfig struct {
	CredentialsPath string `mapstructure:"credentials_path"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

type RoomConfig struct {
	ExpiryWindow time.Duration `mapstructure:"expiry_window"`
}

// Load reads configuration from an optional config file plus environment
// overrides, with working defaults for everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("TUTORLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.BindEnv("api.base_url", "TUTORLINK_API_BASE_URL")
	v.BindEnv("ws.url", "TUTORLINK_WS_URL")
	v.BindEnv("auth.credentials_path", "TUTORLINK_CREDENTIALS")
	v.BindEnv("cache.path", "TUTORLINK_CACHE_PATH")
	v.BindEnv("log.level", "TUTORLINK_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.API.Timeout = parseDuration(v, "api.timeout", 15*time.Second)
	cfg.WebSocket.ConnectTimeout = parseDuration(v, "ws.connect_timeout", 10*time.Second)
	cfg.WebSocket.BackoffBase = parseDuration(v, "ws.backoff_base", 2*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "ws.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "ws.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "ws.write_wait", 10*time.Second)
	cfg.Room.ExpiryWindow = parseDuration(v, "room.expiry_window", 5*time.Minute)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("ws.url", "ws://localhost:8080/ws/chat")
	v.SetDefault("ws.connect_timeout", "10s")
	v.SetDefault("ws.backoff_base", "2s")
	v.SetDefault("ws.max_retries", 5)
	v.SetDefault("ws.ping_interval", "30s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "10s")
	v.SetDefault("ws.max_message_size", 8*1024*1024)
	v.SetDefault("auth.credentials_path", "./credentials.json")
	v.SetDefault("cache.path", "./tutorlink.db")
	v.SetDefault("room.expiry_window", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate rejects configurations that cannot work at runtime.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}
	if c.WebSocket.URL == "" {
		return fmt.Errorf("ws.url cannot be empty")
	}
	if !strings.HasPrefix(c.WebSocket.URL, "ws://") && !strings.HasPrefix(c.WebSocket.URL, "wss://") {
		return fmt.Errorf("ws.url must use ws:// or wss:// scheme")
	}
	if c.WebSocket.ConnectTimeout <= 0 {
		return fmt.Errorf("ws.connect_timeout must be positive")
	}
	if c.WebSocket.BackoffBase <= 0 {
		return fmt.Errorf("ws.backoff_base must be positive")
	}
	if c.WebSocket.MaxRetries < 0 {
		return fmt.Errorf("ws.max_retries cannot be negative")
	}
	if c.WebSocket.MaxMessageSize <= 0 {
		return fmt.Errorf("ws.max_message_size must be positive")
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path cannot be empty")
	}
	if c.Room.ExpiryWindow <= 0 {
		return fmt.Errorf("room.expiry_window must be positive")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}
