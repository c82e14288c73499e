package config

import (
	"errors"
	"strings"
	"time"

	"github.com/masaoka108/tour-guide-ai-chatbot/internal/upstream"
	pkgconfig "github.com/masaoka108/tour-guide-ai-chatbot/pkg/config"
	"github.com/masaoka108/tour-guide-ai-chatbot/pkg/log"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey aborts startup: the process must not accept
// connections without an upstream credential.
var ErrMissingAPIKey = errors.New("config: DIFY_API_KEY is required")

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Upstream  UpstreamConfig
	Store     StoreConfig
	Redis     RedisConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	// Port is the preferred listen port; if occupied the server probes
	// upward for a free one.
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type UpstreamConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	User         string        `mapstructure:"user"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	// Driver selects the conversation store: "memory" or "redis".
	Driver string
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("upstream.base_url", "https://api.dify.ai/v1")
	v.SetDefault("upstream.user", "tourist")
	v.SetDefault("upstream.system_prompt", upstream.DefaultSystemPrompt)
	v.SetDefault("upstream.timeout", "120s")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.ttl", "24h")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "chat-relay")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("upstream.api_key", "DIFY_API_KEY")
	v.BindEnv("upstream.base_url", "DIFY_API_URL")
	v.BindEnv("upstream.user", "DIFY_USER")
	v.BindEnv("upstream.system_prompt", "DIFY_SYSTEM_PROMPT")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Upstream.Timeout = parseDuration(v, "upstream.timeout", 120*time.Second)
	cfg.Store.TTL = parseDuration(v, "store.ttl", 24*time.Hour)

	if strings.TrimSpace(cfg.Upstream.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
