package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Search  SearchConfig  `mapstructure:"search"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LLMConfig holds the response-composer LLM configuration.
// Any OpenAI-compatible endpoint works; base_url defaults to Groq.
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SearchConfig holds the scholarship search adapter configuration.
type SearchConfig struct {
	Provider       string    `mapstructure:"provider"` // "tavily" or "mcp"
	APIKey         string    `mapstructure:"api_key"`
	Depth          string    `mapstructure:"depth"`
	MaxResults     int       `mapstructure:"max_results"`
	TimeoutSeconds int       `mapstructure:"timeout_seconds"`
	MCP            MCPConfig `mapstructure:"mcp"`
}

// MCPConfig points the search adapter at an MCP server exposing a search tool.
type MCPConfig struct {
	Type string `mapstructure:"type"` // "streamable_http" or "sse"
	URL  string `mapstructure:"url"`
	Tool string `mapstructure:"tool"`
}

// SessionConfig holds the session store configuration.
type SessionConfig struct {
	Driver       string      `mapstructure:"driver"` // "memory" or "redis"
	TimeoutHours float64     `mapstructure:"timeout_hours"`
	Redis        RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds connection settings for the redis session driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Timeout returns the composer request timeout.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the search request timeout.
func (c SearchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionTimeout returns the session inactivity timeout.
func (c SessionConfig) SessionTimeout() time.Duration {
	if c.TimeoutHours <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.TimeoutHours * float64(time.Hour))
}

// Load reads the configuration from config.yaml (or CONFIG_PATH) with
// environment overrides. A missing config file is not an error: the
// defaults plus GROQ_API_KEY / TAVILY_API_KEY are enough to run.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8002")
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama3-70b-8192")
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("search.provider", "tavily")
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_results", 6)
	v.SetDefault("search.timeout_seconds", 30)
	v.SetDefault("session.driver", "memory")
	v.SetDefault("session.timeout_hours", 2.0)
	v.SetDefault("log.level", "info")

	// Env names kept from the original deployment.
	_ = v.BindEnv("llm.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("search.api_key", "TAVILY_API_KEY")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("session.redis.addr", "REDIS_ADDR")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &config, nil
}
