// ABOUTME: Configuration loading and management for the jsonrpcd server
// ABOUTME: Supports YAML files, defaults, and JSONRPCD_* environment overrides

package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harper/jsonrpcd/internal/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. JSONRPCD_SERVER_HTTP_PORT.
const EnvPrefix = "JSONRPCD"

type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Dispatch DispatchConfig `mapstructure:"dispatch" json:"dispatch"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
}

type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port" json:"http_port"`
	HTTPHost       string   `mapstructure:"http_host" json:"http_host"`
	WebSocketPort  int      `mapstructure:"websocket_port" json:"websocket_port"`
	WebSocketHost  string   `mapstructure:"websocket_host" json:"websocket_host"`
	ManagementPort int      `mapstructure:"management_port" json:"management_port"`
	ManagementHost string   `mapstructure:"management_host" json:"management_host"`
	MaxBodyBytes   int64    `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
}

type DispatchConfig struct {
	MaxBatchSize   int           `mapstructure:"max_batch_size" json:"max_batch_size"`
	MaxConcurrency int           `mapstructure:"max_concurrency" json:"max_concurrency"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" json:"handler_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit" json:"rate_limit"` // calls per second, 0 disables
	RateBurst      int           `mapstructure:"rate_burst" json:"rate_burst"`
	// Aliases maps an extra method name onto a registered one. Read from
	// the YAML directly, see load.
	Aliases map[string]string `mapstructure:"-" json:"aliases"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" json:"path"` // empty disables the traffic log
}

type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.http_host", "0.0.0.0")
	v.SetDefault("server.websocket_port", 8081)
	v.SetDefault("server.websocket_host", "0.0.0.0")
	v.SetDefault("server.management_port", 8082)
	v.SetDefault("server.management_host", "127.0.0.1")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("dispatch.max_batch_size", 100)
	v.SetDefault("dispatch.max_concurrency", 8)
	v.SetDefault("dispatch.handler_timeout", 30*time.Second)
	v.SetDefault("dispatch.rate_limit", 0)
	v.SetDefault("dispatch.rate_burst", 1)
	v.SetDefault("database.path", "$XDG_DATA_HOME/"+xdg.AppName+"/db.sqlite")
	v.SetDefault("logging.verbose", false)
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default() (*Config, error) {
	return load(nil)
}

// Load reads the YAML file at path, applies defaults and environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	//nolint:gosec // config file path comes from the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return load(data)
}

func load(data []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if data != nil {
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Viper lowercases map keys and splits them on dots, but method names
	// are case-sensitive and dotted. Parse the YAML directly to keep alias
	// keys as written.
	if data != nil {
		var raw struct {
			Dispatch struct {
				Aliases map[string]string `yaml:"aliases"`
			} `yaml:"dispatch"`
		}
		if yaml.Unmarshal(data, &raw) == nil && len(raw.Dispatch.Aliases) > 0 {
			cfg.Dispatch.Aliases = raw.Dispatch.Aliases
		}
	}

	cfg.Database.Path = xdg.ExpandPath(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the servers cannot run with.
func (c *Config) Validate() error {
	ports := map[string]int{
		"server.http_port":       c.Server.HTTPPort,
		"server.websocket_port":  c.Server.WebSocketPort,
		"server.management_port": c.Server.ManagementPort,
	}
	for key, port := range ports {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 0-65535)", key, port)
		}
	}

	if c.Dispatch.MaxBatchSize < 0 {
		return fmt.Errorf("invalid dispatch.max_batch_size: %d (must be >= 0, 0 means unlimited)", c.Dispatch.MaxBatchSize)
	}
	if c.Dispatch.MaxConcurrency < 1 {
		return fmt.Errorf("invalid dispatch.max_concurrency: %d (must be >= 1)", c.Dispatch.MaxConcurrency)
	}
	if c.Dispatch.HandlerTimeout < 0 {
		return fmt.Errorf("invalid dispatch.handler_timeout: %s", c.Dispatch.HandlerTimeout)
	}
	if c.Dispatch.RateLimit < 0 {
		return fmt.Errorf("invalid dispatch.rate_limit: %v", c.Dispatch.RateLimit)
	}
	if c.Dispatch.RateLimit > 0 && c.Dispatch.RateBurst < 1 {
		return fmt.Errorf("invalid dispatch.rate_burst: %d (must be >= 1 when rate_limit is set)", c.Dispatch.RateBurst)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server.max_body_bytes: %d", c.Server.MaxBodyBytes)
	}

	return nil
}

// HTTPAddr, WebSocketAddr and ManagementAddr format listen addresses.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.HTTPHost, c.Server.HTTPPort)
}

func (c *Config) WebSocketAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.WebSocketHost, c.Server.WebSocketPort)
}

func (c *Config) ManagementAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.ManagementHost, c.Server.ManagementPort)
}
