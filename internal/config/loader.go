package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Approval ApprovalConfig `mapstructure:"approval"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Features FeaturesConfig `mapstructure:"features"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// AgentConfig describes how the external agent binary is invoked.
type AgentConfig struct {
	Binary         string            `mapstructure:"binary"`
	Binaries       map[string]string `mapstructure:"binaries"` // per-provider overrides
	DefaultWorkDir string            `mapstructure:"default_work_dir"`
	KillGrace      time.Duration     `mapstructure:"kill_grace"`
}

// BinaryFor resolves the agent binary for a provider tag, falling back to the
// default binary when the provider has no explicit mapping.
func (a *AgentConfig) BinaryFor(provider string) string {
	if provider != "" {
		if bin, ok := a.Binaries[provider]; ok && bin != "" {
			return bin
		}
	}
	return a.Binary
}

type ApprovalConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PollerConfig struct {
	GatewayURL     string        `mapstructure:"gateway_url"`
	Interval       time.Duration `mapstructure:"interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type WorkerConfig struct {
	// Concurrency is validated to 1: the agent binary assumes exclusive
	// ownership of its working directory and session files.
	Concurrency int           `mapstructure:"concurrency"`
	IdlePoll    time.Duration `mapstructure:"idle_poll"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("AGENTDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Worker.Concurrency != 1 {
		return nil, fmt.Errorf("worker.concurrency must be 1, got %d", cfg.Worker.Concurrency)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/agentdeck.db"
	}
	if cfg.Agent.Binary == "" {
		cfg.Agent.Binary = "claude"
	}
	if cfg.Agent.KillGrace <= 0 {
		cfg.Agent.KillGrace = 5 * time.Second
	}
	if cfg.Approval.Timeout <= 0 {
		cfg.Approval.Timeout = 2 * time.Minute
	}
	if cfg.Poller.Interval <= 0 {
		cfg.Poller.Interval = 2 * time.Second
	}
	if cfg.Poller.RequestTimeout <= 0 {
		cfg.Poller.RequestTimeout = 35 * time.Second
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 1
	}
	if cfg.Worker.IdlePoll <= 0 {
		cfg.Worker.IdlePoll = 15 * time.Second
	}
}
