// Package config loads the layered agentspine configuration: built-in
// defaults, the global ~/.agentspine/config.yaml, a project-local
// config.yaml, and environment variable overrides — in that priority
// order, lowest to highest.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	appErrors "github.com/agentspine/spine/internal/errors"
)

// Config is the root application configuration.
type Config struct {
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// GatewayConfig is the Control Plane HTTP/WebSocket listener.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // local, production
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// AgentConfig configures the session loop and its LLM providers.
type AgentConfig struct {
	DefaultProvider       string                    `mapstructure:"default_provider"`
	DefaultModel          string                    `mapstructure:"default_model"`
	Providers             []LLMProviderConfig       `mapstructure:"providers"`
	MaxTurns              int                       `mapstructure:"max_turns"`
	MaxToolRoundsPerInput int                       `mapstructure:"max_tool_rounds_per_input"`
	MaxSubagentDepth      int                       `mapstructure:"max_subagent_depth"`
	ContextWindowSize     int                       `mapstructure:"context_window_size"`
	Runtime               RuntimeConfig             `mapstructure:"runtime"`
	Guardrails            GuardrailsConfig          `mapstructure:"guardrails"`
}

// LLMProviderConfig describes one configured provider registration.
type LLMProviderConfig struct {
	Name     string   `mapstructure:"name"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
	Models   []string `mapstructure:"models"`
	Priority int      `mapstructure:"priority"`
}

// RuntimeConfig holds per-run timeouts and retry parameters shared by the
// session loop and the pipeline engine's retry policy.
type RuntimeConfig struct {
	ToolTimeout     time.Duration `mapstructure:"tool_timeout"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	SubAgentTimeout time.Duration `mapstructure:"sub_agent_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBaseWait   time.Duration `mapstructure:"retry_base_wait"`
}

// GuardrailsConfig configures context-usage warnings and loop detection.
type GuardrailsConfig struct {
	ContextWarnRatio    float64 `mapstructure:"context_warn_ratio"`
	LoopDetectWindow    int     `mapstructure:"loop_detect_window"`
	LoopDetectThreshold int     `mapstructure:"loop_detect_threshold"`
}

// PipelineConfig configures the DOT-graph execution engine.
type PipelineConfig struct {
	LogsRoot        string        `mapstructure:"logs_root"`
	DefaultMaxRetry int           `mapstructure:"default_max_retry"`
	RetryBaseWait   time.Duration `mapstructure:"retry_base_wait"`
	MaxParallel     int           `mapstructure:"max_parallel"`
}

// Load reads the layered configuration: defaults, then ~/.agentspine
// (global), then ./config.yaml or ./config/config.yaml (project-local,
// merged over the global layer), then AGENTSPINE_-prefixed environment
// variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(HomeDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, appErrors.NewConfigurationErrorWithCause("read global config", err)
		}
	}

	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err != nil {
			continue
		}
		local := viper.New()
		local.SetConfigFile(localPath)
		if err := local.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(local.AllSettings()); err != nil {
				return nil, appErrors.NewConfigurationErrorWithCause("merge local config", err)
			}
		}
		break
	}

	v.SetEnvPrefix("AGENTSPINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, appErrors.NewConfigurationErrorWithCause("unmarshal config", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8780)
	v.SetDefault("gateway.mode", "local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "agentspine.db")

	v.SetDefault("agent.max_turns", 50)
	v.SetDefault("agent.max_tool_rounds_per_input", 25)
	v.SetDefault("agent.max_subagent_depth", 2)
	v.SetDefault("agent.context_window_size", 128000)

	v.SetDefault("agent.runtime.tool_timeout", "60s")
	v.SetDefault("agent.runtime.run_timeout", "10m")
	v.SetDefault("agent.runtime.sub_agent_timeout", "3m")
	v.SetDefault("agent.runtime.max_retries", 3)
	v.SetDefault("agent.runtime.retry_base_wait", "2s")

	v.SetDefault("agent.guardrails.context_warn_ratio", 0.8)
	v.SetDefault("agent.guardrails.loop_detect_window", 6)
	v.SetDefault("agent.guardrails.loop_detect_threshold", 3)

	v.SetDefault("pipeline.logs_root", filepath.Join(HomeDir(), "logs", "pipeline"))
	v.SetDefault("pipeline.default_max_retry", 2)
	v.SetDefault("pipeline.retry_base_wait", "2s")
	v.SetDefault("pipeline.max_parallel", 4)
}
