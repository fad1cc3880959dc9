// Copyright 2025 FinSight AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines the service configuration and its YAML loader.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration document.
type Config struct {
	Server     ServerConfig      `yaml:"server" json:"server"`
	Logging    LoggingConfig     `yaml:"logging" json:"logging"`
	LLM        LLMConfig         `yaml:"llm" json:"llm"`
	MCP        []MCPServerConfig `yaml:"mcp" json:"mcp,omitempty"`
	Session    SessionConfig     `yaml:"session" json:"session"`
	Classifier ClassifierConfig  `yaml:"classifier" json:"classifier"`
	Parser     ParserConfig      `yaml:"parser" json:"parser"`
	Pipelines  PipelinesConfig   `yaml:"pipelines" json:"pipelines"`
	Metrics    MetricsConfig     `yaml:"metrics" json:"metrics"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Address returns the listen address in host:port form.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text or json
}

// LLMConfig configures the chat-completions provider used by the explainer
// subagent and the parser fallback.
type LLMConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	APIKey      string  `yaml:"api_key" json:"api_key,omitempty"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // seconds
	MaxRetries  int     `yaml:"max_retries" json:"max_retries"`
	RetryDelay  int     `yaml:"retry_delay" json:"retry_delay"` // seconds
}

// MCPServerConfig configures one external MCP tool server.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // stdio or http
	URL       string            `yaml:"url" json:"url,omitempty"`
	Command   string            `yaml:"command" json:"command,omitempty"`
	Args      []string          `yaml:"args" json:"args,omitempty"`
	Env       map[string]string `yaml:"env" json:"env,omitempty"`
}

// SessionConfig configures the session parameter store.
type SessionConfig struct {
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
	Backend string        `yaml:"backend" json:"backend"` // memory or sqlite
	Path    string        `yaml:"path" json:"path,omitempty"`
}

// ClassifierConfig carries the confidence tuning constants. The values are
// empirical defaults, not normative behavior, so all of them are overridable.
type ClassifierConfig struct {
	BaseConfidence      float64 `yaml:"base_confidence" json:"base_confidence"`
	PerMatchBoost       float64 `yaml:"per_match_boost" json:"per_match_boost"`
	MaxMatchBoosts      int     `yaml:"max_match_boosts" json:"max_match_boosts"`
	ClearWinnerBoost    float64 `yaml:"clear_winner_boost" json:"clear_winner_boost"`
	RoleMatchBoost      float64 `yaml:"role_match_boost" json:"role_match_boost"`
	ConfidenceCap       float64 `yaml:"confidence_cap" json:"confidence_cap"`
	HeuristicConfidence float64 `yaml:"heuristic_confidence" json:"heuristic_confidence"`
}

// ParserConfig configures the portfolio query parser.
type ParserConfig struct {
	MinRuleConfidence float64 `yaml:"min_rule_confidence" json:"min_rule_confidence"`
	AllowLLM          bool    `yaml:"allow_llm" json:"allow_llm"`
}

// PipelinesConfig carries pipeline-wide execution settings.
type PipelinesConfig struct {
	DefaultStepTimeout time.Duration `yaml:"default_step_timeout" json:"default_step_timeout"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Port    int  `yaml:"port" json:"port"`
}

// SetDefaults fills unset fields with working defaults.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.RetryDelay == 0 {
		c.LLM.RetryDelay = 2
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Classifier.BaseConfidence == 0 {
		c.Classifier.BaseConfidence = 0.5
	}
	if c.Classifier.PerMatchBoost == 0 {
		c.Classifier.PerMatchBoost = 0.15
	}
	if c.Classifier.MaxMatchBoosts == 0 {
		c.Classifier.MaxMatchBoosts = 3
	}
	if c.Classifier.ClearWinnerBoost == 0 {
		c.Classifier.ClearWinnerBoost = 0.1
	}
	if c.Classifier.RoleMatchBoost == 0 {
		c.Classifier.RoleMatchBoost = 0.1
	}
	if c.Classifier.ConfidenceCap == 0 {
		c.Classifier.ConfidenceCap = 0.98
	}
	if c.Classifier.HeuristicConfidence == 0 {
		c.Classifier.HeuristicConfidence = 0.3
	}
	if c.Parser.MinRuleConfidence == 0 {
		c.Parser.MinRuleConfidence = 0.7
	}
	if c.Pipelines.DefaultStepTimeout == 0 {
		c.Pipelines.DefaultStepTimeout = 30 * time.Second
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
}

// Validate checks the configuration for mistakes a reload would not fix.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	switch c.Session.Backend {
	case "memory":
	case "sqlite":
		if c.Session.Path == "" {
			return fmt.Errorf("session: sqlite backend requires a path")
		}
	default:
		return fmt.Errorf("session: unknown backend %q", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session: ttl must not be negative")
	}
	for i, srv := range c.MCP {
		if srv.Name == "" {
			return fmt.Errorf("mcp[%d]: name is required", i)
		}
		switch srv.Transport {
		case "stdio":
			if srv.Command == "" {
				return fmt.Errorf("mcp[%d]: stdio transport requires a command", i)
			}
		case "http", "streamable-http", "":
			if srv.URL == "" {
				return fmt.Errorf("mcp[%d]: http transport requires a url", i)
			}
		default:
			return fmt.Errorf("mcp[%d]: unknown transport %q", i, srv.Transport)
		}
	}
	if c.Classifier.ConfidenceCap <= 0 || c.Classifier.ConfidenceCap > 1 {
		return fmt.Errorf("classifier: confidence_cap must be in (0, 1]")
	}
	if c.Parser.MinRuleConfidence < 0 || c.Parser.MinRuleConfidence > 1 {
		return fmt.Errorf("parser: min_rule_confidence must be in [0, 1]")
	}
	if _, err := parseLevelProbe(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// parseLevelProbe mirrors logger.ParseLevel without importing it, keeping
// config free of intra-module dependencies.
func parseLevelProbe(level string) (string, error) {
	switch level {
	case "debug", "info", "warn", "warning", "error", "":
		return level, nil
	default:
		return "", fmt.Errorf("unknown log level %q", level)
	}
}
