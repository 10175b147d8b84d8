// Copyright 2025 The A2A Authors
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

// Package config loads the orchestrator configuration from a YAML file.
// References of the form ${VAR} are replaced with environment variable values before parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Router   RouterConfig   `yaml:"router"`
	Shopping ShoppingConfig `yaml:"shopping"`
	Network  NetworkConfig  `yaml:"network"`
	Agents   AgentsConfig   `yaml:"agents"`
}

// LoggingConfig selects the log handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects the database of the orchestrator tasks and the wishlists.
// Driver is one of "memory", "sqlite" or "mysql".
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LLMConfig selects the text completion provider. Provider is one of "none", "openai" or "anthropic".
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// SearchConfig selects the product search backend. Backend is one of "static" or "searxng".
type SearchConfig struct {
	Backend   string   `yaml:"backend"`
	URL       string   `yaml:"url"`
	CacheSize int      `yaml:"cache_size"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RouterConfig configures the orchestrator agent. Strategy is one of "keyword" or "llm".
type RouterConfig struct {
	Strategy          string `yaml:"strategy"`
	MaxHops           int    `yaml:"max_hops"`
	ClassifierHandoff bool   `yaml:"classifier_handoff"`
}

// ShoppingConfig configures the shopping agent.
type ShoppingConfig struct {
	RequiredAttributes []string `yaml:"required_attributes"`
	SearchLimit        int      `yaml:"search_limit"`
}

// NetworkConfig is the policy for requests sent to remote agents.
type NetworkConfig struct {
	Retries    int      `yaml:"retries"`
	RetryDelay Duration `yaml:"retry_delay"`
	Timeout    Duration `yaml:"timeout"`
	// StreamIdleTimeout bounds the silence between two frames of a remote stream.
	StreamIdleTimeout Duration `yaml:"stream_idle_timeout"`
}

// AgentsConfig holds the endpoints of every agent.
type AgentsConfig struct {
	Orchestrator AgentEndpoint `yaml:"orchestrator"`
	Classifier   AgentEndpoint `yaml:"classifier"`
	Shopping     AgentEndpoint `yaml:"shopping"`
}

// AgentEndpoint describes where an agent listens and how the orchestrator reaches it.
// Remote agents are called over the network at URL, others are invoked in-process.
type AgentEndpoint struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	URL    string `yaml:"url"`
	Remote bool   `yaml:"remote"`
}

// Addr returns the listen address of the agent.
func (e AgentEndpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Duration is a [time.Duration] written as a string like "1s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements [yaml.Unmarshaler].
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements [yaml.Marshaler].
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a [time.Duration].
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "color"},
		Store:    StoreConfig{Driver: "memory"},
		LLM:      LLMConfig{Provider: "none"},
		Search:   SearchConfig{Backend: "static", CacheSize: 256, CacheTTL: Duration(5 * time.Minute)},
		Router:   RouterConfig{Strategy: "keyword", MaxHops: 4},
		Shopping: ShoppingConfig{RequiredAttributes: []string{"product", "budget"}, SearchLimit: 5},
		Network:  NetworkConfig{Retries: 2, RetryDelay: Duration(time.Second), Timeout: Duration(10 * time.Second), StreamIdleTimeout: Duration(time.Minute)},
		Agents: AgentsConfig{
			Orchestrator: AgentEndpoint{Host: "localhost", Port: 8000},
			Classifier:   AgentEndpoint{Host: "localhost", Port: 8001},
			Shopping:     AgentEndpoint{Host: "localhost", Port: 8002},
		},
	}
}

// Load reads the file at path on top of [Default]. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.fillAgentURLs()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) fillAgentURLs() {
	for _, e := range []*AgentEndpoint{&c.Agents.Orchestrator, &c.Agents.Classifier, &c.Agents.Shopping} {
		if e.URL == "" {
			e.URL = fmt.Sprintf("http://%s:%d", e.Host, e.Port)
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"memory", "sqlite", "mysql"}, c.Store.Driver) {
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
	}
	if !slices.Contains([]string{"none", "openai", "anthropic"}, c.LLM.Provider) {
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if !slices.Contains([]string{"static", "searxng"}, c.Search.Backend) {
		return fmt.Errorf("search.backend %q is not supported", c.Search.Backend)
	}
	if c.Search.Backend == "searxng" && c.Search.URL == "" {
		return fmt.Errorf("search.url is required for the searxng backend")
	}
	if !slices.Contains([]string{"keyword", "llm"}, c.Router.Strategy) {
		return fmt.Errorf("router.strategy %q is not supported", c.Router.Strategy)
	}
	if c.Router.Strategy == "llm" && c.LLM.Provider == "none" {
		return fmt.Errorf("router.strategy llm requires an llm.provider")
	}
	if c.Router.MaxHops < 1 {
		return fmt.Errorf("router.max_hops must be positive, got %d", c.Router.MaxHops)
	}
	if len(c.Shopping.RequiredAttributes) == 0 {
		return fmt.Errorf("shopping.required_attributes must not be empty")
	}
	if c.Network.Retries < 1 {
		return fmt.Errorf("network.retries must be positive, got %d", c.Network.Retries)
	}
	for name, e := range map[string]AgentEndpoint{
		"orchestrator": c.Agents.Orchestrator,
		"classifier":   c.Agents.Classifier,
		"shopping":     c.Agents.Shopping,
	} {
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("agents.%s.port %d is out of range", name, e.Port)
		}
	}
	return nil
}
