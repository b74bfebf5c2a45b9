// Package config resolves the runtime's configuration from an optional
// YAML file overlaid with environment variables. The core components never
// read the environment themselves; everything they need arrives through a
// Config at bootstrap.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentmap/agentmap-core/graph"
	"github.com/agentmap/agentmap-core/policy"
	"github.com/agentmap/agentmap-core/registry"
)

// ProviderConfig carries one optional provider's credentials. The core
// only hands these to availability validators; it never opens a
// connection itself.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ServiceConfig is the YAML form of one service declaration.
type ServiceConfig struct {
	Name       string   `yaml:"name"`
	ClassPath  string   `yaml:"class_path"`
	Requires   []string `yaml:"requires"`
	Implements []string `yaml:"implements"`
}

// PolicyConfig is the YAML form of the success policy.
type PolicyConfig struct {
	Type          string   `yaml:"type"`
	CriticalNodes []string `yaml:"critical_nodes"`
	CustomFunc    string   `yaml:"custom_func"`
}

// RetryConfig is the YAML form of the node-execution retry policy.
// MaxRetries of 0 disables retries entirely.
type RetryConfig struct {
	MaxRetries      int      `yaml:"max_retries"`
	Backoff         string   `yaml:"backoff"` // fixed | exponential | linear
	RetryableErrors []string `yaml:"retryable_errors"`
}

// Config is the resolved runtime configuration.
type Config struct {
	CacheDir        string                    `yaml:"cache_dir"`
	CustomAgentsDir string                    `yaml:"custom_agents_dir"`
	LogLevel        string                    `yaml:"log_level"`
	HostExtensions  bool                      `yaml:"host_extensions"`
	LLM             map[string]ProviderConfig `yaml:"llm"`
	Storage         map[string]ProviderConfig `yaml:"storage"`
	Services        []ServiceConfig           `yaml:"services"`
	Policy          PolicyConfig              `yaml:"policy"`
	Retry           RetryConfig               `yaml:"retry"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = "."
	}
	return Config{
		CacheDir: filepath.Join(cacheRoot, "agentmap"),
		LogLevel: "info",
		Policy:   PolicyConfig{Type: string(policy.AllNodes)},
	}
}

// LoadFile parses a YAML config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the full configuration: defaults, then the YAML file at
// path if it exists, then environment overrides. An absent file is fine; a
// present-but-malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadFile(path)
			if err != nil {
				return cfg, err
			}
			cfg = loaded
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv resolves configuration from the environment alone.
func FromEnv() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AGENTMAP_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("AGENTMAP_CUSTOM_AGENTS_DIR"); v != "" {
		c.CustomAgentsDir = v
	}
	if v := os.Getenv("AGENTMAP_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("AGENTMAP_HOST_EXTENSIONS"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.HostExtensions = enabled
		}
	}
	c.applyProviderEnv("AGENTMAP_LLM_", &c.LLM)
	c.applyProviderEnv("AGENTMAP_STORAGE_", &c.Storage)
}

// applyProviderEnv picks up AGENTMAP_LLM_<PROVIDER>_API_KEY-style
// variables, so credentials never have to live in the config file.
func (c *Config) applyProviderEnv(prefix string, providers *map[string]ProviderConfig) {
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, prefix) || value == "" {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		provider, field, ok := strings.Cut(rest, "_")
		if !ok || provider == "" {
			continue
		}
		if *providers == nil {
			*providers = make(map[string]ProviderConfig)
		}
		name := strings.ToLower(provider)
		pc := (*providers)[name]
		switch field {
		case "API_KEY":
			pc.APIKey = value
		case "BASE_URL":
			pc.BaseURL = value
		case "MODEL":
			pc.Model = value
		default:
			continue
		}
		(*providers)[name] = pc
	}
}

// Declarations converts the configured services into the declaration
// registry's form.
func (c Config) Declarations() []registry.ServiceDeclaration {
	decls := make([]registry.ServiceDeclaration, 0, len(c.Services))
	for _, svc := range c.Services {
		decl := registry.ServiceDeclaration{
			ServiceName:          svc.Name,
			ClassPath:            svc.ClassPath,
			RequiredDependencies: make(map[string]bool, len(svc.Requires)),
			Implements:           make(map[string]bool, len(svc.Implements)),
		}
		for _, dep := range svc.Requires {
			decl.RequiredDependencies[dep] = true
		}
		for _, protocol := range svc.Implements {
			decl.Implements[protocol] = true
		}
		decls = append(decls, decl)
	}
	return decls
}

// SuccessPolicy converts the configured policy into the evaluator's form.
func (c Config) SuccessPolicy() policy.Config {
	return policy.Config{
		Type:          policy.Type(c.Policy.Type),
		CriticalNodes: c.Policy.CriticalNodes,
		CustomFunc:    c.Policy.CustomFunc,
	}
}

// NodeRetryPolicy converts the configured retry settings into the graph
// package's form, or nil when retries are disabled.
func (c Config) NodeRetryPolicy() *graph.RetryPolicy {
	if c.Retry.MaxRetries <= 0 {
		return nil
	}
	strategy := graph.FixedBackoff
	switch c.Retry.Backoff {
	case "exponential":
		strategy = graph.ExponentialBackoff
	case "linear":
		strategy = graph.LinearBackoff
	}
	return &graph.RetryPolicy{
		MaxRetries:      c.Retry.MaxRetries,
		BackoffStrategy: strategy,
		RetryableErrors: c.Retry.RetryableErrors,
	}
}

// BundleDir is where bundle JSON artifacts live under the cache directory.
func (c Config) BundleDir() string {
	return filepath.Join(c.CacheDir, "bundles")
}

// RegistryPath is the bundle registry's JSON index file.
func (c Config) RegistryPath() string {
	return filepath.Join(c.CacheDir, "graph_registry.json")
}

// AvailabilityCachePath is the availability cache's JSON file.
func (c Config) AvailabilityCachePath() string {
	return filepath.Join(c.CacheDir, "availability_cache.json")
}

// InteractionStorePath is the interaction handler's JSON store.
func (c Config) InteractionStorePath() string {
	return filepath.Join(c.CacheDir, "interactions.json")
}
