package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Runtime     RuntimeConfig             `json:"runtime"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	OperatorToken string `json:"operator_token"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// RuntimeConfig holds the settings that feed prompt assembly and model
// routing. It is re-read on Reload, so handlers always see current values.
type RuntimeConfig struct {
	Identity       string            `json:"identity"`
	MemoryBulletin string            `json:"memory_bulletin"`
	Capabilities   Capabilities      `json:"capabilities"`
	Provider       string            `json:"provider"`
	Routing        map[string]string `json:"routing"`
	FileRoot       string            `json:"file_root"`
}

type Capabilities struct {
	Browser   bool `json:"browser"`
	WebSearch bool `json:"web_search"`
	Opencode  bool `json:"opencode"`
}

// ProcessType selects a routing table entry.
type ProcessType string

const (
	ProcessBranch    ProcessType = "branch"
	ProcessWorker    ProcessType = "worker"
	ProcessCompactor ProcessType = "compactor"
	ProcessIngest    ProcessType = "ingest"
)

// ResolveModel returns the model routed for the process type, falling back
// to the active provider's default model.
func (c *Config) ResolveModel(pt ProcessType) string {
	if m, ok := c.Runtime.Routing[string(pt)]; ok && m != "" {
		return m
	}
	return c.Providers[c.Runtime.Provider].Model
}

// ActiveProvider returns the configured provider name and its settings.
func (c *Config) ActiveProvider() (string, ProviderConfig, error) {
	name := c.Runtime.Provider
	provCfg, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("provider %s not configured", name)
	}
	return name, provCfg, nil
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}
	if cfg.Runtime.Provider != "" {
		if _, ok := cfg.Providers[cfg.Runtime.Provider]; !ok {
			return nil, fmt.Errorf("runtime provider %s has no providers entry", cfg.Runtime.Provider)
		}
	}

	return &cfg, nil
}

// Live serves the current config snapshot and re-reads the backing file on
// Reload. Snapshots are immutable; callers must not mutate them.
type Live struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewLive loads the file once and keeps the path for later reloads.
func NewLive(path string) (*Live, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	l := &Live{path: path}
	l.cur.Store(cfg)
	return l, nil
}

// NewLiveFromConfig wraps an already-built config, mainly for tests.
func NewLiveFromConfig(cfg *Config) *Live {
	l := &Live{}
	l.cur.Store(cfg)
	return l
}

// Snapshot returns the current configuration.
func (l *Live) Snapshot() *Config {
	return l.cur.Load()
}

// Reload re-reads the config file and swaps the snapshot. On failure the
// previous snapshot stays in place.
func (l *Live) Reload() error {
	if l.path == "" {
		return fmt.Errorf("config was not loaded from a file")
	}
	cfg, err := Load(l.path)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	l.cur.Store(cfg)
	return nil
}
