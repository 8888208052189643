package config

import (
	"time"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultBatch        = 50 * time.Millisecond
	DefaultCacheDir     = ".dotdeploy/cache"
	DefaultCacheFile    = ".dotdeploy/cache.toml"
	DefaultMetricsAddr  = "127.0.0.1:9464"
	DefaultServiceName  = "dotdeploy"
	DefaultLogLevel     = "info"
	DefaultConfigFile   = "dotdeploy.toml"
	currentConfigFormat = 1
)

type Config struct {
	Version       int               `toml:"version"`
	Watch         Watch             `toml:"watch"`
	Cache         Cache             `toml:"cache"`
	Files         map[string]string `toml:"files"`
	Log           Log               `toml:"log"`
	Observability Observability     `toml:"observability"`
}

type Watch struct {
	Root     string        `toml:"root"`
	Debounce time.Duration `toml:"debounce"`
	// Batch is how long raw notifications are coalesced into one change batch.
	Batch time.Duration `toml:"batch"`
}

type Cache struct {
	Dir  string `toml:"dir"`
	File string `toml:"file"`
}

type Log struct {
	Level string `toml:"level"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// DefaultConfig returns a configuration with every default applied and no
// file mappings.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Clone returns a deep copy so callers can hand the config to a deploy
// without sharing the files map.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Files != nil {
		out.Files = make(map[string]string, len(c.Files))
		for k, v := range c.Files {
			out.Files[k] = v
		}
	}
	return &out
}
