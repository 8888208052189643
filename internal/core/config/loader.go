package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalizeFiles(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = currentConfigFormat
	}

	if strings.TrimSpace(cfg.Watch.Root) == "" {
		cfg.Watch.Root = "."
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Watch.Batch == 0 {
		cfg.Watch.Batch = DefaultBatch
	}

	if strings.TrimSpace(cfg.Cache.Dir) == "" {
		cfg.Cache.Dir = DefaultCacheDir
	}
	if strings.TrimSpace(cfg.Cache.File) == "" {
		cfg.Cache.File = DefaultCacheFile
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = DefaultMetricsAddr
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = DefaultServiceName
	}
}

func normalizeFiles(cfg *Config) {
	if len(cfg.Files) == 0 {
		return
	}
	normalized := make(map[string]string, len(cfg.Files))
	for source, target := range cfg.Files {
		normalized[strings.TrimSpace(source)] = strings.TrimSpace(target)
	}
	cfg.Files = normalized
}
