package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateWatch(cfg); err != nil {
		return err
	}
	if err := validateCache(cfg); err != nil {
		return err
	}
	if err := validateFiles(cfg); err != nil {
		return err
	}
	if err := validateLog(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != currentConfigFormat {
		return fmt.Errorf("unsupported config version %d; supported version is %d", cfg.Version, currentConfigFormat)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.Batch < 0 {
		return fmt.Errorf("watch.batch must not be negative, got %s", cfg.Watch.Batch)
	}
	return nil
}

func validateCache(cfg *Config) error {
	dir := strings.TrimSpace(cfg.Cache.Dir)
	file := strings.TrimSpace(cfg.Cache.File)
	if dir == "" {
		return fmt.Errorf("cache.dir must not be empty")
	}
	if file == "" {
		return fmt.Errorf("cache.file must not be empty")
	}
	if filepath.Clean(dir) == filepath.Clean(file) {
		return fmt.Errorf("cache.file must differ from cache.dir (%q)", dir)
	}
	return nil
}

func validateFiles(cfg *Config) error {
	for source, target := range cfg.Files {
		if source == "" {
			return fmt.Errorf("files: source must not be empty (target %q)", target)
		}
		if target == "" {
			return fmt.Errorf("files.%q: target must not be empty", source)
		}
		if filepath.IsAbs(source) {
			return fmt.Errorf("files.%q: source must be relative to watch.root", source)
		}
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Observability.Address) == "" {
		return fmt.Errorf("observability.address must not be empty when observability is enabled")
	}
	return nil
}
