package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DOTDEPLOY_[SECTION]_[KEY] (e.g., DOTDEPLOY_WATCH_DEBOUNCE).
func ApplyEnvOverrides(cfg *Config) {
	// Watch
	setEnvString(&cfg.Watch.Root, "DOTDEPLOY_WATCH_ROOT")
	setEnvDuration(&cfg.Watch.Debounce, "DOTDEPLOY_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.Batch, "DOTDEPLOY_WATCH_BATCH")

	// Cache
	setEnvString(&cfg.Cache.Dir, "DOTDEPLOY_CACHE_DIR")
	setEnvString(&cfg.Cache.File, "DOTDEPLOY_CACHE_FILE")

	setEnvString(&cfg.Log.Level, "DOTDEPLOY_LOG_LEVEL")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "DOTDEPLOY_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "DOTDEPLOY_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DOTDEPLOY_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "DOTDEPLOY_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
