package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dotdeploy/internal/core/config"
	"dotdeploy/internal/core/ports"
	"dotdeploy/internal/core/watcher"
	"dotdeploy/internal/deploy"
	"dotdeploy/internal/shared/observability"
)

const shutdownTimeout = 5 * time.Second

func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr, nil)
}

// run is Run with injectable streams and deployer. A nil deployer means the
// file deployer.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, deployer ports.Deployer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "dotdeploy v%s\n", versionString)
		return 0
	}

	configureLogging(stderr, opts.verbose, "")

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if !opts.verbose {
		configureLogging(stderr, false, cfg.Log.Level)
	}
	slog.Debug("configuration loaded", "path", cfgPath)

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	if err := cfg.Resolve(cwd); err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	if deployer == nil {
		deployer = deploy.NewFileDeployer(slog.Default())
	}
	display := NewErrorDisplay(stderr)
	dispatcher, err := watcher.NewActionDispatcher(deployer, display, stdout)
	if err != nil {
		slog.Error("failed to initialize dispatcher", "error", err)
		return 1
	}

	// The exclusion filter is built before anything is deployed.
	loop, err := watcher.NewEventLoop(cfg, dispatcher, watcher.WithLogger(slog.Default()))
	if err != nil {
		display.DisplayError(err)
		return 1
	}

	// Initial deploy
	if err := dispatcher.Dispatch(ctx, cfg); err != nil && opts.once {
		return 1
	}
	if opts.once {
		return 0
	}

	if cfg.Observability.Enabled {
		server := NewObservabilityServer(cfg.Observability.Address, NewHealthService(loop, dispatcher))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = server.Stop(sctx)
		}()
	}

	if err := loop.Watch(ctx); err != nil {
		display.DisplayError(err)
		return 1
	}
	return 0
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidate := filepath.Join(cwd, config.DefaultConfigFile)
	cfg, err := config.Load(candidate)
	if err == nil {
		return cfg, candidate, nil
	}
	if !os.IsNotExist(err) {
		return nil, "", err
	}

	// No config file: defaults plus environment.
	cfg = config.DefaultConfig()
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	switch len(opts.args) {
	case 0:
	case 1:
		cfg.Watch.Root = opts.args[0]
	default:
		return fmt.Errorf("at most one watch root may be given, got %d", len(opts.args))
	}
	return nil
}

func configureLogging(out io.Writer, verbose bool, level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
