package ports

import (
	"context"

	"dotdeploy/internal/core/config"
)

// Deployer performs the actual file synchronization for a resolved config.
// The watch loop never inspects what it does beyond the returned error.
type Deployer interface {
	Deploy(ctx context.Context, cfg *config.Config) error
}

// DeployerFunc adapts a plain function to Deployer.
type DeployerFunc func(ctx context.Context, cfg *config.Config) error

func (f DeployerFunc) Deploy(ctx context.Context, cfg *config.Config) error {
	return f(ctx, cfg)
}

// ErrorDisplay renders an error for the user. Its outcome is not consulted.
type ErrorDisplay interface {
	DisplayError(err error)
}

// ErrorDisplayFunc adapts a plain function to ErrorDisplay.
type ErrorDisplayFunc func(err error)

func (f ErrorDisplayFunc) DisplayError(err error) {
	f(err)
}
