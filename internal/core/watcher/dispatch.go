package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"dotdeploy/internal/core/config"
	coreerrors "dotdeploy/internal/core/errors"
	"dotdeploy/internal/core/ports"
	"dotdeploy/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const deployNotice = "[dotdeploy] Deploying..."

// DispatchRecord describes the most recent dispatch.
type DispatchRecord struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// ActionDispatcher runs the deployer synchronously and reports failures to
// the error display instead of the caller's control flow.
type ActionDispatcher struct {
	deployer ports.Deployer
	display  ports.ErrorDisplay
	notice   io.Writer
	logger   *slog.Logger

	mu   sync.Mutex
	last *DispatchRecord
}

// NewActionDispatcher wires the external collaborators. A nil notice writer
// means stdout; a nil display logs the error instead.
func NewActionDispatcher(deployer ports.Deployer, display ports.ErrorDisplay, notice io.Writer) (*ActionDispatcher, error) {
	if deployer == nil {
		return nil, os.ErrInvalid
	}
	if notice == nil {
		notice = os.Stdout
	}
	d := &ActionDispatcher{
		deployer: deployer,
		display:  display,
		notice:   notice,
		logger:   slog.Default(),
	}
	if d.display == nil {
		d.display = ports.ErrorDisplayFunc(func(err error) {
			d.logger.Error("deployment failed", "error", err)
		})
	}
	return d, nil
}

// Dispatch deploys cfg. The deploy runs on a context detached from ctx's
// cancellation so that a termination never interrupts it. The returned
// error has already been displayed.
func (d *ActionDispatcher) Dispatch(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(context.WithoutCancel(ctx), "dispatcher.Dispatch",
		trace.WithAttributes(attribute.String("dotdeploy.run_id", runID)))
	defer span.End()

	fmt.Fprintln(d.notice, deployNotice)

	started := time.Now()
	err := d.invoke(ctx, cfg)
	elapsed := time.Since(started)
	observability.DeployDuration.Observe(elapsed.Seconds())

	if err != nil {
		err = coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeDeploy, "deployment failed"),
			coreerrors.CtxRunID, runID,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "deployment failed")
		observability.DeploysTotal.WithLabelValues(observability.ResultFailure).Inc()
		d.record(DispatchRecord{RunID: runID, Started: started, Duration: elapsed, Err: err})
		d.display.DisplayError(err)
		return err
	}

	observability.DeploysTotal.WithLabelValues(observability.ResultSuccess).Inc()
	d.record(DispatchRecord{RunID: runID, Started: started, Duration: elapsed})
	d.logger.Debug("deployment finished", "run_id", runID, "duration", elapsed)
	return nil
}

// invoke turns a deployer panic into an error so a broken deploy cannot take
// the watch loop down with it.
func (d *ActionDispatcher) invoke(ctx context.Context, cfg *config.Config) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deployer panicked: %v", r)
		}
	}()
	return d.deployer.Deploy(ctx, cfg.Clone())
}

func (d *ActionDispatcher) record(rec DispatchRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = &rec
}

// LastDispatch returns the most recent dispatch, if any.
func (d *ActionDispatcher) LastDispatch() (DispatchRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return DispatchRecord{}, false
	}
	return *d.last, true
}

// SetLogger replaces the logger used for dispatch diagnostics.
func (d *ActionDispatcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}
