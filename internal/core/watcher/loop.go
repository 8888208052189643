package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"dotdeploy/internal/core/config"
	coreerrors "dotdeploy/internal/core/errors"
	"dotdeploy/internal/shared/observability"
	"dotdeploy/internal/shared/util"
)

type LoopState int32

const (
	StateWatching LoopState = iota
	StateDraining
	StateTerminated
)

func (s LoopState) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("LoopState(%d)", int32(s))
	}
}

const (
	signalBuffer      = 64
	errorLogInterval  = time.Second
	errorLogBurst     = 5
	defaultTermReason = "context canceled"
)

// EventLoop turns loop signals into at most one deployment per debounce
// window. Batches are processed one at a time in arrival order.
type EventLoop struct {
	cfg        *config.Config
	filter     *ExclusionFilter
	debouncer  *Debouncer
	dispatcher *ActionDispatcher

	logger     *slog.Logger
	now        func() time.Time
	errLimiter *util.Limiter
	osSignals  []os.Signal

	state atomic.Int32
}

type Option func(*EventLoop)

func WithLogger(logger *slog.Logger) Option {
	return func(l *EventLoop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces time.Now for debounce decisions.
func WithClock(now func() time.Time) Option {
	return func(l *EventLoop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithErrorLimiter replaces the limiter throttling watcher error logs.
func WithErrorLimiter(limiter *util.Limiter) Option {
	return func(l *EventLoop) {
		if limiter != nil {
			l.errLimiter = limiter
		}
	}
}

// WithSignals sets the OS signals that terminate Watch.
func WithSignals(sigs ...os.Signal) Option {
	return func(l *EventLoop) {
		l.osSignals = sigs
	}
}

// NewEventLoop installs the exclusion filter for cfg's resolved paths. A bad
// pattern fails here, before anything is watched.
func NewEventLoop(cfg *config.Config, dispatcher *ActionDispatcher, opts ...Option) (*EventLoop, error) {
	if cfg == nil || dispatcher == nil {
		return nil, os.ErrInvalid
	}

	filter, err := NewExclusionFilter(cfg.Watch.Root, cfg.Cache.Dir, cfg.Cache.File)
	if err != nil {
		return nil, err
	}

	l := &EventLoop{
		cfg:        cfg,
		filter:     filter,
		debouncer:  NewDebouncer(cfg.Watch.Debounce),
		dispatcher: dispatcher,
		logger:     slog.Default(),
		now:        time.Now,
		errLimiter: util.NewLimiter(errorLogInterval, errorLogBurst),
		osSignals:  []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(l)
	}
	dispatcher.SetLogger(l.logger)
	return l, nil
}

func (l *EventLoop) State() LoopState {
	return LoopState(l.state.Load())
}

func (l *EventLoop) Filter() *ExclusionFilter { return l.filter }

func (l *EventLoop) Debouncer() *Debouncer { return l.debouncer }

func (l *EventLoop) setState(s LoopState) {
	l.state.Store(int32(s))
}

// Watch subscribes to the watch root and the OS termination signals and runs
// the loop until one of them, or ctx, ends it. Failing to subscribe is a
// main-loop error.
func (l *EventLoop) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	signals := make(chan LoopSignal, signalBuffer)

	source, err := NewFSSource(l.cfg.Watch.Root, l.cfg.Watch.Batch, l.skipDirs(), l.logger)
	if err != nil {
		return mainLoopError(err, "create file system subscription")
	}
	defer source.Close()

	if err := source.Start(ctx, signals); err != nil {
		return mainLoopError(err, "subscribe to watch root")
	}

	stop := NotifySignals(ctx, cancel, l.osSignals...)
	defer stop()

	l.logger.Info("watching for changes", "root", l.cfg.Watch.Root, "debounce", l.debouncer.Window())
	return l.Run(ctx, signals)
}

func (l *EventLoop) skipDirs() []string {
	return []string{
		l.cfg.Cache.Dir,
		util.NormalizePatternPath(l.cfg.Watch.Root) + "/.git",
	}
}

// Run consumes signals until termination. Termination, whether delivered as
// a Terminate signal or through ctx, wins over any batch not yet drained.
// A deploy already in progress always runs to completion.
func (l *EventLoop) Run(ctx context.Context, signals <-chan LoopSignal) error {
	l.setState(StateWatching)

	for {
		if ctx.Err() != nil {
			l.terminate(contextReason(ctx))
			return nil
		}

		select {
		case <-ctx.Done():
			l.terminate(contextReason(ctx))
			return nil

		case sig, ok := <-signals:
			if !ok {
				l.setState(StateTerminated)
				return coreerrors.New(coreerrors.CodeMainLoop, "event source closed without termination")
			}

			switch s := sig.(type) {
			case Terminate:
				l.terminate(s.Reason)
				return nil
			case RuntimeError:
				if coreerrors.IsCode(s.Err, coreerrors.CodeMainLoop) {
					l.setState(StateTerminated)
					return s.Err
				}
				l.reportRuntimeError(s.Err)
			case FilesChanged:
				if ctx.Err() != nil {
					l.terminate(contextReason(ctx))
					return nil
				}
				l.drain(ctx, s.Batch)
			default:
				l.logger.Warn("ignoring unknown loop signal", "type", fmt.Sprintf("%T", sig))
			}
		}
	}
}

func (l *EventLoop) drain(ctx context.Context, batch ChangeBatch) {
	l.setState(StateDraining)
	defer l.setState(StateWatching)

	l.logger.Debug("changes detected in watched files", "count", len(batch), "paths", []string(batch))

	if !l.filter.IsRelevant(batch) {
		observability.BatchesTotal.WithLabelValues(observability.OutcomeIrrelevant).Inc()
		return
	}

	if !l.debouncer.TryAdmit(l.now()) {
		observability.BatchesTotal.WithLabelValues(observability.OutcomeDebounced).Inc()
		l.logger.Debug("skipping deployment due to debounce (too soon after previous deployment)")
		return
	}
	observability.BatchesTotal.WithLabelValues(observability.OutcomeAdmitted).Inc()

	if err := l.dispatcher.Dispatch(ctx, l.cfg); err != nil {
		l.logger.Debug("continuing to watch after failed deployment", "error", err)
	}
}

func (l *EventLoop) terminate(reason string) {
	l.setState(StateTerminated)
	l.logger.Info("stopping watch", "reason", reason)
}

func (l *EventLoop) reportRuntimeError(err error) {
	observability.WatcherErrorsTotal.Inc()
	if !l.errLimiter.Allow(l.now()) {
		observability.WatcherErrorLogsSuppressedTotal.Inc()
		return
	}
	if n := l.errLimiter.TakeSuppressed(); n > 0 {
		l.logger.Error("watcher error", "error", err, "suppressed", n)
		return
	}
	l.logger.Error("watcher error", "error", err)
}

func contextReason(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil {
		return cause.Error()
	}
	return defaultTermReason
}

func mainLoopError(err error, operation string) error {
	return coreerrors.AddContext(
		coreerrors.Wrap(err, coreerrors.CodeMainLoop, "watch loop failed"),
		coreerrors.CtxOperation, operation,
	)
}
