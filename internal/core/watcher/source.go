package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	coreerrors "dotdeploy/internal/core/errors"
	"dotdeploy/internal/shared/observability"
	"dotdeploy/internal/shared/util"

	"github.com/fsnotify/fsnotify"
)

// FSSource feeds the event loop from a recursive fsnotify subscription.
// Raw events are coalesced for one batch interval into a single
// FilesChanged, keeping first-arrival order.
type FSSource struct {
	fsWatcher *fsnotify.Watcher
	root      string
	batch     time.Duration
	skipDirs  []string
	logger    *slog.Logger

	out  chan<- LoopSignal
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
	closing   bool
	closeMu   sync.Mutex

	// sendMu orders flushes so batches leave in the order they were taken.
	sendMu    sync.Mutex
	pendingMu sync.Mutex
	pending   []string
	seen      map[string]struct{}
	timer     *time.Timer
}

// NewFSSource prepares a subscription of root. Directories in skipDirs are
// not registered; changes directly on them still produce events.
func NewFSSource(root string, batch time.Duration, skipDirs []string, logger *slog.Logger) (*FSSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeValidationError, "watch root is not a directory"),
			coreerrors.CtxPath, root,
		)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	normalizedRoot := util.NormalizePatternPath(root)
	skip := make([]string, 0, len(skipDirs))
	for _, dir := range skipDirs {
		if d := util.NormalizePatternPath(dir); d != "" && d != normalizedRoot {
			skip = append(skip, d)
		}
	}

	return &FSSource{
		fsWatcher: fsw,
		root:      root,
		batch:     batch,
		skipDirs:  skip,
		logger:    logger,
		done:      make(chan struct{}),
		seen:      make(map[string]struct{}),
	}, nil
}

// Start registers the tree under the root and begins forwarding signals to
// out. It fails if the root itself cannot be subscribed.
func (s *FSSource) Start(ctx context.Context, out chan<- LoopSignal) error {
	s.out = out
	if err := s.watchRecursive(s.root); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

func (s *FSSource) watchRecursive(root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Entries can vanish between readdir and lstat.
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if info.IsDir() {
			if s.shouldSkipDir(path) {
				return filepath.SkipDir
			}
			if err := s.fsWatcher.Add(path); err != nil {
				if path == root {
					return err
				}
				s.logger.Warn("failed to watch directory", "path", path, "error", err)
				return filepath.SkipDir
			}
		}

		return nil
	})
	observability.WatchedDirectories.Set(float64(len(s.fsWatcher.WatchList())))
	return err
}

func (s *FSSource) shouldSkipDir(path string) bool {
	normalized := util.NormalizePatternPath(path)
	for _, dir := range s.skipDirs {
		if normalized == dir {
			return true
		}
	}
	return false
}

func (s *FSSource) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return

		case event, ok := <-s.fsWatcher.Events:
			if !ok {
				s.subscriptionLost()
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op == fsnotify.Chmod {
				continue
			}

			s.scheduleChange(event.Name)

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() && !s.shouldSkipDir(event.Name) {
					if err := s.watchRecursive(event.Name); err != nil {
						s.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					} else {
						s.enqueueExistingFiles(event.Name)
					}
				}
			}

		case err, ok := <-s.fsWatcher.Errors:
			if !ok {
				s.subscriptionLost()
				return
			}
			s.send(RuntimeError{Err: coreerrors.Wrap(err, coreerrors.CodeWatcherRuntime, "file system subscription error")})
		}
	}
}

// subscriptionLost reports a closed fsnotify channel that was not caused by
// Close as a main-loop failure.
func (s *FSSource) subscriptionLost() {
	s.closeMu.Lock()
	closing := s.closing
	s.closeMu.Unlock()
	if closing {
		return
	}
	s.send(RuntimeError{Err: coreerrors.New(coreerrors.CodeMainLoop, "file system subscription closed unexpectedly")})
}

func (s *FSSource) scheduleChange(path string) {
	if s.batch <= 0 {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		s.send(FilesChanged{Batch: ChangeBatch{path}})
		return
	}

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if _, ok := s.seen[path]; ok {
		return
	}
	s.seen[path] = struct{}{}
	s.pending = append(s.pending, path)

	if s.timer == nil {
		s.timer = time.AfterFunc(s.batch, s.flushChanges)
	}
}

func (s *FSSource) flushChanges() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.pendingMu.Lock()
	paths := s.pending
	s.pending = nil
	s.seen = make(map[string]struct{})
	s.timer = nil
	s.pendingMu.Unlock()

	if len(paths) > 0 {
		s.send(FilesChanged{Batch: ChangeBatch(paths)})
	}
}

func (s *FSSource) send(sig LoopSignal) {
	select {
	case s.out <- sig:
	case <-s.done:
	}
}

func (s *FSSource) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && s.shouldSkipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		s.scheduleChange(path)
		return nil
	})
}

// Close stops forwarding and releases the subscription. Pending paths that
// were not flushed yet are dropped.
func (s *FSSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closeMu.Lock()
		s.closing = true
		s.closeMu.Unlock()

		close(s.done)

		s.pendingMu.Lock()
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.pendingMu.Unlock()

		err = s.fsWatcher.Close()
		s.wg.Wait()
	})
	return err
}

// NotifySignals cancels ctx through cancel, with the signal as cause, when one
// of sigs arrives. Cancellation is observed by the loop before any further
// batch, so batches already queued behind the signal are dropped. It stops
// listening once ctx ends or the returned stop function is called.
func NotifySignals(ctx context.Context, cancel context.CancelCauseFunc, sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	if len(sigs) > 0 {
		signal.Notify(ch, sigs...)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-ch:
			cancel(errors.New("received signal " + sig.String()))
		case <-done:
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
			wg.Wait()
		})
	}
}
