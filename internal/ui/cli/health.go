package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dotdeploy/internal/core/watcher"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type loopStater interface {
	State() watcher.LoopState
}

// loopInspector is implemented by *watcher.EventLoop.
type loopInspector interface {
	Filter() *watcher.ExclusionFilter
	Debouncer() *watcher.Debouncer
}

type dispatchRecorder interface {
	LastDispatch() (watcher.DispatchRecord, bool)
}

// HealthService reports the watch loop state and the last deployment.
type HealthService struct {
	loop       loopStater
	dispatcher dispatchRecorder
}

func NewHealthService(loop loopStater, dispatcher dispatchRecorder) *HealthService {
	return &HealthService{loop: loop, dispatcher: dispatcher}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	if s.loop == nil {
		status.Status = "down"
		status.Components["watch_loop"] = "missing"
	} else {
		state := s.loop.State()
		status.Components["watch_loop"] = state.String()
		if state == watcher.StateTerminated {
			status.Status = "down"
		}
		if inspector, ok := s.loop.(loopInspector); ok {
			status.Components["debounce"] = describeDebounce(inspector.Debouncer().Snapshot())
			status.Components["exclusions"] = describeRules(inspector.Filter().Rules())
		}
	}

	if s.dispatcher == nil {
		status.Components["last_deploy"] = "unknown"
		return status
	}
	rec, ok := s.dispatcher.LastDispatch()
	switch {
	case !ok:
		status.Components["last_deploy"] = "none"
	case rec.Err != nil:
		// A failed deploy does not stop watching.
		if status.Status == "up" {
			status.Status = "degraded"
		}
		status.Components["last_deploy"] = fmt.Sprintf("failed (run %s): %v", rec.RunID, rec.Err)
	default:
		status.Components["last_deploy"] = fmt.Sprintf("ok (run %s, %s)", rec.RunID, rec.Duration.Round(time.Millisecond))
	}
	return status
}

func describeDebounce(state watcher.DebounceState) string {
	if state.LastTrigger.IsZero() {
		return fmt.Sprintf("window %s, nothing admitted", state.Window)
	}
	return fmt.Sprintf("window %s, last admitted %s", state.Window, state.LastTrigger.UTC().Format(time.RFC3339))
}

func describeRules(rules []watcher.ExclusionRule) string {
	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		patterns := make([]string, 0, len(rule.Patterns))
		for _, p := range rule.Patterns {
			patterns = append(patterns, p.Kind().String()+":"+p.String())
		}
		parts = append(parts, rule.Name+"="+strings.Join(patterns, ","))
	}
	return strings.Join(parts, "; ")
}
