package watcher

// ChangeBatch is the ordered set of paths reported together by one
// notification from the file system source.
type ChangeBatch []string

// LoopSignal is the single input type of the event loop. The concrete types
// are FilesChanged, Terminate and RuntimeError; the loop switches on them.
type LoopSignal interface {
	loopSignal()
}

// FilesChanged carries a batch of changed paths.
type FilesChanged struct {
	Batch ChangeBatch
}

// Terminate asks the loop to stop. It is never filtered or debounced.
type Terminate struct {
	Reason string
}

// RuntimeError reports a failure of the underlying subscription. It is
// logged and does not change the loop state unless it carries a main-loop
// error code.
type RuntimeError struct {
	Err error
}

func (FilesChanged) loopSignal() {}
func (Terminate) loopSignal()    {}
func (RuntimeError) loopSignal() {}
