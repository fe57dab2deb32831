package playback

import (
	"sync"
	"sync/atomic"
)

// Lifecycle is the running flag shared between the host event loop and the
// playback goroutine. It starts out running and can be stopped exactly once.
type Lifecycle struct {
	running atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// NewLifecycle returns a Lifecycle in the running state.
func NewLifecycle() *Lifecycle {
	l := &Lifecycle{done: make(chan struct{})}
	l.running.Store(true)
	return l
}

// RequestStop clears the running flag. Safe to call repeatedly and from any goroutine.
func (l *Lifecycle) RequestStop() {
	l.once.Do(func() {
		l.running.Store(false)
		close(l.done)
	})
}

// IsRunning reports whether stop has not been requested yet.
func (l *Lifecycle) IsRunning() bool {
	return l.running.Load()
}

// Done is closed once stop has been requested.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}
