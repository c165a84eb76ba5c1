package dialogue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

var _ Scheduler = (*Loop)(nil)

// NewLoop returns a loop that buffers up to size posted functions.
func NewLoop(size int) *Loop {
	if size < 1 {
		size = 1
	}
	return &Loop{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Post queues f. It blocks while the buffer is full and reports false once
// the loop is closed. Post must not be called from the loop itself.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.tasks <- f:
		return true
	}
}

// Run executes posted functions until ctx is cancelled or Close is called.
// Functions still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case f := <-l.tasks:
			f()
		}
	}
}

// Close stops the loop. It is safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

// AfterFunc implements [Scheduler]. A cancel issued on the loop wins even
// when the timer has already fired and its callback is queued.
func (l *Loop) AfterFunc(d time.Duration, f func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			if !cancelled.Load() {
				f()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}
