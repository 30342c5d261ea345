package notify

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
)

// DefaultQueueSize is the buffer used by NewAsync when size is zero.
const DefaultQueueSize = 256

// Async delivers events to a wrapped sink from a single background
// goroutine, preserving their order.
//
// Notify never blocks: when the queue is full the event is dropped and a
// warning logged. Call Close to flush the queue and stop the goroutine.
type Async struct {
	next  mount.NotificationSink
	queue chan mount.ChangeEvent
	done  chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewAsync starts the delivery goroutine for next.
func NewAsync(next mount.NotificationSink, size int) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}

	a := &Async{
		next:  next,
		queue: make(chan mount.ChangeEvent, size),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		a.next.Notify(event)
	}
}

func (a *Async) Notify(event mount.ChangeEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return
	}

	select {
	case a.queue <- event:
	default:
		a.dropped.Add(1)
		logger.Warn("notify: queue full, dropping %s for /%s", event.Signal, event.MountPoint)
	}
}

// Dropped returns the number of events discarded because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until the queued ones are
// delivered. Safe to call more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	<-a.done
}
