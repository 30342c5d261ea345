// Package notify provides mount.NotificationSink implementations.
package notify

import (
	"sync"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/mount"
)

// LogSink writes every event to the process logger at INFO level.
type LogSink struct{}

func (LogSink) Notify(event mount.ChangeEvent) {
	logger.Info("mount hook %s: /%s for %s %q", event.Signal, event.MountPoint, event.MountType, event.Entity)
}

// Recorder keeps every event in memory, in delivery order.
type Recorder struct {
	mu     sync.Mutex
	events []mount.ChangeEvent
}

func (r *Recorder) Notify(event mount.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []mount.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mount.ChangeEvent(nil), r.events...)
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans every event out to each sink in order.
type Multi []mount.NotificationSink

func (m Multi) Notify(event mount.ChangeEvent) {
	for _, sink := range m {
		sink.Notify(event)
	}
}
