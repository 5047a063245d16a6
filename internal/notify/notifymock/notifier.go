package notifymock

import (
	"context"
	"sync"

	"github.com/gistapp/gist/internal/notify"
)

// Recorder is a notifier that records every notification.
type Recorder struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

func (r *Recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Notifications returns the recorded notifications.
func (r *Recorder) Notifications() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.notifications...)
}

// Levels returns the levels of the recorded notifications.
func (r *Recorder) Levels() []notify.Level {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]notify.Level, 0, len(r.notifications))
	for _, n := range r.notifications {
		res = append(res, n.Level)
	}
	return res
}
