package board

import (
	"context"

	"github.com/gistapp/gist/internal/notify"
)

// ChannelNotifier queues notifications for the board. When the queue is full
// the notification is dropped, notifying never blocks the caller.
type ChannelNotifier struct {
	ch chan notify.Notification
}

// NewChannelNotifier returns a notifier with a queue of the given size.
func NewChannelNotifier(size int) *ChannelNotifier {
	if size <= 0 {
		size = 16
	}
	return &ChannelNotifier{ch: make(chan notify.Notification, size)}
}

func (c *ChannelNotifier) Notify(_ context.Context, n notify.Notification) {
	select {
	case c.ch <- n:
	default:
	}
}

// C returns the queued notifications.
func (c *ChannelNotifier) C() <-chan notify.Notification { return c.ch }
