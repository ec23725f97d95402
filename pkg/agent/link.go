package agent

import (
	"sync/atomic"

	"github.com/erain9/marketsim/pkg/core"
)

// Link is the channel-backed notification boundary between the order
// manager and one agent. The manager pushes copies; the agent consumes
// them in its own goroutine, so no manager lock is ever held across agent
// code.
type Link struct {
	name    string
	ch      chan core.Notification
	dropped atomic.Int64
}

// NewLink creates a link with the given buffer size.
func NewLink(name string, buffer int) *Link {
	if buffer <= 0 {
		buffer = 256
	}
	return &Link{name: name, ch: make(chan core.Notification, buffer)}
}

// Name returns the agent's name.
func (l *Link) Name() string {
	return l.name
}

// Send pushes a notification without blocking the market; when the agent
// falls behind, notifications are dropped and counted.
func (l *Link) Send(n core.Notification) {
	select {
	case l.ch <- n:
	default:
		l.dropped.Add(1)
	}
}

// Notifications returns the consuming side of the link.
func (l *Link) Notifications() <-chan core.Notification {
	return l.ch
}

// Dropped returns the number of notifications dropped so far.
func (l *Link) Dropped() int64 {
	return l.dropped.Load()
}

// Ensure Link implements OrderSender
var _ core.OrderSender = (*Link)(nil)
