// Package transport defines how physical controllers reach the hub. A
// Watcher announces controllers coming and going on one transport; every
// arrival carries an open report Channel for the device.
//
// Concrete implementations live under internal/transport.
package transport

import (
	"context"
	"errors"

	"github.com/padmux/padmux/pad"
)

// ErrClosed is returned by channel operations after the device side is gone.
var ErrClosed = errors.New("transport: channel closed")

// Channel is a bidirectional raw report stream to one controller. NextReport
// and SendReport are safe to call from different goroutines, but NextReport
// must not be called concurrently with itself: report order is only defined
// for a single reader.
type Channel interface {
	// NextReport blocks until the next input report arrives and returns
	// it. The returned slice is owned by the caller. Returns ErrClosed
	// once the device is gone.
	NextReport(ctx context.Context) ([]byte, error)

	// SendReport delivers one output report to the device.
	SendReport(ctx context.Context, raw []byte) error

	// Close tears the channel down and releases the device handle.
	// Close is idempotent.
	Close() error
}

type EventKind uint8

const (
	// Arrived announces a newly reachable controller together with an
	// open channel to it.
	Arrived EventKind = iota + 1
	// Left announces that a controller is no longer reachable. Its
	// channel, if still open, will start returning ErrClosed.
	Left
)

func (k EventKind) String() string {
	switch k {
	case Arrived:
		return "arrived"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Event is one hotplug notification.
type Event struct {
	Kind     EventKind
	Identity pad.Identity

	// Channel is open for Arrived events and nil for Left. The receiver
	// owns it and must close it, even when rejecting the device.
	Channel Channel
}

// Watcher monitors one transport for controllers. Watch posts events to ch
// until ctx is cancelled and then returns ctx.Err(); a setup failure before
// watching starts is returned as is.
type Watcher interface {
	Watch(ctx context.Context, ch chan<- Event) error
}
