package testing

import (
	"context"
	"sync"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// MockChannel is a scripted transport.Channel. Tests feed input reports with
// PushReport and observe outgoing reports on Sent.
type MockChannel struct {
	reports chan []byte
	Sent    chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewMockChannel() *MockChannel {
	return &MockChannel{
		reports: make(chan []byte, 64),
		Sent:    make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

// PushReport schedules one input report for delivery.
func (c *MockChannel) PushReport(raw []byte) {
	select {
	case <-c.closed:
	case c.reports <- raw:
	}
}

func (c *MockChannel) NextReport(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, transport.ErrClosed
	case raw := <-c.reports:
		return raw, nil
	}
}

func (c *MockChannel) SendReport(ctx context.Context, raw []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return transport.ErrClosed
	case c.Sent <- raw:
		return nil
	}
}

func (c *MockChannel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Closed reports whether Close has been called.
func (c *MockChannel) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// MockWatcher is a hand-driven transport.Watcher. Tests announce controllers
// with Arrive and Leave.
type MockWatcher struct {
	events chan transport.Event
}

func NewMockWatcher() *MockWatcher {
	return &MockWatcher{events: make(chan transport.Event, 16)}
}

func (w *MockWatcher) Watch(ctx context.Context, ch chan<- transport.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-w.events:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- ev:
			}
		}
	}
}

// Arrive announces a controller and returns the channel backing it.
func (w *MockWatcher) Arrive(id pad.Identity) *MockChannel {
	c := NewMockChannel()
	w.events <- transport.Event{Kind: transport.Arrived, Identity: id, Channel: c}
	return c
}

// ArriveOn announces a controller reachable over an existing channel.
func (w *MockWatcher) ArriveOn(id pad.Identity, c *MockChannel) {
	w.events <- transport.Event{Kind: transport.Arrived, Identity: id, Channel: c}
}

// Leave announces that a controller is gone.
func (w *MockWatcher) Leave(id pad.Identity) {
	w.events <- transport.Event{Kind: transport.Left, Identity: id}
}

// CueRecorder is a hub.Notifier that records every cue it is asked to play.
type CueRecorder struct {
	mu   sync.Mutex
	cues []hub.Cue
}

func (r *CueRecorder) Play(c hub.Cue) {
	r.mu.Lock()
	r.cues = append(r.cues, c)
	r.mu.Unlock()
}

// Cues returns a copy of everything played so far.
func (r *CueRecorder) Cues() []hub.Cue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hub.Cue, len(r.cues))
	copy(out, r.cues)
	return out
}

// Count returns how often cue has been played.
func (r *CueRecorder) Count(cue hub.Cue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cues {
		if c == cue {
			n++
		}
	}
	return n
}
