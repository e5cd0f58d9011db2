package hidraw

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	hidapi "github.com/karalabe/hid"

	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

const readBufSize = 128

// channel wraps one open hidapi handle. Reads run on a dedicated goroutine
// because hidapi blocks without a cancellation hook.
type channel struct {
	dev   hidapi.Device
	model pad.Model
	path  string
	addr  string

	reports chan []byte
	pending []byte

	idMu sync.Mutex
	id   pad.Identity

	closeOnce sync.Once
	closed    chan struct{}
}

func newChannel(dev hidapi.Device, model pad.Model, path, addr string) *channel {
	return &channel{
		dev:     dev,
		model:   model,
		path:    path,
		addr:    addr,
		reports: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

// announce waits for the first report, infers the link framing from it and
// only then surfaces the controller, so the codec selected by the identity
// matches what the device actually sends. The sniffed report replays as the
// first NextReport result.
func (c *channel) announce(ctx context.Context, ch chan<- transport.Event, logger *slog.Logger) {
	first, err := c.read()
	if err != nil {
		logger.Debug("hid device dropped before first report", "path", c.path, "error", err)
		_ = c.Close()
		return
	}

	id := pad.Identity{Model: c.model, Transport: sniffTransport(c.model, first), Addr: c.addr}
	c.idMu.Lock()
	c.id = id
	c.idMu.Unlock()
	c.pending = first
	go c.readLoop()

	logger.Debug("hid controller attached", "device", id.String())
	select {
	case <-ctx.Done():
		_ = c.Close()
	case ch <- transport.Event{Kind: transport.Arrived, Identity: id, Channel: c}:
	}
}

// identity returns the sniffed identity, false before the first report.
func (c *channel) identity() (pad.Identity, bool) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return c.id, c.id.Model != 0
}

func (c *channel) readLoop() {
	for {
		raw, err := c.read()
		if err != nil {
			_ = c.Close()
			return
		}
		select {
		case <-c.closed:
			return
		case c.reports <- raw:
		}
	}
}

func (c *channel) read() ([]byte, error) {
	buf := make([]byte, readBufSize)
	n, err := c.dev.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func (c *channel) NextReport(ctx context.Context) ([]byte, error) {
	if raw := c.pending; raw != nil {
		c.pending = nil
		return raw, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, transport.ErrClosed
	case raw := <-c.reports:
		return raw, nil
	}
}

func (c *channel) SendReport(ctx context.Context, raw []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}
	if _, err := c.dev.Write(raw); err != nil {
		select {
		case <-c.closed:
			return transport.ErrClosed
		default:
		}
		return fmt.Errorf("hid write: %w", err)
	}
	return nil
}

// Close releases the HID handle. Idempotent.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.dev.Close()
	})
	return nil
}

func (c *channel) alive() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}
