// Package btle discovers wireless controllers advertising the HID-over-GATT
// service and bridges their report notifications into transport channels.
//
// Only the DualShock 4 speaks this profile; the DualShock 3 pairs over
// classic Bluetooth and reaches the hub through the hidraw transport
// instead.
package btle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// Config tunes Bluetooth discovery.
type Config struct {
	IdleTimeout time.Duration `help:"Drop a wireless controller after this long without reports" default:"8s" env:"PADMUX_BT_IDLE_TIMEOUT"`
}

const defaultIdleTimeout = 8 * time.Second

var (
	hidService = bluetooth.New16BitUUID(0x1812)
	reportChar = bluetooth.New16BitUUID(0x2A4D)
)

// Watcher scans for controller advertisements and connects to each match.
type Watcher struct {
	config Config
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]*channel
}

func NewWatcher(config Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		config: config,
		logger: logger,
		open:   make(map[string]*channel),
	}
}

// Watch implements transport.Watcher. Scanning runs for the whole watch, so
// a controller that dropped its link is picked up again as soon as it
// re-advertises.
func (w *Watcher) Watch(ctx context.Context, ch chan<- transport.Event) error {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 4)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !looksLikeController(result.LocalName()) {
				return
			}
			select {
			case found <- result:
			default:
			}
		})
	}()
	defer func() { _ = adapter.StopScan() }()

	for {
		select {
		case <-ctx.Done():
			w.closeAll()
			return ctx.Err()
		case err := <-scanErr:
			w.closeAll()
			if err == nil {
				err = errors.New("bluetooth scan stopped")
			}
			return err
		case result := <-found:
			w.connect(ctx, adapter, result, ch)
		}
	}
}

func (w *Watcher) connect(ctx context.Context, adapter *bluetooth.Adapter, result bluetooth.ScanResult, ch chan<- transport.Event) {
	addr := strings.ToLower(result.Address.String())

	w.mu.Lock()
	if c := w.open[addr]; c != nil && c.alive() {
		w.mu.Unlock()
		return
	}
	delete(w.open, addr)
	w.mu.Unlock()

	dev, err := adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		w.logger.Debug("bluetooth connect failed", "addr", addr, "error", err)
		return
	}

	idle := w.config.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	id := pad.Identity{Model: pad.ModelDualShock4, Transport: pad.TransportBluetooth, Addr: addr}
	c, err := newChannel(id, dev, idle)
	if err != nil {
		w.logger.Warn("bluetooth controller setup failed", "addr", addr, "error", err)
		_ = dev.Disconnect()
		return
	}

	w.mu.Lock()
	w.open[addr] = c
	w.mu.Unlock()

	w.logger.Debug("bluetooth controller attached", "device", id.String())
	select {
	case <-ctx.Done():
	case ch <- transport.Event{Kind: transport.Arrived, Identity: id, Channel: c}:
	}
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	open := make([]*channel, 0, len(w.open))
	for addr, c := range w.open {
		delete(w.open, addr)
		open = append(open, c)
	}
	w.mu.Unlock()
	for _, c := range open {
		_ = c.Close()
	}
}

// looksLikeController reports whether an advertisement names a supported
// pad. The DualShock 4 advertises as "Wireless Controller".
func looksLikeController(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "Wireless Controller")
}

// channel bridges GATT report notifications into the transport contract.
type channel struct {
	id  pad.Identity
	dev bluetooth.Device

	reports chan []byte
	idle    time.Duration
	chars   []bluetooth.DeviceCharacteristic

	writeMu   sync.Mutex
	writeChar *bluetooth.DeviceCharacteristic

	closeOnce sync.Once
	closed    chan struct{}
}

// newChannel discovers the HID service and subscribes to its report
// characteristics.
func newChannel(id pad.Identity, dev bluetooth.Device, idle time.Duration) (*channel, error) {
	svcs, err := dev.DiscoverServices([]bluetooth.UUID{hidService})
	if err != nil {
		return nil, fmt.Errorf("discover hid service: %w", err)
	}
	if len(svcs) == 0 {
		return nil, errors.New("no hid service")
	}
	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{reportChar})
	if err != nil {
		return nil, fmt.Errorf("discover report characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, errors.New("no report characteristics")
	}

	c := &channel{
		id:      id,
		dev:     dev,
		reports: make(chan []byte, 16),
		idle:    idle,
		chars:   chars,
		closed:  make(chan struct{}),
	}

	// Input report characteristics notify; the output ones reject the
	// subscription and stay available for writes.
	subscribed := 0
	for i := range chars {
		err := chars[i].EnableNotifications(func(buf []byte) {
			raw := make([]byte, len(buf))
			copy(raw, buf)
			select {
			case <-c.closed:
			case c.reports <- raw:
			default:
			}
		})
		if err == nil {
			subscribed++
		}
	}
	if subscribed == 0 {
		return nil, errors.New("no notifying report characteristic")
	}
	return c, nil
}

func (c *channel) NextReport(ctx context.Context) ([]byte, error) {
	t := time.NewTimer(c.idle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, transport.ErrClosed
	case <-t.C:
		// The pad streams continuously while linked; silence means the
		// link dropped even when the stack has not noticed yet.
		_ = c.Close()
		return nil, fmt.Errorf("bluetooth report timeout: %w", transport.ErrClosed)
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

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeChar != nil {
		if _, err := c.writeChar.WriteWithoutResponse(raw); err != nil {
			return fmt.Errorf("bluetooth write: %w", err)
		}
		return nil
	}

	// The first write probes which report characteristic accepts output.
	var lastErr error
	for i := range c.chars {
		_, err := c.chars[i].WriteWithoutResponse(raw)
		if err == nil {
			c.writeChar = &c.chars[i]
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("bluetooth write: %w", lastErr)
}

// Close drops the link. Idempotent.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.dev.Disconnect()
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
