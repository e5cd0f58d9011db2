// Package usbdev discovers wired controllers over libusb and exposes their
// interrupt pipes as transport channels.
package usbdev

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// Config tunes USB discovery.
type Config struct {
	RescanInterval time.Duration `help:"USB enumeration poll interval" default:"1s" env:"PADMUX_USB_RESCAN"`
}

const defaultRescanInterval = time.Second

// Watcher enumerates supported controllers by vendor/product id and claims
// them on interface 0. Devices are keyed by bus position, so replugging the
// same pad yields a fresh identity.
type Watcher struct {
	config Config
	logger *slog.Logger

	poke chan struct{}

	mu   sync.Mutex
	open map[string]*channel
}

func NewWatcher(config Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		config: config,
		logger: logger,
		poke:   make(chan struct{}, 1),
		open:   make(map[string]*channel),
	}
}

// Rescan schedules an enumeration pass ahead of the regular interval. Safe
// from any goroutine; bursts collapse into one pass.
func (w *Watcher) Rescan() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// Watch implements transport.Watcher.
func (w *Watcher) Watch(ctx context.Context, ch chan<- transport.Event) error {
	usb := gousb.NewContext()
	defer usb.Close()

	interval := w.config.RescanInterval
	if interval <= 0 {
		interval = defaultRescanInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		w.scan(ctx, usb, ch)
		select {
		case <-ctx.Done():
			w.closeAll()
			return ctx.Err()
		case <-t.C:
		case <-w.poke:
		}
	}
}

// scan opens newly attached controllers and reaps the ones that vanished.
func (w *Watcher) scan(ctx context.Context, usb *gousb.Context, ch chan<- transport.Event) {
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(hid.VendorSony) && modelFor(uint16(desc.Product)) != 0
	})
	if err != nil && len(devs) == 0 {
		w.logger.Debug("usb enumeration failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(devs))
	for _, dev := range devs {
		uid := fmt.Sprintf("%d-%d", dev.Desc.Bus, dev.Desc.Address)
		seen[uid] = true

		w.mu.Lock()
		existing := w.open[uid]
		if existing != nil && existing.alive() {
			w.mu.Unlock()
			_ = dev.Close()
			continue
		}
		delete(w.open, uid)
		w.mu.Unlock()

		id := pad.Identity{
			Model:     modelFor(uint16(dev.Desc.Product)),
			Transport: pad.TransportUSB,
			Addr:      uid,
		}
		c, err := openChannel(dev, id)
		if err != nil {
			w.logger.Warn("usb device claim failed", "device", uid, "error", err)
			_ = dev.Close()
			continue
		}

		w.mu.Lock()
		w.open[uid] = c
		w.mu.Unlock()

		w.logger.Debug("usb controller attached", "device", id.String())
		if !emit(ctx, ch, transport.Event{Kind: transport.Arrived, Identity: id, Channel: c}) {
			return
		}
	}

	w.mu.Lock()
	var gone []*channel
	for uid, c := range w.open {
		if !seen[uid] {
			delete(w.open, uid)
			gone = append(gone, c)
		}
	}
	w.mu.Unlock()

	for _, c := range gone {
		_ = c.Close()
		w.logger.Debug("usb controller detached", "device", c.id.String())
		if !emit(ctx, ch, transport.Event{Kind: transport.Left, Identity: c.id}) {
			return
		}
	}
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	open := make([]*channel, 0, len(w.open))
	for uid, c := range w.open {
		delete(w.open, uid)
		open = append(open, c)
	}
	w.mu.Unlock()
	for _, c := range open {
		_ = c.Close()
	}
}

func emit(ctx context.Context, ch chan<- transport.Event, ev transport.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- ev:
		return true
	}
}

// modelFor maps a product id to the controller model, zero when unsupported.
func modelFor(pid uint16) pad.Model {
	switch pid {
	case hid.ProductDualShock3:
		return pad.ModelDualShock3
	case hid.ProductDualShock4, hid.ProductDualShock4V2:
		return pad.ModelDualShock4
	default:
		return 0
	}
}
