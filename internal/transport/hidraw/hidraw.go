// Package hidraw reaches controllers through the platform HID layer. It is
// an opt-in alternative to the usb and bluetooth transports for setups
// where libusb cannot claim the device but the OS HID driver already has
// it, and it is the only route to a DualShock 3 paired over classic
// Bluetooth.
package hidraw

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	hidapi "github.com/karalabe/hid"
	"golang.org/x/time/rate"

	"github.com/padmux/padmux/codec/dualshock4"
	"github.com/padmux/padmux/hid"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// Config tunes HID discovery.
type Config struct {
	RescanInterval time.Duration `help:"HID enumeration poll interval" default:"2s" env:"PADMUX_HIDRAW_RESCAN"`
}

const defaultRescanInterval = 2 * time.Second

// Watcher enumerates supported controllers through hidapi, keyed by their
// platform device path.
type Watcher struct {
	config Config
	logger *slog.Logger

	// limiter spaces out rescans when hotplug fires many uevents for one
	// physical device.
	limiter *rate.Limiter
	poke    chan struct{}

	mu   sync.Mutex
	open map[string]*channel
}

func NewWatcher(config Config, logger *slog.Logger) *Watcher {
	return &Watcher{
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		poke:    make(chan struct{}, 1),
		open:    make(map[string]*channel),
	}
}

// Rescan schedules an enumeration pass, typically poked by the udev
// monitor. Safe from any goroutine; bursts collapse into one pass.
func (w *Watcher) Rescan() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// Watch implements transport.Watcher.
func (w *Watcher) Watch(ctx context.Context, ch chan<- transport.Event) error {
	interval := w.config.RescanInterval
	if interval <= 0 {
		interval = defaultRescanInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		w.scan(ctx, ch)
		select {
		case <-ctx.Done():
			w.closeAll()
			return ctx.Err()
		case <-t.C:
		case <-w.poke:
			if err := w.limiter.Wait(ctx); err != nil {
				w.closeAll()
				return err
			}
		}
	}
}

// scan opens newly attached controllers and reaps the ones that vanished.
// New devices are announced from a goroutine once their first report
// reveals the link framing.
func (w *Watcher) scan(ctx context.Context, ch chan<- transport.Event) {
	infos, err := hidapi.Enumerate(hid.VendorSony, 0)
	if err != nil {
		w.logger.Debug("hid enumeration failed", "error", err)
		return
	}

	seen := make(map[string]bool, len(infos))
	for _, info := range infos {
		model := modelFor(info.ProductID)
		if model == 0 {
			continue
		}
		seen[info.Path] = true

		w.mu.Lock()
		existing := w.open[info.Path]
		if existing != nil && existing.alive() {
			w.mu.Unlock()
			continue
		}
		delete(w.open, info.Path)
		w.mu.Unlock()

		dev, err := info.Open()
		if err != nil {
			w.logger.Warn("hid open failed", "path", info.Path, "error", err)
			continue
		}
		c := newChannel(dev, model, info.Path, addrFor(info))

		w.mu.Lock()
		w.open[info.Path] = c
		w.mu.Unlock()

		go c.announce(ctx, ch, w.logger)
	}

	w.mu.Lock()
	var gone []*channel
	for path, c := range w.open {
		if !seen[path] {
			delete(w.open, path)
			gone = append(gone, c)
		}
	}
	w.mu.Unlock()

	for _, c := range gone {
		_ = c.Close()
		id, ok := c.identity()
		if !ok {
			continue
		}
		w.logger.Debug("hid controller detached", "device", id.String())
		select {
		case <-ctx.Done():
			return
		case ch <- transport.Event{Kind: transport.Left, Identity: id}:
		}
	}
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	open := make([]*channel, 0, len(w.open))
	for path, c := range w.open {
		delete(w.open, path)
		open = append(open, c)
	}
	w.mu.Unlock()
	for _, c := range open {
		_ = c.Close()
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

// addrFor prefers the serial number, which a DualShock exposes as its
// Bluetooth address, and falls back to the platform path.
func addrFor(info hidapi.DeviceInfo) string {
	if info.Serial != "" {
		return strings.ToLower(info.Serial)
	}
	return info.Path
}

// sniffTransport infers the link from the first report. A DualShock 4 on
// Bluetooth wraps input in 0x11 frames; everything else reports the USB
// framing regardless of the physical link.
func sniffTransport(model pad.Model, first []byte) pad.Transport {
	if model == pad.ModelDualShock4 && len(first) > 0 && first[0] == dualshock4.ReportIDBt {
		return pad.TransportBluetooth
	}
	return pad.TransportUSB
}
