package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/configpaths"
	"github.com/padmux/padmux/internal/log"
	"github.com/padmux/padmux/internal/server/dsu"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/auth"
	"github.com/padmux/padmux/internal/server/feed/handler"
	"github.com/padmux/padmux/internal/transport/btle"
	"github.com/padmux/padmux/internal/transport/hidraw"
	"github.com/padmux/padmux/internal/transport/usbdev"
	"github.com/padmux/padmux/transport"
)

const keyFileName = "padmux.key.txt"

// hotplugTarget is a watcher that can be told to rescan its bus. The
// platform-specific hotplug monitor pokes every target on device events.
type hotplugTarget interface {
	Rescan()
}

type Serve struct {
	HubConfig        hub.Config        `embed:"" prefix:"hub."`
	FeedServerConfig feed.ServerConfig `embed:"" prefix:"feed."`
	DsuServerConfig  dsu.ServerConfig  `embed:"" prefix:"dsu."`
	UsbConfig        usbdev.Config     `embed:"" prefix:"usb."`
	BluetoothConfig  btle.Config       `embed:"" prefix:"bluetooth."`
	HidrawConfig     hidraw.Config     `embed:"" prefix:"hidraw."`
	Transports       string            `help:"Comma-separated transports to run: usb, bluetooth, hidraw" default:"usb,bluetooth" env:"PADMUX_TRANSPORTS"`
}

// Run is called by Kong when the serve command is executed.
func (s *Serve) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartDaemon(ctx, logger, rawLogger)
}

func (s *Serve) StartDaemon(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	logger.Info("Starting padmux device hub", "feed", s.FeedServerConfig.Addr, "dsu", s.DsuServerConfig.Addr)

	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		s.FeedServerConfig.Password = strings.TrimSpace(string(pwd))
	} else {
		newPwd, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate new feed API password: %w", err)
		}
		if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
			return fmt.Errorf("failed to create config dir for key file: %w", err)
		}
		if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
			return fmt.Errorf("failed to write new feed API password to file: %w", err)
		}
		s.FeedServerConfig.Password = newPwd
		logger.Info("Generated feed API password", "path", keyFilePath)
		logger.Info("-------------------------------------")
		logger.Info("Your padmux feed API password is:")
		logger.Info("-------------------------------------")
		logger.Info(newPwd)
		logger.Info("-------------------------------------")
		logger.Info("Change it at any time with 'padmux passwd'; an empty key file disables feed authentication")
	}

	watchers, rescanTargets, err := s.buildWatchers(logger)
	if err != nil {
		return err
	}

	h, err := hub.New(s.HubConfig, logger, rawLogger)
	if err != nil {
		return err
	}
	for _, w := range watchers {
		if err := h.AddWatcher(w); err != nil {
			return err
		}
	}
	if err := h.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = h.Stop() }()

	stopHotplug, err := startHotplug(logger, rescanTargets...)
	if err != nil {
		logger.Warn("hotplug monitor unavailable, relying on rescan polling", "error", err)
	} else {
		defer stopHotplug()
	}

	feedSrv := feed.New(h, s.FeedServerConfig, logger)
	r := feedSrv.Router()
	r.Register("ping", handler.Ping())
	r.Register("slots", handler.SlotList(h))
	r.Register("slot/{index}", handler.SlotInfo(h))
	r.Register("slot/{index}/state", handler.SlotState(h))
	r.Register("slot/{index}/feedback", handler.SlotFeedback(h))
	r.Register("devices", handler.DeviceList(h))
	r.RegisterStream("events", handler.Events(h))

	if err := feedSrv.Start(); err != nil {
		logger.Error("failed to start feed API server", "error", err)
		return err
	}
	defer feedSrv.Close()

	dsuSrv := dsu.New(h, s.DsuServerConfig, logger)
	if err := dsuSrv.Start(); err != nil {
		logger.Error("failed to start DSU server", "error", err)
		return err
	}
	defer dsuSrv.Close()

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}

// buildWatchers constructs one watcher per enabled transport. The hidraw
// transport opens the same devices the usb transport would claim, so the
// two are mutually exclusive.
func (s *Serve) buildWatchers(logger *slog.Logger) ([]transport.Watcher, []hotplugTarget, error) {
	enabled, err := parseTransports(s.Transports)
	if err != nil {
		return nil, nil, err
	}

	var watchers []transport.Watcher
	var targets []hotplugTarget
	if enabled["usb"] {
		w := usbdev.NewWatcher(s.UsbConfig, logger)
		watchers = append(watchers, w)
		targets = append(targets, w)
	}
	if enabled["hidraw"] {
		w := hidraw.NewWatcher(s.HidrawConfig, logger)
		watchers = append(watchers, w)
		targets = append(targets, w)
	}
	if enabled["bluetooth"] {
		watchers = append(watchers, btle.NewWatcher(s.BluetoothConfig, logger))
	}
	return watchers, targets, nil
}

func parseTransports(list string) (map[string]bool, error) {
	enabled := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		switch name {
		case "usb", "bluetooth", "hidraw":
			enabled[name] = true
		default:
			return nil, fmt.Errorf("unknown transport %q (expected usb, bluetooth, or hidraw)", name)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no transports enabled")
	}
	if enabled["usb"] && enabled["hidraw"] {
		return nil, fmt.Errorf("transports usb and hidraw claim the same devices; enable one or the other")
	}
	return enabled, nil
}
