//go:build linux

package cmd

import (
	"log/slog"

	"github.com/padmux/padmux/internal/transport/udevmon"
)

// startHotplug runs the udev netlink monitor so device arrivals trigger an
// immediate rescan instead of waiting for the next poll tick.
func startHotplug(logger *slog.Logger, targets ...hotplugTarget) (func(), error) {
	if len(targets) == 0 {
		return func() {}, nil
	}
	rescanners := make([]udevmon.Rescanner, 0, len(targets))
	for _, t := range targets {
		rescanners = append(rescanners, t)
	}
	mon := udevmon.New(logger, rescanners...)
	if err := mon.Start(); err != nil {
		return nil, err
	}
	return func() { _ = mon.Stop() }, nil
}
