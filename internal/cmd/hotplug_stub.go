//go:build !linux

package cmd

import "log/slog"

// startHotplug is a no-op where udev is unavailable; the transports rely on
// their rescan polling alone.
func startHotplug(_ *slog.Logger, _ ...hotplugTarget) (func(), error) {
	return func() {}, nil
}
