//go:build linux

// Package udevmon listens for kernel hotplug uevents and pokes the
// transport watchers to rescan right away instead of waiting out their
// polling interval. On other platforms the watchers fall back to polling.
package udevmon

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall"

	"github.com/pilebones/go-udev/netlink"
)

// netlinkBufferSize is the receive buffer for the uevent socket. Hotplug
// bursts generate many messages quickly; a small buffer drops them with
// ENOBUFS.
const netlinkBufferSize = 2 * 1024 * 1024

// Rescanner is the hook a transport watcher exposes for hotplug pokes.
type Rescanner interface {
	Rescan()
}

// Monitor subscribes to udev add/remove events for the usb and hidraw
// subsystems and fans them out to the registered watchers.
type Monitor struct {
	logger  *slog.Logger
	targets []Rescanner

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	stopped bool
}

func New(logger *slog.Logger, targets ...Rescanner) *Monitor {
	return &Monitor{logger: logger, targets: targets}
}

// Start connects to the kernel uevent socket and begins forwarding events.
// Non-blocking; events are handled on a background goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return errors.New("udev monitor already started")
	}

	conn := &netlink.UEventConn{}
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return fmt.Errorf("connect netlink: %w", err)
	}
	if err := setBufferSize(conn.Fd, netlinkBufferSize); err != nil {
		m.logger.Debug("netlink buffer resize failed", "error", err)
	}

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	m.quit = conn.Monitor(queue, errs, matcher())
	m.conn = conn
	m.stopped = false

	go m.run(queue, errs)

	m.logger.Info("udev monitor started")
	return nil
}

// Stop closes the uevent socket. Safe to call without Start.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.stopped {
		return nil
	}
	m.stopped = true

	select {
	case m.quit <- struct{}{}:
	default:
	}
	if err := m.conn.Close(); err != nil {
		return fmt.Errorf("close netlink: %w", err)
	}
	m.conn = nil
	m.logger.Info("udev monitor stopped")
	return nil
}

// matcher keeps only add/remove events for the subsystems the transports
// enumerate on.
func matcher() *netlink.RuleDefinitions {
	rules := &netlink.RuleDefinitions{}
	add, remove := "add", "remove"
	for _, action := range []*string{&add, &remove} {
		rules.AddRule(netlink.RuleDefinition{
			Action: action,
			Env:    map[string]string{"SUBSYSTEM": "^(usb|hidraw)$"},
		})
	}
	return rules
}

func (m *Monitor) run(queue chan netlink.UEvent, errs chan error) {
	for {
		select {
		case ev, ok := <-queue:
			if !ok {
				return
			}
			m.handle(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			m.mu.Lock()
			stopped := m.stopped
			m.mu.Unlock()
			if stopped {
				return
			}
			if isBufferOverflow(err) {
				// Events were dropped; a full rescan recovers whatever
				// arrived or left meanwhile.
				m.logger.Warn("netlink buffer overflow, forcing rescan")
				m.rescanAll()
				continue
			}
			m.logger.Error("udev monitor error", "error", err)
		}
	}
}

func (m *Monitor) handle(ev netlink.UEvent) {
	if ev.Action != netlink.ADD && ev.Action != netlink.REMOVE {
		return
	}
	m.logger.Debug("hotplug event",
		"action", string(ev.Action),
		"subsystem", ev.Env["SUBSYSTEM"],
		"devpath", ev.KObj)
	m.rescanAll()
}

func (m *Monitor) rescanAll() {
	for _, t := range m.targets {
		t.Rescan()
	}
}

// setBufferSize grows the socket receive buffer, trying the privileged
// variant first because it ignores the rmem_max cap.
func setBufferSize(fd int, size int) error {
	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUFFORCE, size); err == nil {
		return nil
	}
	return syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, size)
}

func isBufferOverflow(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOBUFS) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no buffer space available")
}
