//go:build linux

package udevmon

import (
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/pilebones/go-udev/netlink"
	"github.com/stretchr/testify/assert"
)

type countingTarget struct {
	pokes int
}

func (t *countingTarget) Rescan() { t.pokes++ }

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  netlink.UEvent
		expect int
	}{
		{
			name: "usb add",
			event: netlink.UEvent{
				Action: netlink.ADD,
				KObj:   "/devices/pci0000:00/usb1/1-2",
				Env:    map[string]string{"SUBSYSTEM": "usb"},
			},
			expect: 1,
		},
		{
			name: "hidraw remove",
			event: netlink.UEvent{
				Action: netlink.REMOVE,
				Env:    map[string]string{"SUBSYSTEM": "hidraw"},
			},
			expect: 1,
		},
		{
			name:   "other action ignored",
			event:  netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"SUBSYSTEM": "usb"}},
			expect: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &countingTarget{}
			m := New(slog.New(slog.NewTextHandler(io.Discard, nil)), target)
			m.handle(tt.event)
			assert.Equal(t, tt.expect, target.pokes)
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	m := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, m.Stop())
}

func TestMatcherRules(t *testing.T) {
	rules := matcher()
	assert.Len(t, rules.Rules, 2)
	assert.NoError(t, rules.Compile())

	hidrawAdd := netlink.UEvent{
		Action: netlink.ADD,
		KObj:   "/devices/pci0000:00/usb1/1-2/1-2:1.0/0003:054C:09CC.0007/hidraw/hidraw4",
		Env:    map[string]string{"SUBSYSTEM": "hidraw"},
	}
	assert.True(t, rules.Evaluate(hidrawAdd))

	blockAdd := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "block"},
	}
	assert.False(t, rules.Evaluate(blockAdd))
}

func TestIsBufferOverflow(t *testing.T) {
	assert.False(t, isBufferOverflow(nil))
	assert.True(t, isBufferOverflow(syscall.ENOBUFS))
	assert.True(t, isBufferOverflow(fmt.Errorf("recv: %w", syscall.ENOBUFS)))
	assert.True(t, isBufferOverflow(fmt.Errorf("unable to read: no buffer space available")))
	assert.False(t, isBufferOverflow(fmt.Errorf("connection reset")))
}
