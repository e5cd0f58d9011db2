package handler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/padmux/padmux/internal/registry"
	mocks "github.com/padmux/padmux/internal/testing"
	"github.com/padmux/padmux/pad"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func ds4USB(addr string) pad.Identity {
	return pad.Identity{Model: pad.ModelDualShock4, Transport: pad.TransportUSB, Addr: addr}
}

// usbReport returns a valid input report with the left stick at lx and a
// full battery.
func usbReport(lx int8) []byte {
	b := make([]byte, 64)
	b[0] = 0x01
	b[1] = uint8(lx) + 0x80
	b[2], b[3], b[4] = 0x80, 0x80, 0x80
	b[5] = 0x08
	b[30] = 0x0B
	b[35], b[39] = 0x80, 0x80
	return b
}

// occupySlot announces a controller and waits until its first report shows
// up in the slot.
func occupySlot(t *testing.T, fx *mocks.FeedFixture, slot int, addr string, lx int8) *mocks.MockChannel {
	t.Helper()
	ch := fx.Watcher.Arrive(ds4USB(addr))
	ch.PushReport(usbReport(lx))
	require.Eventually(t, func() bool {
		st, err := fx.Hub.ReadSlot(slot)
		return err == nil && st.LX == lx
	}, waitFor, tick, "controller %s never reached slot %d", addr, slot)
	return ch
}

// waitSent reads reports written to ch until one satisfies match.
func waitSent(t *testing.T, ch *mocks.MockChannel, match func(raw []byte) bool) []byte {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case raw := <-ch.Sent:
			if match(raw) {
				return raw
			}
		case <-deadline:
			t.Fatal("expected output report was never sent")
			return nil
		}
	}
}
