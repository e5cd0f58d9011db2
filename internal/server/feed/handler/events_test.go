package handler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmux/padmux/apiclient"
	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/handler"
	mocks "github.com/padmux/padmux/internal/testing"
)

func nextEvent(t *testing.T, got <-chan apitypes.Event) apitypes.Event {
	t.Helper()
	select {
	case ev := <-got:
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for event")
		return apitypes.Event{}
	}
}

func TestEventsStream(t *testing.T) {
	fx := mocks.StartFeedServer(t, func(r *feed.Router, h *hub.Hub) {
		r.RegisterStream("events", handler.Events(h))
	})

	c := apiclient.New(fx.Addr)
	st, err := c.Events()
	require.NoError(t, err)
	defer st.Close()

	// The subscription is live once the stream handler picked up the request.
	require.Eventually(t, func() bool { return fx.Hub.SubscriberCount() == 1 }, waitFor, tick)

	got := make(chan apitypes.Event, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, err := st.Next()
			if err != nil {
				readErr <- err
				return
			}
			got <- ev
		}
	}()

	fx.Watcher.Arrive(ds4USB("aa:01"))
	ev := nextEvent(t, got)
	assert.Equal(t, "connected", ev.Kind)
	assert.Equal(t, 0, ev.Slot)
	assert.Equal(t, "dualshock4", ev.Model)
	assert.Equal(t, "usb", ev.Transport)
	assert.Equal(t, "aa:01", ev.Addr)

	fx.Watcher.Leave(ds4USB("aa:01"))
	ev = nextEvent(t, got)
	assert.Equal(t, "disconnected", ev.Kind)
	assert.Equal(t, 0, ev.Slot)
}

func TestEventsStreamClientHangup(t *testing.T) {
	fx := mocks.StartFeedServer(t, func(r *feed.Router, h *hub.Hub) {
		r.RegisterStream("events", handler.Events(h))
	})

	c := apiclient.New(fx.Addr)
	st, err := c.Events()
	require.NoError(t, err)
	require.Eventually(t, func() bool { return fx.Hub.SubscriberCount() == 1 }, waitFor, tick)

	require.NoError(t, st.Close())

	// The server side notices the hangup and drops the subscription.
	require.Eventually(t, func() bool { return fx.Hub.SubscriberCount() == 0 }, waitFor, tick)
}
