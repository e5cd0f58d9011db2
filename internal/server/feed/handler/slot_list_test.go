package handler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmux/padmux/apiclient"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/handler"
	mocks "github.com/padmux/padmux/internal/testing"
)

func TestSlotList(t *testing.T) {
	tests := []struct {
		name             string
		hubCfg           hub.Config
		setup            func(t *testing.T, fx *mocks.FeedFixture)
		expectedResponse string
	}{
		{
			name:             "all vacant",
			expectedResponse: `{"slots":[{"index":0,"occupied":false},{"index":1,"occupied":false},{"index":2,"occupied":false},{"index":3,"occupied":false}],"pending":0}`,
		},
		{
			name: "occupied slot reported",
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 42)
			},
			expectedResponse: `{"slots":[{"index":0,"occupied":true,"device":"dualshock4/usb/aa:01","state":"active","battery":"full"},{"index":1,"occupied":false},{"index":2,"occupied":false},{"index":3,"occupied":false}],"pending":0}`,
		},
		{
			name:   "waiting controller counted",
			hubCfg: hub.Config{MaxSlots: 1},
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 1)
				fx.Watcher.Arrive(ds4USB("aa:02"))
				require.Eventually(t, func() bool { return fx.Hub.PendingCount() == 1 }, waitFor, tick)
			},
			expectedResponse: `{"slots":[{"index":0,"occupied":true,"device":"dualshock4/usb/aa:01","state":"active","battery":"full"}],"pending":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := mocks.StartFeedServerWithConfig(t, tt.hubCfg, feed.ServerConfig{}, func(r *feed.Router, h *hub.Hub) {
				r.Register("slots", handler.SlotList(h))
			})
			if tt.setup != nil {
				tt.setup(t, fx)
			}

			c := apiclient.NewTransport(fx.Addr)
			line, err := c.Do("slots", nil, nil)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
