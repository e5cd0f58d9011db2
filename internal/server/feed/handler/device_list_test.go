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

func TestDeviceList(t *testing.T) {
	tests := []struct {
		name             string
		hubCfg           hub.Config
		setup            func(t *testing.T, fx *mocks.FeedFixture)
		expectedResponse string
	}{
		{
			name:             "empty list",
			expectedResponse: `{"devices":[]}`,
		},
		{
			name: "active device",
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 3)
			},
			expectedResponse: `{"devices":[{"model":"dualshock4","transport":"usb","addr":"aa:01","state":"active","slot":0,"pending":false}]}`,
		},
		{
			name:   "queued device listed last",
			hubCfg: hub.Config{MaxSlots: 1},
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 3)
				fx.Watcher.Arrive(ds4USB("aa:02"))
				require.Eventually(t, func() bool { return fx.Hub.PendingCount() == 1 }, waitFor, tick)
			},
			expectedResponse: `{"devices":[{"model":"dualshock4","transport":"usb","addr":"aa:01","state":"active","slot":0,"pending":false},{"model":"dualshock4","transport":"usb","addr":"aa:02","state":"connecting","slot":-1,"pending":true}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := mocks.StartFeedServerWithConfig(t, tt.hubCfg, feed.ServerConfig{}, func(r *feed.Router, h *hub.Hub) {
				r.Register("devices", handler.DeviceList(h))
			})
			if tt.setup != nil {
				tt.setup(t, fx)
			}

			c := apiclient.NewTransport(fx.Addr)
			line, err := c.Do("devices", nil, nil)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
