package handler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/padmux/padmux/apiclient"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/handler"
	mocks "github.com/padmux/padmux/internal/testing"
)

func TestSlotState(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, fx *mocks.FeedFixture)
		pathParams       map[string]string
		expectedResponse string
	}{
		{
			name:             "vacant slot reads neutral",
			pathParams:       map[string]string{"index": "0"},
			expectedResponse: `{"buttons":0,"dpad":0,"lx":0,"ly":0,"rx":0,"ry":0,"l2":0,"r2":0,"battery":"unknown"}`,
		},
		{
			name: "live state",
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 42)
			},
			pathParams:       map[string]string{"index": "0"},
			expectedResponse: `{"buttons":0,"dpad":0,"lx":42,"ly":0,"rx":0,"ry":0,"l2":0,"r2":0,"battery":"full","motion":{"gyroX":0,"gyroY":0,"gyroZ":0,"accelX":0,"accelY":0,"accelZ":0}}`,
		},
		{
			name:             "out of range",
			pathParams:       map[string]string{"index": "4"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 4 not found"}`,
		},
		{
			name:             "non-numeric index",
			pathParams:       map[string]string{"index": "first"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid slot index: strconv.Atoi: parsing \"first\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := mocks.StartFeedServer(t, func(r *feed.Router, h *hub.Hub) {
				r.Register("slot/{index}/state", handler.SlotState(h))
			})
			if tt.setup != nil {
				tt.setup(t, fx)
			}

			c := apiclient.NewTransport(fx.Addr)
			line, err := c.Do("slot/{index}/state", nil, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
