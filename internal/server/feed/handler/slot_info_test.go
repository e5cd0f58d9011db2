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

func TestSlotInfo(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, fx *mocks.FeedFixture)
		pathParams       map[string]string
		expectedResponse string
	}{
		{
			name:             "vacant slot",
			pathParams:       map[string]string{"index": "1"},
			expectedResponse: `{"index":1,"occupied":false}`,
		},
		{
			name: "occupied slot",
			setup: func(t *testing.T, fx *mocks.FeedFixture) {
				occupySlot(t, fx, 0, "aa:01", 7)
			},
			pathParams:       map[string]string{"index": "0"},
			expectedResponse: `{"index":0,"occupied":true,"device":"dualshock4/usb/aa:01","state":"active","battery":"full"}`,
		},
		{
			name:             "out of range",
			pathParams:       map[string]string{"index": "9"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 9 not found"}`,
		},
		{
			name:             "negative index",
			pathParams:       map[string]string{"index": "-1"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot -1 not found"}`,
		},
		{
			name:             "non-numeric index",
			pathParams:       map[string]string{"index": "abc"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid slot index: strconv.Atoi: parsing \"abc\": invalid syntax"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := mocks.StartFeedServer(t, func(r *feed.Router, h *hub.Hub) {
				r.Register("slot/{index}", handler.SlotInfo(h))
			})
			if tt.setup != nil {
				tt.setup(t, fx)
			}

			c := apiclient.NewTransport(fx.Addr)
			line, err := c.Do("slot/{index}", nil, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
