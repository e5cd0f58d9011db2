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

func registerFeedback(r *feed.Router, h *hub.Hub) {
	r.Register("slot/{index}/feedback", handler.SlotFeedback(h))
}

func TestSlotFeedbackReachesController(t *testing.T) {
	fx := mocks.StartFeedServer(t, registerFeedback)
	ch := occupySlot(t, fx, 0, "aa:01", 0)
	c := apiclient.NewTransport(fx.Addr)

	line, err := c.Do("slot/{index}/feedback", `{"rumbleSmall":1,"rumbleLarge":128}`, map[string]string{"index": "0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot":0}`, line)

	raw := waitSent(t, ch, func(b []byte) bool {
		return b[0] == 0x05 && b[4] == 1 && b[5] == 128
	})
	// No Led in the payload keeps the slot 0 player color.
	assert.Equal(t, byte(0x00), raw[6])
	assert.Equal(t, byte(0x00), raw[7])
	assert.Equal(t, byte(0x40), raw[8])
	assert.Equal(t, byte(0x00), raw[9])
	assert.Equal(t, byte(0x00), raw[10])
}

func TestSlotFeedbackLedOverride(t *testing.T) {
	fx := mocks.StartFeedServer(t, registerFeedback)
	ch := occupySlot(t, fx, 0, "aa:01", 0)
	c := apiclient.NewTransport(fx.Addr)

	line, err := c.Do("slot/{index}/feedback", `{"led":{"r":10,"g":20,"b":30},"flashOn":100,"flashOff":50}`, map[string]string{"index": "0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot":0}`, line)

	raw := waitSent(t, ch, func(b []byte) bool {
		return b[0] == 0x05 && b[6] == 10 && b[7] == 20 && b[8] == 30
	})
	assert.Equal(t, byte(100), raw[9])
	assert.Equal(t, byte(50), raw[10])
}

func TestSlotFeedbackVacantSlotDropped(t *testing.T) {
	fx := mocks.StartFeedServer(t, registerFeedback)
	c := apiclient.NewTransport(fx.Addr)

	line, err := c.Do("slot/{index}/feedback", `{"rumbleLarge":255}`, map[string]string{"index": "2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot":2}`, line)
}

func TestSlotFeedbackErrors(t *testing.T) {
	tests := []struct {
		name             string
		pathParams       map[string]string
		payload          any
		expectedResponse string
	}{
		{
			name:             "out of range",
			pathParams:       map[string]string{"index": "9"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"slot 9 not found"}`,
		},
		{
			name:             "non-numeric index",
			pathParams:       map[string]string{"index": "abc"},
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid slot index: strconv.Atoi: parsing \"abc\": invalid syntax"}`,
		},
		{
			name:             "malformed payload",
			pathParams:       map[string]string{"index": "0"},
			payload:          "{",
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"invalid feedback payload: unexpected end of JSON input"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := mocks.StartFeedServer(t, registerFeedback)
			c := apiclient.NewTransport(fx.Addr)
			line, err := c.Do("slot/{index}/feedback", tt.payload, tt.pathParams)
			assert.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}
