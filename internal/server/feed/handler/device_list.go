package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

// DeviceList returns a handler that lists every live controller session,
// slot holders first, then the pending queue.
func DeviceList(h *hub.Hub) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		devices := h.Devices()
		payload := apitypes.DevicesListResponse{Devices: make([]apitypes.DeviceInfo, 0, len(devices))}
		for _, d := range devices {
			payload.Devices = append(payload.Devices, deviceJSON(d))
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
