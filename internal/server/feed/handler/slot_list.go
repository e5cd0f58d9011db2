package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

// SlotList returns a handler that lists every slot's occupancy.
// Error logging is centralized in the feed server.
func SlotList(h *hub.Hub) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		slots := h.Slots()
		payload := apitypes.SlotListResponse{
			Slots:   make([]apitypes.SlotInfo, 0, len(slots)),
			Pending: h.PendingCount(),
		}
		for _, sl := range slots {
			payload.Slots = append(payload.Slots, slotJSON(sl))
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
