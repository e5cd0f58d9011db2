package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

func slotIndex(req *feed.Request) (int, error) {
	idxStr, ok := req.Params["index"]
	if !ok {
		return 0, feed.ErrBadRequest("missing index parameter")
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, feed.ErrBadRequest(fmt.Sprintf("invalid slot index: %v", err))
	}
	return idx, nil
}

// SlotInfo returns a handler that describes a single slot.
func SlotInfo(h *hub.Hub) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		idx, err := slotIndex(req)
		if err != nil {
			return err
		}
		slots := h.Slots()
		if idx < 0 || idx >= len(slots) {
			return feed.ErrNotFound(fmt.Sprintf("slot %d not found", idx))
		}
		b, err := json.Marshal(slotJSON(slots[idx]))
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
