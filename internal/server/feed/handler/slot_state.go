package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

// SlotState returns a handler that reads the latest published pad state of a
// slot. Vacant slots read as the neutral state.
func SlotState(h *hub.Hub) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		idx, err := slotIndex(req)
		if err != nil {
			return err
		}
		st, err := h.ReadSlot(idx)
		if err != nil {
			if errors.Is(err, hub.ErrSlotRange) {
				return feed.ErrNotFound(fmt.Sprintf("slot %d not found", idx))
			}
			return err
		}
		b, err := json.Marshal(padStateJSON(st))
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
