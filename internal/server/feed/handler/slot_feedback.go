package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/pad"
)

// SlotFeedback returns a handler that queues a feedback command for the
// controller in a slot. The payload is a JSON FeedbackRequest; an empty
// payload clears rumble and restores the slot color.
func SlotFeedback(h *hub.Hub) feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		idx, err := slotIndex(req)
		if err != nil {
			return err
		}

		var fr apitypes.FeedbackRequest
		if req.Payload != "" {
			if err := json.Unmarshal([]byte(req.Payload), &fr); err != nil {
				return feed.ErrBadRequest(fmt.Sprintf("invalid feedback payload: %v", err))
			}
		}

		fb := pad.Feedback{
			RumbleSmall: fr.RumbleSmall,
			RumbleLarge: fr.RumbleLarge,
			Led:         pad.SlotLed(idx),
			Player:      uint8(idx + 1),
			FlashOn:     fr.FlashOn,
			FlashOff:    fr.FlashOff,
		}
		if fr.Led != nil {
			fb.Led = pad.Led{R: fr.Led.R, G: fr.Led.G, B: fr.Led.B}
		}

		if err := h.SubmitFeedback(idx, fb); err != nil {
			if errors.Is(err, hub.ErrSlotRange) {
				return feed.ErrNotFound(fmt.Sprintf("slot %d not found", idx))
			}
			return err
		}

		b, err := json.Marshal(apitypes.FeedbackResponse{Slot: idx})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
