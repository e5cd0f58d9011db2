package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

// Events returns a stream handler that forwards hub events as JSON lines
// until the client disconnects or the hub stops.
func Events(h *hub.Hub) feed.StreamHandlerFunc {
	return func(conn net.Conn, params map[string]string, logger *slog.Logger) error {
		defer conn.Close()

		events, cancel := h.Subscribe()
		defer cancel()

		// The client sends nothing after the request; the read unblocking
		// means it hung up.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			_, _ = io.Copy(io.Discard, conn)
		}()

		enc := json.NewEncoder(conn)
		for {
			select {
			case <-gone:
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := enc.Encode(eventJSON(ev)); err != nil {
					return nil
				}
			}
		}
	}
}
