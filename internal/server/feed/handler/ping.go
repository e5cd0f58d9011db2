package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/padmux/padmux/apitypes"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/version"
)

// Ping returns a handler that reports server identity and version.
func Ping() feed.HandlerFunc {
	return func(req *feed.Request, res *feed.Response, logger *slog.Logger) error {
		b, err := json.Marshal(apitypes.PingResponse{Server: "padmux", Version: version.Get()})
		if err != nil {
			return err
		}
		res.JSON = string(b)
		return nil
	}
}
