package testing

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/cmd"
	"github.com/padmux/padmux/internal/config"
	"github.com/padmux/padmux/internal/server/dsu"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/handler"
	padtesting "github.com/padmux/padmux/internal/testing"
)

// MockDaemon is a full padmux stack on loopback: a hub fed by a mock
// watcher, the feed API, and the DSU server.
type MockDaemon struct {
	Hub        *hub.Hub
	FeedServer *feed.Server
	DsuServer  *dsu.Server
	Watcher    *padtesting.MockWatcher

	cancel context.CancelFunc
}

func NewTestDaemonWithConfig(t *testing.T, cfg *config.CLI) *MockDaemon {
	t.Helper()

	logger := slog.Default()

	h, err := hub.New(cfg.Serve.HubConfig, logger, nil)
	if err != nil {
		t.Fatalf("hub construction failed: %v", err)
	}
	watcher := padtesting.NewMockWatcher()
	if err := h.AddWatcher(watcher); err != nil {
		t.Fatalf("failed to add watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := h.Start(ctx); err != nil {
		cancel()
		t.Fatalf("hub failed to start: %v", err)
	}

	feedSrv := feed.New(h, cfg.Serve.FeedServerConfig, logger)
	r := feedSrv.Router()
	r.Register("ping", handler.Ping())
	r.Register("slots", handler.SlotList(h))
	r.Register("slot/{index}", handler.SlotInfo(h))
	r.Register("slot/{index}/state", handler.SlotState(h))
	r.Register("slot/{index}/feedback", handler.SlotFeedback(h))
	r.Register("devices", handler.DeviceList(h))
	r.RegisterStream("events", handler.Events(h))
	if err := feedSrv.Start(); err != nil {
		cancel()
		_ = h.Stop()
		t.Fatalf("feed server failed to start: %v", err)
	}

	dsuSrv := dsu.New(h, cfg.Serve.DsuServerConfig, logger)
	if err := dsuSrv.Start(); err != nil {
		feedSrv.Close()
		cancel()
		_ = h.Stop()
		t.Fatalf("DSU server failed to start: %v", err)
	}

	return &MockDaemon{
		Hub:        h,
		FeedServer: feedSrv,
		DsuServer:  dsuSrv,
		Watcher:    watcher,
		cancel:     cancel,
	}
}

func NewTestDaemon(t *testing.T) *MockDaemon {
	t.Helper()

	cfg := TestDaemonConfig(t)
	return NewTestDaemonWithConfig(t, cfg)
}

func (m *MockDaemon) Close() {
	m.DsuServer.Close()
	m.FeedServer.Close()
	m.cancel()
	_ = m.Hub.Stop()
}

func TestDaemonConfig(t *testing.T) *config.CLI {
	t.Helper()

	return &config.CLI{
		Serve: cmd.Serve{
			HubConfig: hub.Config{
				MaxSlots:        4,
				DegradeAfter:    3,
				DisconnectAfter: 6,
			},
			FeedServerConfig: feed.ServerConfig{
				Addr: "localhost:0",
			},
			DsuServerConfig: dsu.ServerConfig{
				Addr:     "127.0.0.1:0",
				Interval: 2 * time.Millisecond,
			},
		},
	}
}
