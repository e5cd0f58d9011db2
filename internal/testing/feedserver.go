package testing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
)

// FeedFixture is a running hub plus feed server on localhost:0, driven
// through a MockWatcher.
type FeedFixture struct {
	Addr    string
	Hub     *hub.Hub
	Watcher *MockWatcher
	Server  *feed.Server
}

// StartFeedServer starts a hub and a feed server for handler tests. The
// register callback installs the routes under test. Everything shuts down
// with the test.
func StartFeedServer(t *testing.T, register func(r *feed.Router, h *hub.Hub)) *FeedFixture {
	t.Helper()
	return StartFeedServerWithConfig(t, hub.Config{}, feed.ServerConfig{Addr: "localhost:0"}, register)
}

// StartFeedServerWithConfig is StartFeedServer with explicit hub and server
// configuration.
func StartFeedServerWithConfig(t *testing.T, hubCfg hub.Config, srvCfg feed.ServerConfig, register func(r *feed.Router, h *hub.Hub)) *FeedFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h, err := hub.New(hubCfg, logger, nil)
	if err != nil {
		t.Fatalf("create hub: %v", err)
	}
	w := NewMockWatcher()
	if err := h.AddWatcher(w); err != nil {
		t.Fatalf("add watcher: %v", err)
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start hub: %v", err)
	}

	if srvCfg.Addr == "" {
		srvCfg.Addr = "localhost:0"
	}
	srv := feed.New(h, srvCfg, logger)
	if register != nil {
		register(srv.Router(), h)
	}
	if err := srv.Start(); err != nil {
		_ = h.Stop()
		t.Fatalf("start feed server: %v", err)
	}

	t.Cleanup(func() {
		srv.Close()
		_ = h.Stop()
	})

	return &FeedFixture{Addr: srv.Addr(), Hub: h, Watcher: w, Server: srv}
}
