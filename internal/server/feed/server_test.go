package feed_test

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padmux/padmux/apiclient"
	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed"
	"github.com/padmux/padmux/internal/server/feed/handler"
	mocks "github.com/padmux/padmux/internal/testing"
)

func TestUnknownPath(t *testing.T) {
	fx := mocks.StartFeedServer(t, nil)

	c := apiclient.NewTransport(fx.Addr)
	line, err := c.Do("nope", nil, nil)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":404,"title":"Not Found","detail":"unknown path: nope"}`, line)
}

func TestEmptyRequest(t *testing.T) {
	fx := mocks.StartFeedServer(t, nil)

	c := apiclient.NewTransport(fx.Addr)
	line, err := c.Do("", nil, nil)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":400,"title":"Bad Request","detail":"empty request"}`, line)
}

func TestPathsAreCaseInsensitive(t *testing.T) {
	fx := mocks.StartFeedServer(t, func(r *feed.Router, h *hub.Hub) {
		r.Register("ping", handler.Ping())
	})

	// Raw connection so the server sees the original casing.
	conn, err := net.Dial("tcp", fx.Addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("PING\x00"))
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"server":"padmux"`)
}

func TestPasswordAuth(t *testing.T) {
	srvCfg := feed.ServerConfig{Addr: "localhost:0", Password: "hunter2"}
	fx := mocks.StartFeedServerWithConfig(t, hub.Config{}, srvCfg, func(r *feed.Router, h *hub.Hub) {
		r.Register("ping", handler.Ping())
	})

	t.Run("correct password", func(t *testing.T) {
		c := apiclient.NewWithPassword(fx.Addr, "hunter2")
		resp, err := c.Ping()
		require.NoError(t, err)
		assert.Equal(t, "padmux", resp.Server)
	})

	t.Run("wrong password", func(t *testing.T) {
		c := apiclient.NewWithPassword(fx.Addr, "wrong")
		_, err := c.Ping()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401 Unauthorized: invalid password")
	})

	t.Run("missing password", func(t *testing.T) {
		c := apiclient.New(fx.Addr)
		_, err := c.Ping()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authentication required")
	})
}
