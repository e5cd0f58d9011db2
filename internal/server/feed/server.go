package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"

	"github.com/padmux/padmux/hub"
	"github.com/padmux/padmux/internal/server/feed/auth"
)

// Server implements a small TCP API exposing hub slots, devices and events.
type Server struct {
	hub    *hub.Hub
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config ServerConfig
	key    []byte
}

// New creates a new feed Server bound to a hub.Hub instance.
func New(h *hub.Hub, config ServerConfig, logger *slog.Logger) *Server {
	s := &Server{
		hub:    h,
		addr:   config.Addr,
		logger: logger,
		config: config,
	}
	s.router = NewRouter()
	return s
}

// Router returns the router used by the feed server so callers can register handlers.
func (s *Server) Router() *Router { return s.router }

// Hub returns the underlying hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Config returns the server configuration.
func (s *Server) Config() ServerConfig { return s.config }

// Addr returns the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Start listens on the configured address and serves incoming feed commands.
func (s *Server) Start() error {
	if s.config.Password != "" {
		key, err := auth.DeriveKey(s.config.Password)
		if err != nil {
			return fmt.Errorf("derive feed key: %w", err)
		}
		s.key = key
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("feed listening", "addr", s.addr, "auth", s.key != nil)
	go s.serve()
	return nil
}

// Close stops the feed server.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(strings.ToLower(err.Error()), "use of closed network connection") {
				s.logger.Info("feed server stopped")
				return
			}
			s.logger.Info("feed accept error", "error", err)
			return
		}
		go s.handleConn(c)
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	apiErr := WrapError(err)
	problemJSON, _ := json.Marshal(apiErr)
	fmt.Fprintf(w, "%s\n", string(problemJSON))
}

func (s *Server) writeOK(w io.Writer, rest string) {
	if rest == "" {
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "%s\n", rest)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	connLogger := s.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)
	var w io.Writer = conn

	// With a password configured every connection must open with the auth
	// handshake; the session continues on the wrapped connection.
	if s.key != nil {
		isAuth, err := auth.IsAuthHandshake(r)
		if err != nil {
			connLogger.Error("feed read handshake", "error", err)
			return
		}
		if !isAuth {
			connLogger.Error("feed unauthenticated request rejected")
			s.writeError(w, ErrUnauthorized("authentication required"))
			return
		}
		clientNonce, serverNonce, err := auth.HandleAuthHandshake(r, conn, s.key, false)
		if err != nil {
			connLogger.Error("feed auth handshake failed", "error", err)
			s.writeError(w, err)
			return
		}
		sessionKey := auth.DeriveSessionKey(s.key, serverNonce, clientNonce)
		wrapped, err := auth.WrapConn(conn, sessionKey)
		if err != nil {
			connLogger.Error("feed session wrap failed", "error", err)
			s.writeError(w, err)
			return
		}
		conn = wrapped
		r = bufio.NewReader(conn)
		w = conn
	}

	// Read until null terminator
	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("feed incomplete request (no null terminator)")
		} else {
			connLogger.Error("read feed data", "error", err)
		}
		return
	}
	// Remove null terminator
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("feed empty command")
		s.writeError(w, ErrBadRequest("empty request"))
		return
	}

	// Split on first whitespace character using regex \s
	wsRegex := regexp.MustCompile(`\s`)
	loc := wsRegex.FindStringIndex(reqData)

	var path, payload string
	if loc != nil {
		path = reqData[:loc[0]]
		payload = reqData[loc[1]:]
	} else {
		path = reqData
		payload = ""
	}

	if path == "" {
		connLogger.Error("feed empty path")
		s.writeError(w, ErrBadRequest("empty path"))
		return
	}

	path = strings.ToLower(path)
	connLogger.Info("feed cmd", "path", path)

	if h, params := s.router.Match(path); h != nil {
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("feed handler error", "path", path, "error", err)
			s.writeError(w, err)
			return
		}
		connLogger.Debug("feed handler success", "path", path)
		s.writeOK(w, res.JSON)
		return
	} else if sh, params := s.router.MatchStream(path); sh != nil {
		connLogger.Info("feed stream begin", "path", path)
		// Stream handler takes ownership of connection
		if err := sh(conn, params, connLogger); err != nil {
			connLogger.Error("feed stream handler error", "path", path, "error", err)
		}
		connLogger.Info("feed stream end", "path", path)
		return
	}
	connLogger.Error("feed unknown path", "path", path)
	s.writeError(w, ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
}
