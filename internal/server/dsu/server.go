package dsu

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/padmux/padmux/hub"
)

// ServerConfig configures the DSU endpoint.
type ServerConfig struct {
	Addr     string        `help:"DSU (cemuhook) UDP listen address" default:":26760" env:"PADMUX_DSU_ADDR"`
	Interval time.Duration `help:"DSU data send interval" default:"4ms" env:"PADMUX_DSU_INTERVAL"`
}

// clientTimeout prunes subscribers that stopped re-requesting data.
const clientTimeout = 5 * time.Second

const defaultInterval = 4 * time.Millisecond

type subscriber struct {
	addr  *net.UDPAddr
	seen  time.Time
	all   bool
	slots [maxSlots]bool
}

// Server streams hub slots to DSU clients. One goroutine answers requests,
// a second ticks the data feed to current subscribers.
type Server struct {
	hub    *hub.Hub
	config ServerConfig
	logger *slog.Logger

	id      uint32
	started time.Time

	pc     *net.UDPConn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs map[string]*subscriber

	// counters are touched only by the stream goroutine.
	counters [maxSlots]uint32
}

// New creates a DSU server for the hub. The server identifies itself to
// clients with a random id per process.
func New(h *hub.Hub, config ServerConfig, logger *slog.Logger) *Server {
	var idb [4]byte
	_, _ = rand.Read(idb[:])
	return &Server{
		hub:    h,
		config: config,
		logger: logger,
		id:     binary.LittleEndian.Uint32(idb[:]),
		subs:   make(map[string]*subscriber),
	}
}

// Start binds the UDP socket and launches the serve loops.
func (s *Server) Start() error {
	if s.config.Interval <= 0 {
		s.config.Interval = defaultInterval
	}
	addr, err := net.ResolveUDPAddr("udp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("resolve dsu addr: %w", err)
	}
	pc, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen dsu: %w", err)
	}
	s.pc = pc
	s.started = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info("dsu listening", "addr", pc.LocalAddr().String())

	s.wg.Add(2)
	go s.readLoop()
	go s.streamLoop(ctx)
	return nil
}

// Addr returns the bound UDP address once the server is started.
func (s *Server) Addr() string {
	if s.pc == nil {
		return s.config.Addr
	}
	return s.pc.LocalAddr().String()
}

// Close stops both loops and releases the socket.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.pc != nil {
		_ = s.pc.Close()
	}
	s.wg.Wait()
}

func (s *Server) readLoop() {
	defer s.wg.Done()
	buf := make([]byte, 128)
	for {
		n, raddr, err := s.pc.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Debug("dsu server stopped")
			} else {
				s.logger.Error("dsu read error", "error", err)
			}
			return
		}
		req, err := parseRequest(buf[:n])
		if err != nil {
			s.logger.Debug("dsu bad packet dropped", "remote", raddr.String(), "error", err)
			continue
		}
		s.handle(req, raddr)
	}
}

func (s *Server) handle(req request, raddr *net.UDPAddr) {
	switch req.msgType {
	case msgVersion:
		s.send(versionPacket(s.id), raddr)
	case msgInfo:
		s.handleInfo(req, raddr)
	case msgData:
		s.handleData(req, raddr)
	default:
		s.logger.Debug("dsu unknown message type", "type", req.msgType)
	}
}

// handleInfo answers a ports request with one info packet per asked slot.
func (s *Server) handleInfo(req request, raddr *net.UDPAddr) {
	if len(req.payload) < 4 {
		return
	}
	count := int(int32(binary.LittleEndian.Uint32(req.payload[0:4])))
	if count < 0 || count > maxSlots || len(req.payload) < 4+count {
		return
	}
	snap := s.snapshot()
	for _, idx := range req.payload[4 : 4+count] {
		if int(idx) >= len(snap) {
			continue
		}
		s.send(infoPacket(s.id, snap[idx]), raddr)
	}
}

// handleData registers or refreshes a subscription. Flags select slot- or
// MAC-based registration; zero flags subscribe to everything.
func (s *Server) handleData(req request, raddr *net.UDPAddr) {
	if len(req.payload) < 8 {
		return
	}
	flags := req.payload[0]
	slot := int(req.payload[1])
	var mac [6]byte
	copy(mac[:], req.payload[2:8])

	macSlot := -1
	if flags&2 != 0 {
		macSlot = s.slotForMAC(mac)
	}

	key := raddr.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.subs[key]
	if sub == nil {
		sub = &subscriber{addr: raddr}
		s.subs[key] = sub
		s.logger.Debug("dsu client subscribed", "remote", key)
	}
	sub.seen = time.Now()
	switch {
	case flags == 0:
		sub.all = true
	case flags&1 != 0 && slot >= 0 && slot < maxSlots:
		sub.slots[slot] = true
	case macSlot >= 0:
		sub.slots[macSlot] = true
	}
}

func (s *Server) slotForMAC(mac [6]byte) int {
	for i, ch := range s.snapshot() {
		if ch.State == stateConnected && ch.MAC == mac {
			return i
		}
	}
	return -1
}

// snapshot renders the controller header of every streamable slot.
func (s *Server) snapshot() []controllerHeader {
	slots := s.hub.Slots()
	n := len(slots)
	if n > maxSlots {
		n = maxSlots
	}
	out := make([]controllerHeader, n)
	for i := 0; i < n; i++ {
		if !slots[i].Occupied {
			out[i] = controllerHeader{Slot: uint8(i), State: stateDisconnected}
			continue
		}
		out[i] = controllerHeader{
			Slot:       uint8(i),
			State:      stateConnected,
			Model:      modelByte(slots[i].Device.Model),
			Connection: connByte(slots[i].Device.Transport),
			MAC:        slotMAC(slots[i].Device.Addr),
			Battery:    uint8(slots[i].Battery),
		}
	}
	return out
}

func (s *Server) streamLoop(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(s.config.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.broadcast()
		}
	}
}

// target is a subscriber snapshot taken under the lock so sends happen
// without it.
type target struct {
	addr  *net.UDPAddr
	all   bool
	slots [maxSlots]bool
}

// broadcast sends one data packet per occupied slot to every interested
// subscriber, dropping the ones that timed out.
func (s *Server) broadcast() {
	now := time.Now()

	s.mu.Lock()
	for key, sub := range s.subs {
		if now.Sub(sub.seen) > clientTimeout {
			delete(s.subs, key)
			s.logger.Debug("dsu client timed out", "remote", key)
		}
	}
	targets := make([]target, 0, len(s.subs))
	for _, sub := range s.subs {
		targets = append(targets, target{addr: sub.addr, all: sub.all, slots: sub.slots})
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	ts := uint64(now.Sub(s.started).Microseconds())
	for i, ch := range s.snapshot() {
		if ch.State != stateConnected {
			continue
		}
		st, err := s.hub.ReadSlot(i)
		if err != nil {
			continue
		}
		s.counters[i]++
		pkt := dataPacket(s.id, ch, s.counters[i], st, ts)
		for _, tg := range targets {
			if tg.all || tg.slots[i] {
				s.send(pkt, tg.addr)
			}
		}
	}
}

func (s *Server) send(pkt []byte, addr *net.UDPAddr) {
	if _, err := s.pc.WriteToUDP(pkt, addr); err != nil {
		s.logger.Debug("dsu send failed", "remote", addr.String(), "error", err)
	}
}
