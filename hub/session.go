package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// SessionState tracks one controller through its lifetime.
type SessionState uint8

const (
	// StateConnecting covers arrival until the first decoded report.
	// Sessions waiting for a slot stay in Connecting.
	StateConnecting SessionState = iota + 1
	// StateActive means reports are decoding and publishing to a slot.
	StateActive
	// StateDegraded means too many consecutive reports failed to decode.
	// The slot keeps the last good state; a good report flips the session
	// back to Active.
	StateDegraded
	// StateDisconnected is terminal. The identity may reconnect as a new
	// session.
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// session owns the report loops for one controller. All transport I/O
// happens on the session's goroutines; no hub or session lock is ever held
// across a channel read or write.
type session struct {
	hub    *Hub
	id     pad.Identity
	ch     transport.Channel
	dec    codec.Codec
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	state     SessionState
	slot      int // -1 while unassigned
	failures  int // consecutive decode failures
	last      pad.State
	haveState bool
	lowSeen   bool

	// Latest-wins feedback cell: a newer command replaces an unsent one.
	fbMu     sync.Mutex
	fbNext   *pad.Feedback
	fbNotify chan struct{}
}

func newSession(h *Hub, id pad.Identity, ch transport.Channel, dec codec.Codec) *session {
	ctx, cancel := context.WithCancel(h.runCtx)
	return &session{
		hub:      h,
		id:       id,
		ch:       ch,
		dec:      dec,
		logger:   h.logger.With("device", id.String()),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateConnecting,
		slot:     -1,
		fbNotify: make(chan struct{}, 1),
	}
}

func (s *session) start() {
	s.hub.sessWg.Add(1)
	go s.run()
}

func (s *session) run() {
	defer s.hub.sessWg.Done()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	s.readLoop()

	s.cancel()
	_ = s.ch.Close()
	wg.Wait()

	s.hub.sessionDone(s)
	close(s.done)
}

// readLoop consumes input reports until the channel dies, the session is
// cancelled, or the disconnect threshold is reached. Reports are handled
// strictly in arrival order.
func (s *session) readLoop() {
	for {
		raw, err := s.ch.NextReport(s.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrClosed) {
				s.logger.Debug("report stream ended", "error", err)
			}
			return
		}
		s.hub.rawLogger.Log(true, s.id.Addr, raw)

		st, err := s.dec.Decode(raw)
		if err != nil {
			if s.noteFailure(err) {
				return
			}
			continue
		}
		s.noteState(st)
	}
}

// noteFailure counts one decode failure and applies the degrade and
// disconnect thresholds. Returns true once the session should be dropped.
func (s *session) noteFailure(err error) bool {
	s.mu.Lock()
	s.failures++
	n := s.failures
	degraded := false
	if n >= s.hub.config.DegradeAfter && s.state == StateActive {
		s.state = StateDegraded
		degraded = true
	}
	s.mu.Unlock()

	if n >= s.hub.config.DisconnectAfter {
		s.logger.Error("too many undecodable reports, dropping session", "failures", n, "error", err)
		return true
	}
	if degraded {
		s.logger.Warn("session degraded", "failures", n, "error", err)
	}
	return false
}

// noteState records a good decode: the failure counter resets, a degraded
// session recovers, and the state is published to the session's slot.
func (s *session) noteState(st pad.State) {
	s.mu.Lock()
	s.failures = 0
	s.last = st
	s.haveState = true
	recovered := false
	if s.slot >= 0 && s.state != StateActive {
		recovered = s.state == StateDegraded
		s.state = StateActive
	}
	batteryLow := false
	if st.Battery.Low() {
		if !s.lowSeen && s.slot >= 0 {
			batteryLow = true
			s.lowSeen = true
		}
	} else if st.Battery != pad.BatteryUnknown {
		s.lowSeen = false
	}
	slot := s.slot
	if slot >= 0 {
		s.hub.publish(slot, st)
	}
	s.mu.Unlock()

	if recovered {
		s.logger.Info("session recovered")
	}
	if batteryLow {
		s.logger.Warn("controller battery low", "battery", st.Battery.String())
		s.hub.notifier.Play(CueBatteryLow)
		s.hub.emit(Event{Kind: EventBatteryLow, Slot: slot, Device: s.id, Battery: st.Battery})
	}
}

// writeLoop delivers queued feedback. Only the newest undelivered command is
// ever sent.
func (s *session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.fbNotify:
		}
		for {
			fb, ok := s.takeFeedback()
			if !ok {
				break
			}
			raw := s.dec.Encode(fb)
			s.hub.rawLogger.Log(false, s.id.Addr, raw)
			if err := s.ch.SendReport(s.ctx, raw); err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrClosed) {
					s.logger.Debug("feedback send failed", "error", err)
				}
				return
			}
		}
	}
}

// queueFeedback stores fb as the next command to deliver, superseding any
// unsent one, and nudges the write loop without blocking.
func (s *session) queueFeedback(fb pad.Feedback) {
	s.fbMu.Lock()
	s.fbNext = &fb
	s.fbMu.Unlock()

	select {
	case s.fbNotify <- struct{}{}:
	default:
	}
}

func (s *session) takeFeedback() (pad.Feedback, bool) {
	s.fbMu.Lock()
	defer s.fbMu.Unlock()
	if s.fbNext == nil {
		return pad.Feedback{}, false
	}
	fb := *s.fbNext
	s.fbNext = nil
	return fb, true
}

// adopt gives the session a slot. A session promoted from the pending queue
// immediately republishes its retained state, so the slot never shows a
// stale vacancy.
func (s *session) adopt(slot int) {
	s.mu.Lock()
	s.slot = slot
	if s.haveState {
		if s.state == StateConnecting {
			s.state = StateActive
		}
		s.hub.publish(slot, s.last)
	}
	s.mu.Unlock()
}

// takeSlot marks the session disconnected and returns the slot it held, or
// -1.
func (s *session) takeSlot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slot
	s.slot = -1
	s.state = StateDisconnected
	return slot
}

func (s *session) snapshot() (SessionState, int, pad.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.slot, s.last, s.haveState
}
