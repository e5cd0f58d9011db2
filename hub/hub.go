// Package hub coordinates controller sessions and the virtual slot pool. It
// admits controllers announced by transport watchers, runs one session per
// physical device, publishes decoded state to numbered slots and routes
// feedback commands back to the owning device.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/padmux/padmux/codec"
	"github.com/padmux/padmux/internal/log"
	"github.com/padmux/padmux/pad"
	"github.com/padmux/padmux/transport"
)

// Hub owns every device session and the slot pool. A Hub runs at most once:
// after Stop it stays stopped.
//
// Lock order is hub, then session, then cell; transport I/O never happens
// under any of them.
type Hub struct {
	config    Config
	logger    *slog.Logger
	rawLogger log.RawLogger
	notifier  Notifier

	runCtx  context.Context
	runStop context.CancelFunc

	mu       sync.Mutex
	started  bool
	watchers []transport.Watcher
	sessions map[pad.Identity]*session
	pool     *slotPool

	cells []cell

	evMu    sync.Mutex
	subs    map[int]chan Event
	nextSub int

	events chan transport.Event
	wg     sync.WaitGroup // dispatch and watcher goroutines
	sessWg sync.WaitGroup // session loops
}

// cell is one slot's published state. Cells are leaf locks: nothing else is
// locked while one is held.
type cell struct {
	mu sync.RWMutex
	st pad.State
}

// New creates a hub. Zero config fields take their defaults; inconsistent
// thresholds are rejected.
func New(config Config, logger *slog.Logger, rawLogger log.RawLogger) (*Hub, error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("hub config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &Hub{
		config:    config,
		logger:    logger,
		rawLogger: rawLogger,
		notifier:  nopNotifier{},
		sessions:  make(map[pad.Identity]*session),
		pool:      newSlotPool(config.MaxSlots),
		cells:     make([]cell, config.MaxSlots),
		subs:      make(map[int]chan Event),
		events:    make(chan transport.Event, 16),
	}, nil
}

// AddWatcher registers a transport watcher. Watchers must be added before
// Start.
func (h *Hub) AddWatcher(w transport.Watcher) error {
	if w == nil {
		return fmt.Errorf("watcher is nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return ErrAlreadyStarted
	}
	h.watchers = append(h.watchers, w)
	return nil
}

// SetNotifier installs the cue sink. Must be called before Start.
func (h *Hub) SetNotifier(n Notifier) error {
	if n == nil {
		return fmt.Errorf("notifier is nil")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return ErrAlreadyStarted
	}
	h.notifier = n
	return nil
}

// Start launches the transport watchers and begins admitting controllers. It
// returns once the hub is running; cancelling ctx begins the same teardown
// Stop performs. A hub starts at most once: every later call returns
// ErrAlreadyStarted, even after the hub stopped.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return ErrAlreadyStarted
	}
	h.started = true
	h.runCtx, h.runStop = context.WithCancel(ctx)
	watchers := make([]transport.Watcher, len(h.watchers))
	copy(watchers, h.watchers)
	h.mu.Unlock()

	h.wg.Add(1)
	go h.dispatch()

	for _, w := range watchers {
		h.wg.Add(1)
		go h.watch(w)
	}

	h.logger.Info("hub started", "slots", h.config.MaxSlots, "watchers", len(watchers))
	return nil
}

// Stop tears the hub down: watchers stop, every session closes its device
// channel, and Stop returns only after all of them are gone. Stopping a hub
// that never started is a no-op.
func (h *Hub) Stop() error {
	h.mu.Lock()
	stop := h.runStop
	h.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()
	h.wg.Wait()

	// Watchers are gone; release channels from undispatched arrivals.
drain:
	for {
		select {
		case ev := <-h.events:
			if ev.Channel != nil {
				_ = ev.Channel.Close()
			}
		default:
			break drain
		}
	}

	h.sessWg.Wait()
	h.closeSubs()
	h.logger.Info("hub stopped")
	return nil
}

func (h *Hub) watch(w transport.Watcher) {
	defer h.wg.Done()
	if err := w.Watch(h.runCtx, h.events); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("transport watcher failed", "error", err)
	}
}

// dispatch serializes hotplug events, so admission decisions for concurrent
// arrivals are taken one at a time.
func (h *Hub) dispatch() {
	defer h.wg.Done()
	for {
		select {
		case <-h.runCtx.Done():
			return
		case ev := <-h.events:
			switch ev.Kind {
			case transport.Arrived:
				h.admit(ev)
			case transport.Left:
				h.expel(ev.Identity)
			}
		}
	}
}

// admit creates a session for an announced controller, taking a slot when
// one is free and queueing otherwise. An identity with a live session is
// rejected; the duplicate channel is closed.
func (h *Hub) admit(ev transport.Event) {
	if ev.Channel == nil {
		return
	}
	dec := codec.Lookup(ev.Identity.Model, ev.Identity.Transport)
	if dec == nil {
		h.logger.Warn("no codec for device, ignoring", "device", ev.Identity.String())
		_ = ev.Channel.Close()
		return
	}

	h.mu.Lock()
	if _, ok := h.sessions[ev.Identity]; ok {
		h.mu.Unlock()
		h.logger.Debug("duplicate arrival ignored", "device", ev.Identity.String())
		_ = ev.Channel.Close()
		return
	}
	s := newSession(h, ev.Identity, ev.Channel, dec)
	h.sessions[ev.Identity] = s
	slot := h.pool.acquire(s)
	h.mu.Unlock()

	if slot >= 0 {
		s.adopt(slot)
		h.logger.Info("controller connected", "device", ev.Identity.String(), "slot", slot)
		s.queueFeedback(slotFeedback(slot))
		h.notifier.Play(CueConnect)
		h.emit(Event{Kind: EventConnected, Slot: slot, Device: ev.Identity})
	} else {
		h.logger.Info("controller waiting for a free slot", "device", ev.Identity.String())
		h.emit(Event{Kind: EventQueued, Slot: -1, Device: ev.Identity})
	}
	s.start()
}

// expel cancels the session of a departed controller. Cleanup happens on the
// session's own goroutine.
func (h *Hub) expel(id pad.Identity) {
	h.mu.Lock()
	s := h.sessions[id]
	h.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
}

// sessionDone finalizes a session after its loops exit: the identity frees
// up for reconnects and the slot, if any, moves to the next waiter.
func (h *Hub) sessionDone(s *session) {
	h.mu.Lock()
	if h.sessions[s.id] == s {
		delete(h.sessions, s.id)
	}
	slot := s.takeSlot()
	var promoted *session
	if slot >= 0 {
		h.publish(slot, pad.State{})
		promoted = h.pool.release(slot)
	} else {
		h.pool.drop(s)
	}
	h.mu.Unlock()

	h.emit(Event{Kind: EventDisconnected, Slot: slot, Device: s.id})
	if slot < 0 {
		return
	}
	h.logger.Info("controller disconnected", "device", s.id.String(), "slot", slot)
	h.notifier.Play(CueDisconnect)

	if promoted != nil {
		promoted.adopt(slot)
		h.logger.Info("controller promoted from queue", "device", promoted.id.String(), "slot", slot)
		promoted.queueFeedback(slotFeedback(slot))
		h.notifier.Play(CueConnect)
		h.emit(Event{Kind: EventPromoted, Slot: slot, Device: promoted.id})
	}
}

// slotFeedback is the admission command: the slot's player color and number.
func slotFeedback(slot int) pad.Feedback {
	return pad.Feedback{Led: pad.SlotLed(slot), Player: uint8(slot + 1)}
}

func (h *Hub) publish(slot int, st pad.State) {
	c := &h.cells[slot]
	c.mu.Lock()
	c.st = st
	c.mu.Unlock()
}

// ReadSlot returns the latest published state for a slot. Vacant slots read
// as the zero State.
func (h *Hub) ReadSlot(slot int) (pad.State, error) {
	if slot < 0 || slot >= len(h.cells) {
		return pad.State{}, fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	c := &h.cells[slot]
	c.mu.RLock()
	st := c.st
	c.mu.RUnlock()
	return st, nil
}

// SubmitFeedback queues a feedback command for the controller in a slot. A
// newer command supersedes an unsent one. Feedback for a vacant slot is
// dropped; only an out-of-range index is an error.
func (h *Hub) SubmitFeedback(slot int, fb pad.Feedback) error {
	if slot < 0 || slot >= len(h.cells) {
		return fmt.Errorf("%w: %d", ErrSlotRange, slot)
	}
	h.mu.Lock()
	s := h.pool.at(slot)
	h.mu.Unlock()
	if s == nil {
		h.logger.Debug("feedback for vacant slot dropped", "slot", slot)
		return nil
	}
	s.queueFeedback(fb)
	return nil
}

// SlotInfo describes one slot's occupancy.
type SlotInfo struct {
	Index    int
	Occupied bool
	Device   pad.Identity
	State    SessionState
	Battery  pad.Battery
}

// Slots reports the occupancy of every slot, in index order.
func (h *Hub) Slots() []SlotInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SlotInfo, len(h.cells))
	for i := range out {
		info := SlotInfo{Index: i}
		if s := h.pool.at(i); s != nil {
			state, _, last, _ := s.snapshot()
			info.Occupied = true
			info.Device = s.id
			info.State = state
			info.Battery = last.Battery
		}
		out[i] = info
	}
	return out
}

// DeviceInfo describes one live session.
type DeviceInfo struct {
	Device  pad.Identity
	State   SessionState
	Slot    int // -1 while waiting for a slot
	Pending bool
}

// Devices lists every live session, slot holders first, then the pending
// queue by address.
func (h *Hub) Devices() []DeviceInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]DeviceInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		state, slot, _, _ := s.snapshot()
		out = append(out, DeviceInfo{Device: s.id, State: state, Slot: slot, Pending: slot < 0})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Slot, out[j].Slot
		if si < 0 {
			si = len(h.cells)
		}
		if sj < 0 {
			sj = len(h.cells)
		}
		if si != sj {
			return si < sj
		}
		return out[i].Device.Addr < out[j].Device.Addr
	})
	return out
}

// PendingCount returns how many controllers are waiting for a slot.
func (h *Hub) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pool.pendingCount()
}
