package hub

import (
	"github.com/padmux/padmux/pad"
)

// EventKind labels a hub event.
type EventKind int

const (
	// EventConnected fires when a controller takes a slot.
	EventConnected EventKind = iota + 1
	// EventQueued fires when a controller arrives while all slots are taken.
	EventQueued
	// EventPromoted fires when a queued controller moves into a freed slot.
	EventPromoted
	// EventDisconnected fires when a session ends. Slot is -1 if the
	// controller was still queued.
	EventDisconnected
	// EventBatteryLow fires once per session on a battery low edge.
	EventBatteryLow
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventQueued:
		return "queued"
	case EventPromoted:
		return "promoted"
	case EventDisconnected:
		return "disconnected"
	case EventBatteryLow:
		return "battery-low"
	default:
		return "unknown"
	}
}

// Event is one hub state change as delivered to subscribers.
type Event struct {
	Kind    EventKind
	Slot    int // -1 for controllers without a slot
	Device  pad.Identity
	Battery pad.Battery // set for EventBatteryLow
}

// Subscribe registers an event listener and returns its channel together
// with a cancel function. The channel closes on cancel or when the hub
// stops. Subscribing to a stopped hub yields an already closed channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.evMu.Lock()
	defer h.evMu.Unlock()
	if h.subs == nil {
		close(ch)
		return ch, func() {}
	}
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch

	return ch, func() {
		h.evMu.Lock()
		defer h.evMu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

const subscriberBuffer = 16

// SubscriberCount reports how many event listeners are registered.
func (h *Hub) SubscriberCount() int {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	return len(h.subs)
}

// emit delivers ev to every subscriber. A subscriber that has fallen
// subscriberBuffer events behind loses this one rather than stalling the
// hub.
func (h *Hub) emit(ev Event) {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeSubs ends every subscription. Later Subscribe calls get closed
// channels.
func (h *Hub) closeSubs() {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.subs = nil
}
