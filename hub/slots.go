package hub

// slotPool hands out slot indexes first-free ascending and keeps the
// overflow queue in arrival order. It is not safe for concurrent use; the
// hub's lock guards every call.
type slotPool struct {
	slots   []*session
	pending []*session
}

func newSlotPool(n int) *slotPool {
	return &slotPool{slots: make([]*session, n)}
}

// acquire assigns the lowest vacant slot to s, or queues s behind earlier
// waiters when every slot is taken. Returns the slot index, or -1 when
// queued.
func (p *slotPool) acquire(s *session) int {
	for i, cur := range p.slots {
		if cur == nil {
			p.slots[i] = s
			return i
		}
	}
	p.pending = append(p.pending, s)
	return -1
}

// release vacates idx and hands it straight to the longest-waiting pending
// session, if any. Returns the promoted session, or nil.
func (p *slotPool) release(idx int) *session {
	p.slots[idx] = nil
	if len(p.pending) == 0 {
		return nil
	}
	next := p.pending[0]
	p.pending = append(p.pending[:0], p.pending[1:]...)
	p.slots[idx] = next
	return next
}

// drop removes s from the pending queue. Returns false when s is not queued.
func (p *slotPool) drop(s *session) bool {
	for i, cur := range p.pending {
		if cur == s {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (p *slotPool) at(idx int) *session { return p.slots[idx] }

func (p *slotPool) pendingCount() int { return len(p.pending) }
