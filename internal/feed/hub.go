// Package feed announces committed ledger records to interested readers.
// Notifications carry no data beyond the account and direction that changed;
// readers re-query the ledger, so pending notifications coalesce safely.
package feed

import (
	"context" // Publisher signature
	"sync"    // Subscriber registry

	"peerpay/internal/domain" // Domain models
)

// Hub fans notifications out to in-process subscribers
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub returns an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Publish notifies the sender's outgoing stream and the receiver's incoming stream
func (h *Hub) Publish(_ context.Context, rec *domain.TransferRecord) error {
	h.Notify(rec.FromAccountID, domain.DirectionOut)
	h.Notify(rec.ToAccountID, domain.DirectionIn)
	return nil
}

// Notify marks accountID's dir stream as changed for every subscriber of that account
func (h *Hub) Notify(accountID string, dir domain.Direction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[accountID] {
		sub.mark(dir)
	}
}

// Subscribe starts receiving notifications for one account
func (h *Hub) Subscribe(accountID string) *Subscription {
	sub := &Subscription{
		hub:       h,
		accountID: accountID,
		signal:    make(chan struct{}, 1),
	}
	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[*Subscription]struct{})
	}
	h.subs[accountID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers returns how many subscriptions are open for the account
func (h *Hub) Subscribers(accountID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[accountID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.accountID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.accountID)
	}
}

// Subscription collects pending directions for one account
type Subscription struct {
	hub       *Hub
	accountID string
	signal    chan struct{}

	mu      sync.Mutex
	pending map[domain.Direction]bool
	closed  bool
}

// C fires when at least one direction has pending changes
func (s *Subscription) C() <-chan struct{} {
	return s.signal
}

// Pending returns and clears the changed directions, outgoing first
func (s *Subscription) Pending() []domain.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirs []domain.Direction
	for _, d := range []domain.Direction{domain.DirectionOut, domain.DirectionIn} {
		if s.pending[d] {
			dirs = append(dirs, d)
		}
	}
	s.pending = nil
	return dirs
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.remove(s)
}

// Requeue marks dir pending again, as if another change had arrived
func (s *Subscription) Requeue(dir domain.Direction) {
	s.mark(dir)
}

func (s *Subscription) mark(dir domain.Direction) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending == nil {
		s.pending = make(map[domain.Direction]bool, 2)
	}
	s.pending[dir] = true
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
		// Already signaled
	}
}
