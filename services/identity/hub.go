package identity

import (
	"sync"

	"github.com/trezcool/edutrack/core/auth"
)

const subscriptionBuffer = 16

// hub fans auth-state events out to the subscriptions.
type hub struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
}

type subscription struct {
	h      *hub
	ch     chan auth.Event
	closed chan struct{}
	once   sync.Once
}

var _ auth.Subscription = (*subscription)(nil)

func newHub() *hub {
	return &hub{subs: make(map[*subscription]struct{})}
}

func (h *hub) subscribe() *subscription {
	sub := &subscription{
		h:      h,
		ch:     make(chan auth.Event, subscriptionBuffer),
		closed: make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// publish delivers ev to every live subscription, in order. It blocks on a full subscription until it drains or is released.
func (h *hub) publish(ev auth.Event) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- ev:
		case <-sub.closed:
		}
	}
}

func (s *subscription) Events() <-chan auth.Event { return s.ch }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.h.mu.Lock()
		delete(s.h.subs, s)
		s.h.mu.Unlock()
		close(s.closed)
	})
}
