// v0
// internal/state/subscribe.go
package state

import "log/slog"

// Subscription is the handle returned by Subscribe. Each call to Subscribe
// yields a distinct handle, even for the same listener.
type Subscription struct {
	id    uint64
	store *Store
}

// ID is the opaque registration token.
func (s Subscription) ID() uint64 {
	return s.id
}

// Unsubscribe removes exactly this registration. It reports false when the
// registration was already removed.
func (s Subscription) Unsubscribe() bool {
	if s.store == nil {
		return false
	}
	return s.store.Unsubscribe(s.id)
}

// Subscribe registers fn to run after every notified change.
func (s *Store) Subscribe(fn Listener) Subscription {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, registration{id: id, fn: fn})
	n := len(s.listeners)
	s.mu.Unlock()
	s.log.Debug("subscriber_added", slog.Uint64("id", id), slog.Int("subscribers", n))
	return Subscription{id: id, store: s}
}

// Unsubscribe removes the registration with the given id.
func (s *Store) Unsubscribe(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.listeners {
		if r.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			s.log.Debug("subscriber_removed", slog.Uint64("id", id), slog.Int("subscribers", len(s.listeners)))
			return true
		}
	}
	return false
}

// Subscribers returns the number of live registrations.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
