// Package shutdown provides the process-wide terminate broadcast.
//
// A Bus fans one payload-free terminate event out to every live Subscription.
// Publishing is idempotent: subscribers observe the first event that reaches
// them and ignore the rest, and publishing after every subscriber has gone
// away is a no-op.
package shutdown

import (
	"context"
	"errors"
	"sync"

	"github.com/rbright/pose/internal/metrics"
)

// ErrClosed is returned by Wait when the subscription was closed before any
// terminate event arrived.
var ErrClosed = errors.New("shutdown subscription closed")

// Publisher is the publish-side capability handed to components that may
// initiate shutdown.
type Publisher interface {
	Publish(reason string) error
}

// Bus is the terminate broadcast. The zero value is not usable; call New.
type Bus struct {
	mu        sync.Mutex
	subs      map[*Subscription]struct{}
	published int
}

func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. Events published before this call
// are not replayed.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{
		bus:    b,
		fired:  make(chan struct{}),
		closed: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers one terminate event to every live subscriber. It never
// blocks and never fails.
func (b *Bus) Publish(reason string) error {
	metrics.IncShutdownPublish(reason)

	b.mu.Lock()
	b.published++
	live := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		live = append(live, s)
	}
	b.mu.Unlock()

	for _, s := range live {
		s.fire()
	}
	return nil
}

// Published returns how many times Publish has been called.
func (b *Bus) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is one subscriber handle.
type Subscription struct {
	bus *Bus

	fireOnce  sync.Once
	fired     chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

// Done is closed when the first terminate event reaches this subscription.
func (s *Subscription) Done() <-chan struct{} {
	return s.fired
}

// Wait suspends until a terminate event arrives, the subscription is closed,
// or ctx ends.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.fired:
		return nil
	default:
	}

	select {
	case <-s.fired:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.remove(s)
		close(s.closed)
	})
}

func (s *Subscription) fire() {
	s.fireOnce.Do(func() { close(s.fired) })
}
