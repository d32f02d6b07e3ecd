package repository

import (
	"context"
	"sync"
)

// EventStream realtime collaborator: one subscription per signed-in actor carrying
// insert/update/delete notifications for every message the actor can see.
type EventStream interface {
	Subscribe(ctx context.Context, actorID string) (Subscription, error)
}

// Subscription raw event payloads; Events is closed once the subscription ends
type Subscription interface {
	Events() <-chan []byte
	Close() error
}

// channelSubscription adapts a transport specific pump goroutine to Subscription
type channelSubscription struct {
	events  chan []byte
	cancel  context.CancelFunc
	closeFn func() error

	once sync.Once
	err  error
}

func newChannelSubscription(buffer int, cancel context.CancelFunc, closeFn func() error) *channelSubscription {
	return &channelSubscription{
		events:  make(chan []byte, buffer),
		cancel:  cancel,
		closeFn: closeFn,
	}
}

func (s *channelSubscription) Events() <-chan []byte {
	return s.events
}

// Close stops the pump and releases the transport exactly once
func (s *channelSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		if s.closeFn != nil {
			s.err = s.closeFn()
		}
	})
	return s.err
}
