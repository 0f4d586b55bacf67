package notifications

import "sync"

// Subscription is a live listener registration. Dispose removes it and is
// safe to call more than once.
type Subscription interface {
	Dispose()
}

type funcSubscription struct {
	once    sync.Once
	dispose func()
}

// NewSubscription wraps dispose so that it runs at most once.
func NewSubscription(dispose func()) Subscription {
	return &funcSubscription{dispose: dispose}
}

func (s *funcSubscription) Dispose() {
	s.once.Do(func() {
		if s.dispose != nil {
			s.dispose()
		}
	})
}

// Subscriptions groups several registrations under one disposer.
func Subscriptions(subs ...Subscription) Subscription {
	return NewSubscription(func() {
		for _, sub := range subs {
			if sub != nil {
				sub.Dispose()
			}
		}
	})
}
