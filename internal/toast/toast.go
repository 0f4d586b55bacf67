// Package toast holds the single "current notification" slot shown to the user.
package toast

import (
	"sync"
	"time"

	"github.com/eternisai/push-bridge/internal/clock"
	"github.com/eternisai/push-bridge/internal/notifications"
)

// DefaultTimeout is how long a toast stays up without an explicit close.
const DefaultTimeout = 5 * time.Second

// Toast is the notification currently on screen.
type Toast struct {
	ID        uint64               `json:"id"`
	Title     string               `json:"title"`
	Body      string               `json:"body"`
	Source    notifications.Source `json:"source"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Slot holds at most one toast. Show replaces, never queues.
type Slot struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeout  time.Duration
	current  *Toast
	timer    clock.Timer
	seq      uint64
	onChange func(*Toast)
}

// Option configures a Slot.
type Option func(*Slot)

// WithClock overrides the timer source.
func WithClock(c clock.Clock) Option {
	return func(s *Slot) {
		s.clock = c
	}
}

// WithTimeout overrides the auto-close delay.
func WithTimeout(d time.Duration) Option {
	return func(s *Slot) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// OnChange registers a callback invoked (outside the slot's lock) with the new
// toast after every show, or nil after every close.
func OnChange(fn func(*Toast)) Option {
	return func(s *Slot) {
		s.onChange = fn
	}
}

// NewSlot creates an empty slot.
func NewSlot(opts ...Option) *Slot {
	s := &Slot{
		clock:   clock.Real{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Show replaces the current toast and restarts the auto-close timer.
func (s *Slot) Show(title, body string, source notifications.Source) Toast {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	id := s.seq
	t := Toast{
		ID:        id,
		Title:     title,
		Body:      body,
		Source:    source,
		CreatedAt: s.clock.Now(),
	}
	s.current = &t
	s.timer = s.clock.AfterFunc(s.timeout, func() { s.expire(id) })
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		shown := t
		onChange(&shown)
	}
	return t
}

// ShowEvent shows a normalized notification event.
func (s *Slot) ShowEvent(e notifications.Event) Toast {
	e = e.Normalized()
	return s.Show(e.Title, e.Body, e.Source)
}

// Close clears the slot and cancels the pending auto-close.
func (s *Slot) Close() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(nil)
	}
}

// Current returns the toast on screen, if any.
func (s *Slot) Current() (Toast, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Toast{}, false
	}
	return *s.current, true
}

// expire closes the toast with the given id if it is still the one shown.
func (s *Slot) expire(id uint64) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != id {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	onChange := s.onChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(nil)
	}
}

func (s *Slot) clearLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = nil
}
