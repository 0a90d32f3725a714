package core

import "sync"

// Subject holds a current value and pushes it to subscribers. New subscribers
// receive the current value immediately; every Publish is delivered
// synchronously to all subscribers in subscription order.
type Subject[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)
	order  []int
}

// NewSubject returns a subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial, subs: make(map[int]func(T))}
}

// Value returns the current value.
func (s *Subject[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Subscribe registers fn, calls it with the current value and returns a func
// that removes the subscription.
func (s *Subject[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.order = append(s.order, id)
	current := s.value
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish replaces the current value and notifies subscribers outside the lock.
func (s *Subject[T]) Publish(value T) {
	s.mu.Lock()
	s.value = value
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
