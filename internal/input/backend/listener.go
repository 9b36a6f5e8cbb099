package backend

import (
	"sync"
	"sync/atomic"
)

// listenerBuffer is the number of events queued per listener before
// delivery blocks the producer.
const listenerBuffer = 64

// listener owns the goroutine that runs a subscriber's handler.
type listener[T any] struct {
	events   chan T
	done     chan struct{}
	handler  func(T)
	detached atomic.Bool
	once     sync.Once
	onDetach func()
}

func newListener[T any](handler func(T), onDetach func()) *listener[T] {
	l := &listener[T]{
		events:   make(chan T, listenerBuffer),
		done:     make(chan struct{}),
		handler:  handler,
		onDetach: onDetach,
	}
	go l.run()
	return l
}

func (l *listener[T]) run() {
	for {
		select {
		case ev := <-l.events:
			if l.detached.Load() {
				return
			}
			l.handler(ev)
		case <-l.done:
			return
		}
	}
}

// deliver queues an event. It reports false once the listener is detached.
func (l *listener[T]) deliver(ev T) bool {
	if l.detached.Load() {
		return false
	}
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}

// Detach implements Subscription.
func (l *listener[T]) Detach() error {
	l.once.Do(func() {
		l.detached.Store(true)
		close(l.done)
		if l.onDetach != nil {
			l.onDetach()
		}
	})
	return nil
}

// listenerSet is a concurrency-safe set of listeners of one kind.
type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID uint64
	items  map[uint64]*listener[T]
}

func (s *listenerSet[T]) add(handler func(T)) *listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items == nil {
		s.items = make(map[uint64]*listener[T])
	}
	s.nextID++
	id := s.nextID
	l := newListener(handler, func() { s.remove(id) })
	s.items[id] = l
	return l
}

func (s *listenerSet[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *listenerSet[T]) snapshot() []*listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*listener[T], 0, len(s.items))
	for _, l := range s.items {
		out = append(out, l)
	}
	return out
}

// broadcast delivers ev to every attached listener and returns how many
// accepted it.
func (s *listenerSet[T]) broadcast(ev T) int {
	n := 0
	for _, l := range s.snapshot() {
		if l.deliver(ev) {
			n++
		}
	}
	return n
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *listenerSet[T]) detachAll() {
	for _, l := range s.snapshot() {
		_ = l.Detach()
	}
}
