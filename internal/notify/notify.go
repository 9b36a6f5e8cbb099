// Package notify delivers session notifications to the control surface.
//
// The controller publishes a Notification whenever a capture or playback
// session changes state, an event is captured or replayed, or the profile
// selection changes. Observers subscribe to every notification or to a
// kind prefix such as "playback".
package notify

import (
	"slices"
	"sync"
)

// Kind identifies a notification. Kinds are dot-separated; the first
// segment names the source.
type Kind string

const (
	CaptureStarted Kind = "capture.started"
	CaptureEvent   Kind = "capture.event"
	CaptureStopped Kind = "capture.stopped"

	PlaybackStarted   Kind = "playback.started"
	PlaybackIteration Kind = "playback.iteration"
	PlaybackEvent     Kind = "playback.event"
	PlaybackFinished  Kind = "playback.finished"
	PlaybackFailed    Kind = "playback.failed"

	// ProfileChanged is sent when the active profile is swapped.
	ProfileChanged Kind = "profile.changed"

	// ProfilesChanged is sent when the set of available profiles may
	// have changed on disk.
	ProfilesChanged Kind = "profiles.changed"
)

// Source returns the first segment of the kind.
func (k Kind) Source() string {
	for i := 0; i < len(k); i++ {
		if k[i] == '.' {
			return string(k[:i])
		}
	}
	return string(k)
}

// Notification is the payload delivered to observers.
type Notification struct {
	Kind Kind

	// Count is the number of captured events (capture.*) or the index
	// of the executed event (playback.event).
	Count int

	// Iteration is the 1-based loop iteration (playback.*).
	Iteration int

	// Cancelled reports a user stop (playback.finished).
	Cancelled bool

	// Profile is the active profile name (profile.changed) or the
	// changed document path (profiles.changed).
	Profile string

	// Err is the failure (playback.failed, capture.stopped).
	Err error
}

// Observer is called for each delivered notification.
type Observer func(Notification)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type entry struct {
	prefix   string
	observer Observer
}

// Notifier manages notification subscriptions.
type Notifier struct {
	mu sync.RWMutex

	observers map[uint64]entry
	nextID    uint64

	async  bool
	buffer chan Notification
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync delivers notifications on a dedicated goroutine so that
// publishers never run observer code. A full buffer blocks the publisher.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Notification, bufferSize)
		}
	}
}

// New creates a Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		observers: make(map[uint64]entry),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}
	return n
}

// Subscribe registers an observer for all notifications.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribeKind("", observer)
}

// SubscribeKind registers an observer for one kind or a kind prefix.
// "playback" receives "playback.started", "playback.event" and so on.
func (n *Notifier) SubscribeKind(prefix string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = entry{prefix: prefix, observer: observer}

	return &Subscription{id: id, notifier: n}
}

// Notify publishes a notification. It is a no-op after Close and on a
// nil Notifier.
func (n *Notifier) Notify(note Notification) {
	if n == nil {
		return
	}

	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- note:
		case <-n.done:
		}
		return
	}

	n.deliver(note)
}

// Close shuts down the notifier, draining any buffered notifications.
// It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// deliver calls matching observers in subscription order, outside the lock.
func (n *Notifier) deliver(note Notification) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.observers))
	for id, e := range n.observers {
		if matches(e.prefix, note.Kind) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = n.observers[id].observer
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(note)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case note := <-n.buffer:
			n.deliver(note)
		case <-n.done:
			for {
				select {
				case note := <-n.buffer:
					n.deliver(note)
				default:
					return
				}
			}
		}
	}
}

// matches reports whether prefix selects kind: empty, exact, or a parent
// segment ("capture" matches "capture.event").
func matches(prefix string, kind Kind) bool {
	k := string(kind)
	if prefix == "" || prefix == k {
		return true
	}
	return len(k) > len(prefix) && k[:len(prefix)] == prefix && k[len(prefix)] == '.'
}
