package queue

import (
	"sync"

	"github.com/rs/zerolog"
)

const defaultBuffer = 64

// Broadcaster fans values out to subscribers. Every subscriber owns a
// buffered channel drained by its own goroutine, so each one sees values in
// publish order and a slow subscriber never delays the others' delivery.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscription[T]
	nextID uint64
	buffer int
	closed bool
	log    zerolog.Logger
}

type subscription[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func (s *subscription[T]) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewBroadcaster creates a Broadcaster whose subscribers buffer up to buffer
// values. If buffer <= 0, defaultBuffer is used.
func NewBroadcaster[T any](buffer int, log zerolog.Logger) *Broadcaster[T] {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster[T]{
		subs:   make(map[uint64]*subscription[T]),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers cb. The returned function detaches it and is safe to
// call more than once.
func (b *Broadcaster[T]) Subscribe(cb func(T)) func() {
	return b.subscribe(cb, nil)
}

// SubscribeFrom registers cb and delivers initial to it before any value
// published afterwards.
func (b *Broadcaster[T]) SubscribeFrom(initial T, cb func(T)) func() {
	return b.subscribe(cb, &initial)
}

func (b *Broadcaster[T]) subscribe(cb func(T), initial *T) func() {
	sub := &subscription[T]{
		ch:   make(chan T, b.buffer),
		done: make(chan struct{}),
	}
	if initial != nil {
		sub.ch <- *initial
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	go b.run(id, sub, cb)

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.stop()
	}
}

// Publish enqueues v for every current subscriber. It blocks while a
// subscriber's buffer is full. Concurrent publishers must be serialised by
// the caller for subscribers to agree on one order.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	subs := make([]*subscription[T], 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- v:
		case <-s.done:
		}
	}
}

// Close detaches every subscriber. Later subscriptions are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		s.stop()
		delete(b.subs, id)
	}
}

func (b *Broadcaster[T]) run(id uint64, sub *subscription[T], cb func(T)) {
	for {
		select {
		case <-sub.done:
			return
		case v := <-sub.ch:
			b.deliver(id, cb, v)
		}
	}
}

func (b *Broadcaster[T]) deliver(id uint64, cb func(T), v T) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Uint64("subscriber_id", id).Msg("subscriber panicked")
		}
	}()
	cb(v)
}
