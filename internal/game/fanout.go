package game

import (
	"log"
	"sync"
)

// Subscriber is an outbound sink for one connected client. TrySend must
// not block; Kick closes the underlying transport.
type Subscriber interface {
	Key() string
	TrySend(data []byte) bool
	Kick()
}

// Fanout is the per-session broadcast channel. Every accepted transition
// publishes exactly one frame; subscribers that cannot keep up are kicked
// rather than allowed to stall the game.
type Fanout struct {
	mu   sync.Mutex
	subs map[string]Subscriber
}

func newFanout() *Fanout {
	return &Fanout{subs: make(map[string]Subscriber)}
}

// Subscribe adds a sink. Re-subscribing with the same key replaces the
// previous sink, which covers reconnects.
func (f *Fanout) Subscribe(sub Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[sub.Key()] = sub
}

// Unsubscribe removes a sink by key.
func (f *Fanout) Unsubscribe(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, key)
}

// Publish delivers a frame to every subscriber. A full outbound buffer
// forfeits the subscriber's right to stay connected.
func (f *Fanout) Publish(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, sub := range f.subs {
		if !sub.TrySend(data) {
			log.Printf("[GAME] Dropping slow subscriber %s", key)
			delete(f.subs, key)
			sub.Kick()
		}
	}
}

// Len reports the current subscriber count.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
