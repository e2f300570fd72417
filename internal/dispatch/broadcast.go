package dispatch

import (
	"sync"

	"github.com/tamsinwray/meshconsole/internal/twin"
)

// listenerBuffer is the per-listener queue depth. When a listener falls
// behind, the oldest queued state is dropped so the latest always lands.
const listenerBuffer = 16

// Channel fans device states out to the listeners of one device.
//
// Its mutex is the per-device critical section: Broadcast applies the
// store update and delivers while holding it, and Listen reads the
// snapshot and registers while holding it. That ordering guarantees a
// new listener sees every state exactly once, either in its snapshot or
// live, regardless of racing publishes.
type Channel struct {
	mu        sync.Mutex
	listeners map[uint64]chan twin.State
	nextID    uint64
	closed    bool
}

// newChannel creates a channel with no listeners.
func newChannel() *Channel {
	return &Channel{
		listeners: make(map[uint64]chan twin.State),
	}
}

// Broadcast runs apply under the channel lock and delivers its result to
// every listener. Racing broadcasts serialize; each listener observes
// them in a single order.
func (c *Channel) Broadcast(apply func() twin.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := apply()
	if c.closed {
		return
	}

	for _, ch := range c.listeners {
		deliver(ch, st)
	}
}

// deliver enqueues a state, evicting the oldest entry if the listener's
// queue is full.
func deliver(ch chan twin.State, st twin.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscription is a listener's live stream of device states.
// C completes (is closed) when the subscription is cancelled or the
// channel shuts down.
type Subscription struct {
	C      <-chan twin.State
	cancel func()
}

// Cancel detaches the listener and completes its stream. Idempotent.
func (s *Subscription) Cancel() {
	s.cancel()
}

// emptySubscription returns an already-completed stream.
// Used for subscribers without a claimed device.
func emptySubscription() *Subscription {
	ch := make(chan twin.State)
	close(ch)
	return &Subscription{C: ch, cancel: func() {}}
}

// Listen registers a listener seeded with a snapshot.
//
// The snapshot func runs under the channel lock and should return the
// stored state (and whether one exists). When it reports true, the
// snapshot is the first item on the stream, ahead of any live state.
func (c *Channel) Listen(snapshot func() (twin.State, bool)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan twin.State, listenerBuffer)
	if st, ok := snapshot(); ok {
		ch <- st
	}

	if c.closed {
		close(ch)
		return &Subscription{C: ch, cancel: func() {}}
	}

	id := c.nextID
	c.nextID++
	c.listeners[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.listeners[id]; ok {
				delete(c.listeners, id)
				close(ch)
			}
		})
	}

	return &Subscription{C: ch, cancel: cancel}
}

// closeAll completes every listener stream and rejects future delivery.
// Returns the number of listeners that were detached.
func (c *Channel) closeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	c.closed = true

	n := len(c.listeners)
	for id, ch := range c.listeners {
		delete(c.listeners, id)
		close(ch)
	}

	return n
}

// Registry hands out one broadcast channel per device id.
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
	}
}

// Get returns the channel for a device, creating it on first use.
// Concurrent calls for the same id return the same channel.
func (r *Registry) Get(deviceID string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[deviceID]
	if !ok {
		ch = newChannel()
		r.channels[deviceID] = ch
	}
	return ch
}

// CloseAll completes every listener stream on every channel.
// Returns the total number of listeners detached.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, ch := range r.channels {
		total += ch.closeAll()
	}
	return total
}
