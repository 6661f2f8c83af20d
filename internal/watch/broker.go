// Package watch fans project status changes out to any number of
// subscribers. The lifecycle manager publishes; CLI watch sessions
// subscribe.
package watch

import (
	"context"
	"sort"
	"sync"

	"dockhand/internal/lifecycle"
)

const subscriberBufferCap = 128

// Broker is a single-topic status broker. A subscriber first receives the
// current snapshot, then live changes. Publishing never blocks: a
// subscriber that stops draining misses changes instead of stalling the
// publisher.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]chan lifecycle.StatusChange
	nextID uint64
	latest map[string]lifecycle.StatusChange
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[uint64]chan lifecycle.StatusChange),
		latest: make(map[string]lifecycle.StatusChange),
	}
}

var _ lifecycle.Publisher = (*Broker)(nil)

// Publish records the change as the project's latest state and fans it out.
func (b *Broker) Publish(change lifecycle.StatusChange) {
	b.mu.Lock()
	b.latest[change.Project] = change
	for _, sub := range b.subs {
		select {
		case sub <- change:
		default:
		}
	}
	b.mu.Unlock()
}

// Forget drops the retained state for a deleted project so it no longer
// appears in snapshots.
func (b *Broker) Forget(project string) {
	b.mu.Lock()
	delete(b.latest, project)
	b.mu.Unlock()
}

// Subscribe registers a subscriber bound to ctx. The returned snapshot holds
// the last known change per project, sorted by project name; the channel
// carries everything published afterwards and closes when ctx is done.
func (b *Broker) Subscribe(ctx context.Context) ([]lifecycle.StatusChange, <-chan lifecycle.StatusChange) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan lifecycle.StatusChange, subscriberBufferCap)
	b.subs[id] = ch

	snapshot := make([]lifecycle.StatusChange, 0, len(b.latest))
	for _, change := range b.latest {
		snapshot = append(snapshot, change)
	}
	b.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Project < snapshot[j].Project })

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()
	return snapshot, ch
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers reports the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
