package store

import "sync"

// EntityKind identifies which table an Event refers to.
type EntityKind string

const (
	KindIdentity EntityKind = "identity"
	KindRecord   EntityKind = "record"
	KindUpload   EntityKind = "upload"
	KindSignup   EntityKind = "signup"
)

// Event describes a change to the local store. OwnerID is empty for events
// not scoped to one identity.
type Event struct {
	Kind    EntityKind
	OwnerID string
}

// Notifier is a small non-blocking pub/sub hub. The UI layer subscribes to
// re-query per-owner record lists and pending counters when something
// changes; services publish after every write that affects those views.
//
// Delivery is best-effort: a subscriber that is not draining its channel
// misses events rather than blocking writers. Subscribers treat an event as
// a hint to re-read, so a missed event is harmless as long as a later one
// arrives, and buffered channels make that the common case.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned cancel function must be
// called to release the subscription.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan Event, 16)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// SubscribeRecords delivers only record events for one owner, for UI lists
// keyed by the signed-in identity. Events published under a different owner
// are dropped.
func (n *Notifier) SubscribeRecords(ownerID string) (<-chan Event, func()) {
	return n.filtered(func(e Event) bool {
		return e.Kind == KindRecord && e.OwnerID == ownerID
	})
}

// SubscribePending delivers every event that can change the pending-work
// counters, for sync-status indicators.
func (n *Notifier) SubscribePending() (<-chan Event, func()) {
	return n.filtered(func(e Event) bool { return true })
}

func (n *Notifier) filtered(keep func(Event) bool) (<-chan Event, func()) {
	src, cancel := n.Subscribe()
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for e := range src {
			if !keep(e) {
				continue
			}
			select {
			case out <- e:
			default:
			}
		}
	}()
	return out, cancel
}

// Publish sends the event to all current subscribers without blocking.
func (n *Notifier) Publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// CloseAll drops every subscription, closing the channels.
func (n *Notifier) CloseAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
