package session

import (
	"context"
	"sync"
	"time"
)

// EventType names an auth-state change.
type EventType string

const (
	EventSignedIn         EventType = "SIGNED_IN"
	EventSignedOut        EventType = "SIGNED_OUT"
	EventUserUpdated      EventType = "USER_UPDATED"
	EventPasswordRecovery EventType = "PASSWORD_RECOVERY"
)

// Event is published whenever a browser client changes its stored session.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an Event with the current time.
func NewEvent(eventType EventType, userID, email string) Event {
	return Event{
		Type:       eventType,
		UserID:     userID,
		Email:      email,
		OccurredAt: time.Now().UTC(),
	}
}

// Broadcaster fans auth-state events out to every subscribed tab.
type Broadcaster interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel of events and a function that ends the
	// subscription. The channel is closed once the subscription ends.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// LocalBroadcaster delivers events to subscribers in the same process.
// Slow subscribers drop events rather than block publishers.
type LocalBroadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

// NewLocalBroadcaster returns a LocalBroadcaster whose subscriber channels
// hold up to buffer pending events.
func NewLocalBroadcaster(buffer int) *LocalBroadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &LocalBroadcaster{
		subs:   map[int]chan Event{},
		buffer: buffer,
	}
}

func (b *LocalBroadcaster) Publish(_ context.Context, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *LocalBroadcaster) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel, nil
}
