package messages

import (
	"log"

	"github.com/go-monolith/mono"

	"github.com/dddd2356/sunhan-websocket-backend/events"
)

// Broadcaster is the outbound notification seam. Every call happens strictly
// after the corresponding write commits and is best-effort: a failed delivery
// never rolls the write back.
type Broadcaster interface {
	MessageSent(event events.MessageSentEvent)
	MessageDeleted(event events.MessageDeletedEvent)
	MessageRead(event events.MessageReadEvent)
	UnreadCounts(event events.UnreadCountsEvent)
}

// eventBusBroadcaster publishes broadcasts on the mono EventBus.
type eventBusBroadcaster struct {
	bus mono.EventBus
}

var _ Broadcaster = (*eventBusBroadcaster)(nil)

// NewEventBusBroadcaster creates a Broadcaster backed by the EventBus.
func NewEventBusBroadcaster(bus mono.EventBus) Broadcaster {
	return &eventBusBroadcaster{bus: bus}
}

func (b *eventBusBroadcaster) MessageSent(event events.MessageSentEvent) {
	if err := events.MessageSentV1.Publish(b.bus, event, nil); err != nil {
		log.Printf("[messages] Failed to publish MessageSent event: %v", err)
	}
}

func (b *eventBusBroadcaster) MessageDeleted(event events.MessageDeletedEvent) {
	if err := events.MessageDeletedV1.Publish(b.bus, event, nil); err != nil {
		log.Printf("[messages] Failed to publish MessageDeleted event: %v", err)
	}
}

func (b *eventBusBroadcaster) MessageRead(event events.MessageReadEvent) {
	if err := events.MessageReadV1.Publish(b.bus, event, nil); err != nil {
		log.Printf("[messages] Failed to publish MessageRead event: %v", err)
	}
}

func (b *eventBusBroadcaster) UnreadCounts(event events.UnreadCountsEvent) {
	if err := events.UnreadCountsV1.Publish(b.bus, event, nil); err != nil {
		log.Printf("[messages] Failed to publish UnreadCounts event: %v", err)
	}
}

// nopBroadcaster drops every broadcast. Used until the EventBus is wired.
type nopBroadcaster struct{}

var _ Broadcaster = (*nopBroadcaster)(nil)

func (nopBroadcaster) MessageSent(events.MessageSentEvent)       {}
func (nopBroadcaster) MessageDeleted(events.MessageDeletedEvent) {}
func (nopBroadcaster) MessageRead(events.MessageReadEvent)       {}
func (nopBroadcaster) UnreadCounts(events.UnreadCountsEvent)     {}
