package exchange

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind names a committed change worth telling the parties about.
type EventKind string

const (
	EventCreated        EventKind = "CREATED"
	EventAccepted       EventKind = "ACCEPTED"
	EventRejected       EventKind = "REJECTED"
	EventAutoRejected   EventKind = "AUTO_REJECTED"
	EventModified       EventKind = "MODIFIED"
	EventCounterOffered EventKind = "COUNTER_OFFERED"
	EventConfirmed      EventKind = "CONFIRMED"
	EventCompleted      EventKind = "COMPLETED"
	EventCancelled      EventKind = "CANCELLED"
)

// Event is the published record of a committed transition.
type Event struct {
	EventID         uuid.UUID   `json:"eventId"`
	Kind            EventKind   `json:"kind"`
	ExchangeID      uuid.UUID   `json:"exchangeId"`
	Status          Status      `json:"status"`
	OwnerID         uuid.UUID   `json:"ownerId"`
	RequesterID     uuid.UUID   `json:"requesterId"`
	RequestedItemID uuid.UUID   `json:"requestedItemId"`
	OfferedItemIDs  []uuid.UUID `json:"offeredItemIds"`
	ActorID         *uuid.UUID  `json:"actorId,omitempty"`
	OccurredAt      time.Time   `json:"occurredAt"`
}

// NewEvent snapshots ex after a transition. A nil actor means the system acted.
func NewEvent(ex *Exchange, kind EventKind, actorID *uuid.UUID) *Event {
	return &Event{
		EventID:         uuid.New(),
		Kind:            kind,
		ExchangeID:      ex.ExchangeID,
		Status:          ex.Status,
		OwnerID:         ex.OwnerID,
		RequesterID:     ex.RequesterID,
		RequestedItemID: ex.RequestedItemID,
		OfferedItemIDs:  ex.OfferedItemIDs(),
		ActorID:         actorID,
		OccurredAt:      ex.UpdatedAt,
	}
}

// EventPublisher ships events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }
