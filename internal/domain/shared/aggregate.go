package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and audit timestamps shared by persisted entities
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch moves UpdatedAt to now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised
// since the aggregate was loaded. Version starts at 1 and is bumped by the
// repository on every successful write.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	events []DomainEvent
}

// NewBaseAggregateRoot stamps a fresh id at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

// Raise queues an event for publication after the next commit
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.events = append(a.events, event)
}

// PendingEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.events
}

// PullEvents returns the queued events and clears the queue
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}

// AggregateID returns the aggregate identity
func (a *BaseAggregateRoot) AggregateID() uuid.UUID {
	return a.ID
}

// EventSource is an aggregate whose events are drained after commit
type EventSource interface {
	AggregateID() uuid.UUID
	PullEvents() []DomainEvent
}
