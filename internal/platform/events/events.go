// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EmployeeCreated       = "employee.created"
	EmployeeUpdated       = "employee.updated"
	EmployeeStatusChanged = "employee.status_changed"
	EmployeeTerminated    = "employee.terminated"
	LeaveSubmitted        = "leave.submitted"
	LeaveApproved         = "leave.approved"
	LeaveRejected         = "leave.rejected"
	LeaveCancelled        = "leave.cancelled"
	SalaryChanged         = "payroll.salary_changed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId,omitempty"`
	Payload    any       `json:"payload"`
}

// NewEvent stamps an event with an ID and the current time. key is the
// entity ID and decides the Kafka partition.
func NewEvent(eventType, key, actorID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		ActorID:    actorID,
		Payload:    payload,
	}
}

// Publisher never blocks the caller on broker I/O.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

func (Noop) Close() error { return nil }
