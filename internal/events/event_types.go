package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted        EventType = "session_started"
	EventSessionEnded          EventType = "session_ended"
	EventSessionExpired        EventType = "session_expired"
	EventTicketsRefreshed      EventType = "tickets_refreshed"
	EventTicketsRefreshFailed  EventType = "tickets_refresh_failed"
	EventAdminSolutionSaved    EventType = "admin_solution_saved"
	EventAdminSolutionUnsynced EventType = "admin_solution_unsynced"
	EventTicketResolvedToggled EventType = "ticket_resolved_toggled"
	EventTicketSubmitted       EventType = "ticket_submitted"
)

// Event represents something that happened in a console session.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionPayload payload.
type SessionPayload struct {
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	Reason   string      `json:"reason,omitempty"`
}

// RefreshPayload payload.
type RefreshPayload struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// AdminSolutionPayload payload.
type AdminSolutionPayload struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Error    string `json:"error,omitempty"`
}

// ResolvedPayload payload.
type ResolvedPayload struct {
	IsResolved bool `json:"is_resolved"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Source   domain.TicketSource   `json:"source"`
	Type     domain.TicketType     `json:"ticket_type"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
}
