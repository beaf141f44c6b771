package domain

import (
	"strings"
	"time"
)

// TicketType is the backend's classification of a ticket.
type TicketType string

const (
	TicketTypeSoftware TicketType = "software"
	TicketTypeHardware TicketType = "hardware"
	TicketTypeGeneral  TicketType = "general"
)

// TicketPriority is the backend's urgency classification.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityLow    TicketPriority = "low"
)

// TicketSource records which submission path produced the ticket.
type TicketSource string

const (
	TicketSourceText  TicketSource = "text"
	TicketSourceImage TicketSource = "image"
)

// ParseTicketType maps any input onto a known type. Unknown or empty values become general.
func ParseTicketType(raw string) TicketType {
	switch t := TicketType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TicketTypeSoftware, TicketTypeHardware, TicketTypeGeneral:
		return t
	default:
		return TicketTypeGeneral
	}
}

// Valid reports whether t is one of the enumerated types.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeSoftware, TicketTypeHardware, TicketTypeGeneral:
		return true
	}
	return false
}

// Label is the display name for the type.
func (t TicketType) Label() string {
	switch t {
	case TicketTypeSoftware:
		return "Software"
	case TicketTypeHardware:
		return "Hardware"
	default:
		return "General"
	}
}

// ParseTicketPriority maps any input onto a known priority. Unknown or empty values become medium.
func ParseTicketPriority(raw string) TicketPriority {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(raw))); p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return p
	default:
		return TicketPriorityMedium
	}
}

// Valid reports whether p is one of the enumerated priorities.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// Ticket is a support request plus its AI and admin resolution state.
type Ticket struct {
	ID            string
	Source        TicketSource
	Subject       string
	Body          string
	Type          TicketType
	Priority      TicketPriority
	AIResolution  string
	AdminSolution string
	IsResolved    bool
	ImageURL      string
	CreatedAt     time.Time
}

// HasAIResolution reports whether the backend produced a resolution text.
func (t *Ticket) HasAIResolution() bool {
	return strings.TrimSpace(t.AIResolution) != ""
}

// TextTicketInput is the payload of a text ticket submission.
type TextTicketInput struct {
	Subject       string
	Body          string
	AdminSolution string
}

// ImageTicketInput is the payload of a screenshot ticket submission.
type ImageTicketInput struct {
	Subject       string
	Body          string
	AdminSolution string
	Image         *ImageUpload
}

// ImageUpload is an in-memory screenshot attachment.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (u *ImageUpload) Size() int64 {
	if u == nil {
		return 0
	}
	return int64(len(u.Data))
}
