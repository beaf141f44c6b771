package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/service"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
)

// TextTicketRequest payload.
type TextTicketRequest struct {
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	AdminSolution string `json:"admin_solution"`
}

// AdminSolutionRequest carries the edited note. A nil AdminSolution saves
// the open draft.
type AdminSolutionRequest struct {
	AdminSolution *string `json:"admin_solution"`
}

// DraftRequest carries the in-progress edit buffer.
type DraftRequest struct {
	Draft string `json:"draft"`
}

// TicketResponse uses the backend's field names.
type TicketResponse struct {
	ID            string                `json:"id"`
	Source        domain.TicketSource   `json:"source,omitempty"`
	Subject       string                `json:"subject"`
	Body          string                `json:"body"`
	TicketType    domain.TicketType     `json:"ticket_type"`
	TypeLabel     string                `json:"type_label"`
	Priority      domain.TicketPriority `json:"priority"`
	Resolution    string                `json:"resolution,omitempty"`
	AdminSolution string                `json:"admin_solution"`
	IsResolved    bool                  `json:"is_resolved"`
	ImageURL      string                `json:"image_url,omitempty"`
	CreatedAt     *time.Time            `json:"created_at,omitempty"`
}

// TicketViewResponse is a ticket row on the admin dashboard.
type TicketViewResponse struct {
	TicketResponse
	Preview  string `json:"preview"`
	Expanded bool   `json:"expanded"`
	Editing  bool   `json:"editing"`
	Draft    string `json:"draft,omitempty"`
	Unsynced bool   `json:"unsynced"`
}

// DashboardResponse is the admin dashboard state.
type DashboardResponse struct {
	Loading      bool                 `json:"loading"`
	Stats        workspace.Stats      `json:"stats"`
	Filter       workspace.Filter     `json:"filter"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalItems   int                  `json:"total_items"`
	TotalPages   int                  `json:"total_pages"`
	Items        []TicketViewResponse `json:"items"`
	EmptyMessage string               `json:"empty_message,omitempty"`
	Error        string               `json:"error,omitempty"`
	Unsynced     []string             `json:"unsynced"`
}

// SubmissionResponse is the user dashboard state.
type SubmissionResponse struct {
	Loading bool            `json:"loading"`
	Last    *TicketResponse `json:"last,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:            t.ID,
		Source:        t.Source,
		Subject:       t.Subject,
		Body:          t.Body,
		TicketType:    t.Type,
		TypeLabel:     t.Type.Label(),
		Priority:      t.Priority,
		Resolution:    t.AIResolution,
		AdminSolution: t.AdminSolution,
		IsResolved:    t.IsResolved,
		ImageURL:      t.ImageURL,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

// NewDashboardResponse maps a workspace snapshot.
func NewDashboardResponse(s workspace.Snapshot) DashboardResponse {
	items := make([]TicketViewResponse, 0, len(s.Items))
	for i := range s.Items {
		v := &s.Items[i]
		items = append(items, TicketViewResponse{
			TicketResponse: NewTicketResponse(&v.Ticket),
			Preview:        v.Preview,
			Expanded:       v.Expanded,
			Editing:        v.Editing,
			Draft:          v.Draft,
			Unsynced:       v.Unsynced,
		})
	}
	unsynced := s.Unsynced
	if unsynced == nil {
		unsynced = []string{}
	}
	return DashboardResponse{
		Loading:      s.Loading,
		Stats:        s.Stats,
		Filter:       s.Filter,
		Page:         s.Page,
		PageSize:     s.PageSize,
		TotalItems:   s.TotalItems,
		TotalPages:   s.TotalPages,
		Items:        items,
		EmptyMessage: s.EmptyMessage,
		Error:        s.Error,
		Unsynced:     unsynced,
	}
}

// NewSubmissionResponse maps the submission state.
func NewSubmissionResponse(s service.SubmissionState) SubmissionResponse {
	resp := SubmissionResponse{Loading: s.Loading, Error: s.Error}
	if s.Last != nil {
		last := NewTicketResponse(s.Last)
		resp.Last = &last
	}
	return resp
}
