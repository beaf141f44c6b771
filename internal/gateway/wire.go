package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

type wireTicket struct {
	ID            json.RawMessage `json:"id"`
	Source        string          `json:"source"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	TicketType    *string         `json:"ticket_type"`
	Priority      *string         `json:"priority"`
	Resolution    *string         `json:"resolution"`
	AdminSolution *string         `json:"admin_solution"`
	IsResolved    *bool           `json:"is_resolved"`
	ImageURL      *string         `json:"image_url"`
	CreatedAt     *string         `json:"created_at"`
}

// ticketEnvelope keeps pointers so a missing key is told apart from an
// empty list.
type ticketEnvelope struct {
	TextTickets *[]wireTicket `json:"text_tickets"`
	OCRTickets  *[]wireTicket `json:"ocr_tickets"`
}

type textTicketRequest struct {
	Subject       string  `json:"subject"`
	Body          string  `json:"body"`
	AdminSolution *string `json:"admin_solution,omitempty"`
}

type adminSolutionRequest struct {
	AdminSolution string `json:"admin_solution"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

type userResponse struct {
	ID       json.RawMessage `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseCreatedAt(raw *string) time.Time {
	if raw == nil {
		return time.Time{}
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseID accepts JSON numbers and strings. null or absent ids yield "".
func parseID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (w wireTicket) toDomain(defaultSource domain.TicketSource) domain.Ticket {
	source := domain.TicketSource(strings.ToLower(strings.TrimSpace(w.Source)))
	if source != domain.TicketSourceText && source != domain.TicketSourceImage {
		source = defaultSource
	}
	ticket := domain.Ticket{
		ID:            parseID(w.ID),
		Source:        source,
		Subject:       w.Subject,
		Body:          w.Body,
		Type:          domain.ParseTicketType(deref(w.TicketType)),
		Priority:      domain.ParseTicketPriority(deref(w.Priority)),
		AIResolution:  deref(w.Resolution),
		AdminSolution: deref(w.AdminSolution),
		ImageURL:      deref(w.ImageURL),
		CreatedAt:     parseCreatedAt(w.CreatedAt),
	}
	if w.IsResolved != nil {
		ticket.IsResolved = *w.IsResolved
	}
	return ticket
}

// decodeTicketList accepts either a flat array or the
// {text_tickets, ocr_tickets} envelope and returns one ordered sequence:
// text tickets first, then OCR tickets.
func decodeTicketList(payload []byte) ([]domain.Ticket, bool) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, false
	}

	switch payload[0] {
	case '[':
		var flat []wireTicket
		if err := json.Unmarshal(payload, &flat); err != nil {
			return nil, false
		}
		tickets := make([]domain.Ticket, 0, len(flat))
		for _, w := range flat {
			tickets = append(tickets, w.toDomain(domain.TicketSourceText))
		}
		return tickets, true
	case '{':
		var env ticketEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, false
		}
		if env.TextTickets == nil && env.OCRTickets == nil {
			return nil, false
		}
		var text, ocr []wireTicket
		if env.TextTickets != nil {
			text = *env.TextTickets
		}
		if env.OCRTickets != nil {
			ocr = *env.OCRTickets
		}
		tickets := make([]domain.Ticket, 0, len(text)+len(ocr))
		for _, w := range text {
			tickets = append(tickets, w.toDomain(domain.TicketSourceText))
		}
		for _, w := range ocr {
			tickets = append(tickets, w.toDomain(domain.TicketSourceImage))
		}
		return tickets, true
	default:
		return nil, false
	}
}

// uniqueTickets drops tickets without an id and later duplicates of an id.
func uniqueTickets(tickets []domain.Ticket, logger *zap.Logger) []domain.Ticket {
	seen := make(map[string]struct{}, len(tickets))
	out := tickets[:0]
	for _, t := range tickets {
		if t.ID == "" {
			logger.Warn("dropping ticket without id", zap.String("subject", t.Subject))
			continue
		}
		if _, dup := seen[t.ID]; dup {
			logger.Warn("dropping duplicate ticket id", zap.String("ticket_id", t.ID))
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
