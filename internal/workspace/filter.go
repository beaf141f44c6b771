package workspace

import (
	"strings"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

const (
	// FilterAll leaves a dimension unconstrained.
	FilterAll = "all"

	StatusResolved = "resolved"
	StatusPending  = "pending"
)

// Filter is the query predicate over the ticket collection. Empty or "all"
// enum fields are unconstrained.
type Filter struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

func normalizeDimension(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return FilterAll
	}
	return value
}

// Normalize trims the text and canonicalises enum dimensions.
func (f Filter) Normalize() Filter {
	return Filter{
		Text:     strings.TrimSpace(f.Text),
		Priority: normalizeDimension(f.Priority),
		Type:     normalizeDimension(f.Type),
		Status:   normalizeDimension(f.Status),
	}
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	n := f.Normalize()
	return n.Text == "" && n.Priority == FilterAll && n.Type == FilterAll && n.Status == FilterAll
}

// Matches applies the predicate to one ticket. f must be normalized.
func (f Filter) Matches(t *domain.Ticket) bool {
	if f.Priority != FilterAll && string(t.Priority) != f.Priority {
		return false
	}
	if f.Type != FilterAll && string(t.Type) != f.Type {
		return false
	}
	switch f.Status {
	case FilterAll:
	case StatusResolved:
		if !t.IsResolved {
			return false
		}
	case StatusPending:
		if t.IsResolved {
			return false
		}
	default:
		return false
	}
	if f.Text == "" {
		return true
	}
	needle := strings.ToLower(f.Text)
	for _, field := range []string{t.Subject, t.Body, t.AdminSolution, t.AIResolution} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// apply returns the order-preserving subsequence of tickets matching f.
func (f Filter) apply(tickets []domain.Ticket) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if f.Matches(&tickets[i]) {
			out = append(out, tickets[i])
		}
	}
	return out
}
