package workspace

import (
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-console/internal/domain"
)

const (
	DefaultPageSize      = 10
	DefaultPreviewLength = 200
	previewEllipsis      = "..."
)

// Page is one 1-based slice of the filtered view.
type Page struct {
	Items      []domain.Ticket `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalItems int             `json:"total_items"`
	TotalPages int             `json:"total_pages"`
}

// paginate slices items[(page-1)*size : page*size]. A page past the end is
// empty, never an error.
func paginate(items []domain.Ticket, page, size int) Page {
	if page < 1 {
		page = 1
	}
	total := len(items)
	result := Page{
		Items:      []domain.Ticket{},
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}

	start := (page - 1) * size
	if start >= total {
		return result
	}
	end := start + size
	if end > total {
		end = total
	}
	result.Items = append(result.Items, items[start:end]...)
	return result
}

// Truncate caps body at limit characters and marks the cut with "...".
func Truncate(body string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(body) <= limit {
		return body
	}
	runes := []rune(body)
	return string(runes[:limit]) + previewEllipsis
}
