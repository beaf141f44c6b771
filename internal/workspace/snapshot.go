package workspace

import (
	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

// TicketView is a ticket with its transient display state.
type TicketView struct {
	domain.Ticket
	Preview  string `json:"preview"`
	Expanded bool   `json:"expanded"`
	Editing  bool   `json:"editing"`
	Draft    string `json:"draft,omitempty"`
	Unsynced bool   `json:"unsynced"`
}

// Snapshot is a consistent read of everything a dashboard renders.
type Snapshot struct {
	Loading      bool         `json:"loading"`
	Stats        Stats        `json:"stats"`
	Filter       Filter       `json:"filter"`
	Page         int          `json:"page"`
	PageSize     int          `json:"page_size"`
	TotalItems   int          `json:"total_items"`
	TotalPages   int          `json:"total_pages"`
	Items        []TicketView `json:"items"`
	EmptyMessage string       `json:"empty_message,omitempty"`
	Error        string       `json:"error,omitempty"`
	Unsynced     []string     `json:"unsynced"`
}

// Snapshot renders the page under the cursor at the configured size.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	page := paginate(w.filtered, w.page, w.pageSize)
	items := make([]TicketView, 0, len(page.Items))
	for _, t := range page.Items {
		view := TicketView{Ticket: t}
		if idx, ok := w.index[t.ID]; ok {
			view.Preview = w.previewLocked(idx)
		}
		_, view.Expanded = w.expanded[t.ID]
		view.Draft, view.Editing = w.drafts[t.ID]
		_, view.Unsynced = w.unsynced[t.ID]
		items = append(items, view)
	}

	snap := Snapshot{
		Loading:      w.loading,
		Stats:        w.stats,
		Filter:       w.filter,
		Page:         page.Page,
		PageSize:     page.PageSize,
		TotalItems:   page.TotalItems,
		TotalPages:   page.TotalPages,
		Items:        items,
		EmptyMessage: w.emptyMessageLocked(),
		Unsynced:     sortedKeys(w.unsynced),
	}
	if w.err != nil {
		snap.Error = apperrors.ToDomainError(w.err).Message
	}
	return snap
}
