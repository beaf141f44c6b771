package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
)

// emit prints v as JSON under --json, otherwise runs text.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.stdout)
	return nil
}

func printTicket(w io.Writer, t *domain.Ticket) {
	fmt.Fprintf(w, "Ticket %s submitted\n", t.ID)
	fmt.Fprintf(w, "  Subject:   %s\n", t.Subject)
	fmt.Fprintf(w, "  Type:      %s\n", t.Type.Label())
	fmt.Fprintf(w, "  Priority:  %s\n", t.Priority)
	if t.HasAIResolution() {
		fmt.Fprintf(w, "  Resolution:\n    %s\n", t.AIResolution)
	}
}

func printDashboard(w io.Writer, snap workspace.Snapshot) {
	s := snap.Stats
	fmt.Fprintf(w, "Total %d | high %d, medium %d, low %d | software %d, hardware %d, general %d | resolved %d, pending %d\n\n",
		s.Total, s.High, s.Medium, s.Low, s.Software, s.Hardware, s.General, s.Resolved, s.Pending)
	if snap.Error != "" {
		fmt.Fprintf(w, "! %s\n\n", snap.Error)
	}
	if len(snap.Items) == 0 {
		if snap.EmptyMessage != "" {
			fmt.Fprintln(w, snap.EmptyMessage)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRIORITY\tTYPE\tSTATUS\tSUBJECT")
	for _, item := range snap.Items {
		status := workspace.StatusPending
		if item.IsResolved {
			status = workspace.StatusResolved
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Priority, item.Type.Label(), status, item.Subject)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\npage %d of %d (%d tickets)\n", snap.Page, snap.TotalPages, snap.TotalItems)
}

func dashboardJSON(snap workspace.Snapshot) dto.DashboardResponse {
	return dto.NewDashboardResponse(snap)
}
