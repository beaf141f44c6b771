package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/session"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

func newTicketsCmd(a *app) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Review submitted tickets (admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if pageSize > 0 {
				a.cfg.Workspace.PageSize = pageSize
			}
			if err := a.requireRoute(cmd, session.RouteAdminDashboard); err != nil {
				return err
			}
			return a.console.Workspace.Refresh(cmd.Context())
		},
	}
	cmd.PersistentFlags().IntVar(&pageSize, "page-size", 0, "tickets per page (default from WORKSPACE_PAGE_SIZE)")
	cmd.AddCommand(newTicketsListCmd(a), newTicketsShowCmd(a), newTicketsNoteCmd(a))
	return cmd
}

func newTicketsListCmd(a *app) *cobra.Command {
	var (
		filter workspace.Filter
		page   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets with counts, filters and paging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws := a.console.Workspace
			ws.ApplyFilters(filter)
			ws.Paginate(page, 0)
			snap := ws.Snapshot()
			return a.emit(dashboardJSON(snap), func(w io.Writer) { printDashboard(w, snap) })
		},
	}
	cmd.Flags().StringVarP(&filter.Text, "search", "q", "", "match subject, description or resolutions")
	cmd.Flags().StringVar(&filter.Priority, "priority", workspace.FilterAll, "all, high, medium or low")
	cmd.Flags().StringVar(&filter.Type, "type", workspace.FilterAll, "all, software, hardware or general")
	cmd.Flags().StringVar(&filter.Status, "status", workspace.FilterAll, "all, resolved or pending")
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	return cmd
}

func newTicketsShowCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.console.Workspace
			ticket, ok := ws.Ticket(args[0])
			if !ok {
				return apperrors.NewNotFound("ticket", map[string]any{"id": args[0]})
			}
			if full {
				if _, err := ws.ToggleExpand(ticket.ID); err != nil {
					return err
				}
			}
			body, err := ws.Preview(ticket.ID)
			if err != nil {
				return err
			}
			return a.emit(dto.NewTicketResponse(&ticket), func(w io.Writer) {
				fmt.Fprintf(w, "#%s %s\n", ticket.ID, ticket.Subject)
				fmt.Fprintf(w, "%s | %s | resolved: %t\n\n", ticket.Priority, ticket.Type.Label(), ticket.IsResolved)
				fmt.Fprintln(w, body)
				if ticket.HasAIResolution() {
					fmt.Fprintf(w, "\nAI resolution:\n%s\n", ticket.AIResolution)
				}
				if ticket.AdminSolution != "" {
					fmt.Fprintf(w, "\nAdmin solution:\n%s\n", ticket.AdminSolution)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the whole description instead of the preview")
	return cmd
}

func newTicketsNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Save the admin solution of a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := a.console.Workspace
			if err := ws.BeginEdit(args[0]); err != nil {
				return err
			}
			if err := ws.UpdateDraft(args[0], args[1]); err != nil {
				return err
			}
			draft, _ := ws.Draft(args[0])
			if err := ws.SaveAdminSolution(cmd.Context(), args[0], draft); err != nil {
				return fmt.Errorf("admin solution was not saved: %w", err)
			}
			ticket, _ := ws.Ticket(args[0])
			return a.emit(dto.NewTicketResponse(&ticket), func(w io.Writer) {
				fmt.Fprintf(w, "Admin solution saved for ticket %s\n", ticket.ID)
			})
		},
	}
}
