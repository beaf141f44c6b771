package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/session"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

type ticketFlags struct {
	subject string
	body    string
	note    string
}

func (f *ticketFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.subject, "subject", "s", "", "short summary")
	cmd.Flags().StringVarP(&f.body, "body", "b", "", "what happened")
	cmd.Flags().StringVar(&f.note, "note", "", "optional admin note")
}

func newSubmitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a support ticket",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return a.requireRoute(cmd, session.RouteUserDashboard)
		},
	}
	cmd.AddCommand(newSubmitTextCmd(a), newSubmitImageCmd(a))
	return cmd
}

// requireRoute refuses commands whose console page the session may not open.
func (a *app) requireRoute(cmd *cobra.Command, route string) error {
	decision := a.consoleFor(cmd.Context()).Session.ResolveRoute(route)
	if decision.Allowed {
		return nil
	}
	if !a.console.Session.IsAuthenticated() {
		return apperrors.NewUnauthorized("not logged in; run `helpdesk login` first")
	}
	return apperrors.NewForbidden("this command is not available to your role")
}

func newSubmitTextCmd(a *app) *cobra.Command {
	var flags ticketFlags
	cmd := &cobra.Command{
		Use:   "text",
		Short: "Submit a text ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ticket, err := a.console.Submissions.SubmitText(cmd.Context(), domain.TextTicketInput{
				Subject:       flags.subject,
				Body:          flags.body,
				AdminSolution: flags.note,
			})
			if err != nil {
				return err
			}
			return a.emit(dto.NewTicketResponse(ticket), func(w io.Writer) { printTicket(w, ticket) })
		},
	}
	flags.register(cmd)
	return cmd
}

func newSubmitImageCmd(a *app) *cobra.Command {
	var (
		flags ticketFlags
		file  string
	)
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Submit a ticket with a screenshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := domain.ImageTicketInput{
				Subject:       flags.subject,
				Body:          flags.body,
				AdminSolution: flags.note,
			}
			if file != "" {
				upload, err := loadImage(file)
				if err != nil {
					return err
				}
				input.Image = upload
			}
			ticket, err := a.console.Submissions.SubmitImage(cmd.Context(), input)
			if err != nil {
				return err
			}
			return a.emit(dto.NewTicketResponse(ticket), func(w io.Writer) { printTicket(w, ticket) })
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "screenshot to attach")
	return cmd
}

func loadImage(path string) (*domain.ImageUpload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	return &domain.ImageUpload{
		FileName:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
