package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-console/internal/api/dto"
	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/session"
)

type credentialFlags struct {
	username      string
	password      string
	passwordStdin bool
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from stdin")
}

func (f *credentialFlags) resolvePassword(a *app) error {
	if !f.passwordStdin {
		return nil
	}
	secret, err := readSecret(a.stdin)
	if err != nil {
		return err
	}
	f.password = secret
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.resolvePassword(a); err != nil {
				return err
			}
			console := a.consoleFor(cmd.Context())
			sess, landing, err := console.Auth.Login(cmd.Context(), domain.Credentials{Username: flags.username, Password: flags.password})
			if err != nil {
				return err
			}
			return a.emit(dto.SessionResponse{Username: sess.Username, Role: sess.Role, Redirect: landing}, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s (%s)\n", sess.Username, sess.Role)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var (
		flags credentialFlags
		email string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.resolvePassword(a); err != nil {
				return err
			}
			console := a.consoleFor(cmd.Context())
			sess, landing, err := console.Auth.Signup(cmd.Context(), domain.Signup{
				Username: flags.username,
				Email:    email,
				Password: flags.password,
				Role:     domain.Role(role),
			})
			if err != nil {
				return err
			}
			return a.emit(dto.SessionResponse{Username: sess.Username, Role: sess.Role, Redirect: landing}, func(w io.Writer) {
				fmt.Fprintf(w, "Account created. Logged in as %s (%s)\n", sess.Username, sess.Role)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "user or admin")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.consoleFor(cmd.Context()).Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			return a.emit(map[string]string{"redirect": session.RouteLogin}, func(w io.Writer) {
				fmt.Fprintln(w, "Logged out")
			})
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := a.consoleFor(cmd.Context()).Auth.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(dto.NewProfileResponse(profile), func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", profile.Username, profile.Role)
				if profile.Email != "" {
					fmt.Fprintln(w, profile.Email)
				}
			})
		},
	}
}

func newRouteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "route <path>",
		Short: "Show whether the current session may open a console page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision := a.consoleFor(cmd.Context()).Session.ResolveRoute(args[0])
			return a.emit(decision, func(w io.Writer) {
				switch {
				case decision.NotFound:
					fmt.Fprintf(w, "%s: not found\n", decision.Path)
				case decision.Allowed:
					fmt.Fprintf(w, "%s: allowed\n", decision.Path)
				default:
					fmt.Fprintf(w, "%s: redirect to %s\n", decision.Path, decision.Redirect)
				}
			})
		},
	}
}
