package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/persistence"
	"github.com/spec-kit/helpdesk-console/internal/service"
	"github.com/spec-kit/helpdesk-console/internal/session"
	"github.com/spec-kit/helpdesk-console/internal/worker"
)

// cliSessionID names the CLI's record in the shared Redis or Postgres store.
const cliSessionID = "cli"

// ConfigLoader produces the runtime configuration.
type ConfigLoader func() (*config.Config, error)

// app carries what every command shares. The console is built on first use
// so flags can adjust the configuration beforehand.
type app struct {
	load        ConfigLoader
	cfg         *config.Config
	logger      *zap.Logger
	stdout      io.Writer
	stdin       io.Reader
	jsonOutput  bool
	sessionFile string

	console  *service.Console
	redis    *persistence.Redis
	postgres *persistence.Postgres
}

// Execute runs the helpdesk command.
func Execute() error {
	return NewRootCmd(config.Load).Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd(load ConfigLoader) *cobra.Command {
	a := &app{load: load}
	root := &cobra.Command{
		Use:           "helpdesk",
		Short:         "Helpdesk console: submit tickets, review them, and serve the web console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stdin = cmd.InOrStdin()
			if err := a.init(); err != nil {
				return err
			}
			if cmd.Name() == "serve" {
				return nil
			}
			return a.connectSessionStore(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print JSON instead of text")
	root.PersistentFlags().StringVar(&a.sessionFile, "session-file", "", "where the CLI keeps its login (default from SESSION_FILE)")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoAmICmd(a),
		newRouteCmd(a),
		newSubmitCmd(a),
		newTicketsCmd(a),
	)
	return root
}

func (a *app) init() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := a.load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.sessionFile != "" {
		cfg.Session.File = a.sessionFile
	}
	logger, err := observability.NewCLILogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// connectSessionStore opens the Postgres pool for client commands. serve
// manages its own pool.
func (a *app) connectSessionStore(ctx context.Context) error {
	if a.postgres != nil || a.cfg.Session.Backend != config.SessionBackendPostgres {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout())
	defer cancel()
	pg, err := persistence.NewPostgres(ctx, a.cfg.Postgres, a.logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	a.postgres = pg
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.postgres.Close()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// sessionBackend picks where the CLI login lives. The CLI defaults to the
// session file.
func (a *app) sessionBackend() session.Backend {
	switch a.cfg.Session.SessionBackendOr(config.SessionBackendFile) {
	case config.SessionBackendRedis:
		if a.redis == nil {
			a.redis = persistence.NewRedis(a.cfg.Redis, a.logger)
		}
		return session.NewRedisBackend(a.redis, a.cfg.Session.Key, cliSessionID, a.cfg.Session.TTL())
	case config.SessionBackendPostgres:
		return session.NewPostgresBackend(a.postgres, a.cfg.Session.Key, cliSessionID, a.cfg.Session.TTL())
	case config.SessionBackendMemory:
		return session.NewMemoryBackend()
	default:
		return session.NewFileBackend(a.cfg.Session.File)
	}
}

func (a *app) consoleFor(ctx context.Context) *service.Console {
	if a.console != nil {
		return a.console
	}
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, a.logger))
	a.console = service.NewConsole(ctx, cliSessionID, a.sessionBackend(), service.ConsoleDependencies{
		Config:     *a.cfg,
		Logger:     a.logger,
		Dispatcher: dispatcher,
	})
	return a.console
}

func readSecret(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
