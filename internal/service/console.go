package service

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/config"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/gateway"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	"github.com/spec-kit/helpdesk-console/internal/session"
	"github.com/spec-kit/helpdesk-console/internal/validation"
	"github.com/spec-kit/helpdesk-console/internal/workspace"
)

// Console bundles everything one signed-in browser tab or CLI invocation
// works with. The gateway is bound to the console's own session store, so a
// 401 on any call tears down exactly this session.
type Console struct {
	ID          string
	Session     *session.Store
	Gateway     *gateway.Client
	Workspace   *workspace.Workspace
	Auth        *AuthService
	Submissions *SubmissionService
}

// ConsoleDependencies are shared by every console.
type ConsoleDependencies struct {
	Config     config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Dispatcher events.Dispatcher
	Validator  *validation.Validator
	HTTPClient *http.Client
}

// NewConsole wires a console over backend and restores any persisted session.
// A restore failure is logged and leaves the console logged out.
func NewConsole(ctx context.Context, id string, backend session.Backend, deps ConsoleDependencies) *Console {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("console_id", id))
	validator := deps.Validator
	if validator == nil {
		validator = validation.New(deps.Config.Forms.MaxImageBytes)
	}

	anonymous := gateway.New(gateway.Options{
		BaseURL:    deps.Config.Backend.BaseURL,
		APIPrefix:  deps.Config.Backend.APIPrefix,
		Timeout:    deps.Config.Backend.Timeout(),
		HTTPClient: deps.HTTPClient,
		Logger:     logger,
		Metrics:    deps.Metrics,
	}, nil)

	c := &Console{ID: id}
	c.Session = session.NewStore(backend, anonymous, session.Options{
		Logger:     logger,
		Dispatcher: deps.Dispatcher,
		OnEnd: func() {
			c.Workspace.Reset()
			c.Submissions.Reset()
		},
	})
	c.Gateway = anonymous.WithCredentials(c.Session)
	c.Workspace = workspace.New(c.Gateway, workspace.Options{
		PageSize:      deps.Config.Workspace.PageSize,
		PreviewLength: deps.Config.Workspace.PreviewLength,
		Actor:         c.Session.Username,
		Logger:        logger,
		Metrics:       deps.Metrics,
		Dispatcher:    deps.Dispatcher,
	})
	c.Auth = NewAuthService(c.Session, c.Gateway, validator, logger)
	c.Submissions = NewSubmissionService(c.Gateway, validator, SubmissionOptions{
		Logger:     logger,
		Dispatcher: deps.Dispatcher,
		Actor:      c.Session.Username,
	})

	if err := c.Session.Init(ctx); err != nil {
		logger.Warn("session restore failed", zap.Error(err))
	}
	return c
}
