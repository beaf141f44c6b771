package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/events"
)

// AuditService writes a structured audit line for every console event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleSession)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handleSession)
	a.dispatcher.Subscribe(events.EventSessionExpired, a.handleSession)
	a.dispatcher.Subscribe(events.EventTicketsRefreshed, a.handleRefresh)
	a.dispatcher.Subscribe(events.EventTicketsRefreshFailed, a.handleRefresh)
	a.dispatcher.Subscribe(events.EventAdminSolutionSaved, a.handleAdminSolution)
	a.dispatcher.Subscribe(events.EventAdminSolutionUnsynced, a.handleAdminSolution)
	a.dispatcher.Subscribe(events.EventTicketResolvedToggled, a.handleTicket)
	a.dispatcher.Subscribe(events.EventTicketSubmitted, a.handleTicket)
}

func (a *AuditService) base(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event", string(event.Type)),
		zap.String("actor", event.Actor),
		zap.Time("at", event.Timestamp),
	}
}

func (a *AuditService) handleSession(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if p, ok := event.Payload.(events.SessionPayload); ok {
		fields = append(fields, zap.String("role", string(p.Role)), zap.String("reason", p.Reason))
	}
	if event.Type == events.EventSessionExpired {
		a.logger.Warn("SessionExpired", fields...)
		return nil
	}
	a.logger.Info("Session", fields...)
	return nil
}

func (a *AuditService) handleRefresh(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if p, ok := event.Payload.(events.RefreshPayload); ok {
		fields = append(fields, zap.Int("count", p.Count))
		if p.Error != "" {
			fields = append(fields, zap.String("error", p.Error))
			a.logger.Warn("TicketsRefreshFailed", fields...)
			return nil
		}
	}
	a.logger.Info("TicketsRefreshed", fields...)
	return nil
}

// handleAdminSolution records the note itself only at debug level.
func (a *AuditService) handleAdminSolution(_ context.Context, event events.Event) error {
	fields := append(a.base(event), zap.String("ticket_id", event.TicketID))
	p, _ := event.Payload.(events.AdminSolutionPayload)
	a.logger.Debug("AdminSolutionText", zap.String("ticket_id", event.TicketID), zap.String("previous", p.Previous), zap.String("current", p.Current))
	if p.Error != "" {
		a.logger.Warn("AdminSolutionUnsynced", append(fields, zap.String("error", p.Error))...)
		return nil
	}
	a.logger.Info("AdminSolutionSaved", fields...)
	return nil
}

func (a *AuditService) handleTicket(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), append(a.base(event), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))...)
	return nil
}
