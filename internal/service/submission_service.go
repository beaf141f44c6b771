package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/validation"
)

// SubmitFailedMessage is shown when the backend rejects or misses a submission.
const SubmitFailedMessage = "Failed to submit ticket. Please try again."

// TicketSubmitter is the submission half of the ticket gateway.
type TicketSubmitter interface {
	SubmitTextTicket(ctx context.Context, input domain.TextTicketInput) (*domain.Ticket, error)
	SubmitImageTicket(ctx context.Context, input domain.ImageTicketInput) (*domain.Ticket, error)
}

// SubmissionOptions configures a SubmissionService.
type SubmissionOptions struct {
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
	Actor      func() string
}

// SubmissionState is what the user dashboard renders.
type SubmissionState struct {
	Loading bool           `json:"loading"`
	Last    *domain.Ticket `json:"last,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SubmissionService validates ticket forms and submits them. Invalid forms
// never reach the gateway.
type SubmissionService struct {
	gw         TicketSubmitter
	validator  *validation.Validator
	logger     *zap.Logger
	dispatcher events.Dispatcher
	actor      func() string

	mu      sync.Mutex
	loading bool
	last    *domain.Ticket
	errMsg  string
}

// NewSubmissionService builds the service.
func NewSubmissionService(gw TicketSubmitter, validator *validation.Validator, opts SubmissionOptions) *SubmissionService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		gw:         gw,
		validator:  validator,
		logger:     logger.Named("submissions"),
		dispatcher: opts.Dispatcher,
		actor:      opts.Actor,
	}
}

// SubmitText validates and submits a text ticket.
func (s *SubmissionService) SubmitText(ctx context.Context, input domain.TextTicketInput) (*domain.Ticket, error) {
	if errs := s.validator.TextTicket(input); !errs.Valid() {
		return nil, errs.Err()
	}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Body = strings.TrimSpace(input.Body)
	return s.submit(ctx, domain.TicketSourceText, func() (*domain.Ticket, error) {
		return s.gw.SubmitTextTicket(ctx, input)
	})
}

// SubmitImage validates and submits a screenshot ticket.
func (s *SubmissionService) SubmitImage(ctx context.Context, input domain.ImageTicketInput) (*domain.Ticket, error) {
	if errs := s.validator.ImageTicket(input); !errs.Valid() {
		return nil, errs.Err()
	}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Body = strings.TrimSpace(input.Body)
	return s.submit(ctx, domain.TicketSourceImage, func() (*domain.Ticket, error) {
		return s.gw.SubmitImageTicket(ctx, input)
	})
}

func (s *SubmissionService) submit(ctx context.Context, source domain.TicketSource, call func() (*domain.Ticket, error)) (*domain.Ticket, error) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	ticket, err := call()

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errMsg = SubmitFailedMessage
	} else {
		s.last = ticket
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("ticket submission failed", zap.String("source", string(source)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ticket submitted",
		zap.String("source", string(source)),
		zap.String("ticket_type", string(ticket.Type)),
		zap.String("priority", string(ticket.Priority)))
	event := events.NewEvent(events.EventTicketSubmitted, ticket.ID, events.TicketSubmittedPayload{
		Source:   ticket.Source,
		Type:     ticket.Type,
		Priority: ticket.Priority,
		Subject:  ticket.Subject,
	})
	if s.actor != nil {
		event.Actor = s.actor()
	}
	if err := events.Publish(ctx, s.dispatcher, event); err != nil {
		s.logger.Warn("submission event handler failed", zap.Error(err))
	}
	return ticket, nil
}

// State returns the dashboard state.
func (s *SubmissionService) State() SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubmissionState{Loading: s.loading, Last: s.last, Error: s.errMsg}
}

// DismissError clears the error banner.
func (s *SubmissionService) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// Reset forgets the last ticket and any error, ready for a new submission.
func (s *SubmissionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	s.errMsg = ""
}
