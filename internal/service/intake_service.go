package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// IntakeService turns raw submissions into drafts.
type IntakeService struct {
	users    repository.UserRepository
	requests repository.UserRequestRepository
	drafts   repository.DraftTicketRepository
	tickets  repository.TicketRepository
	drafter  ai.Drafter
	uow      unitOfWork
	events   publisher
	logger   *zap.Logger
}

// SubmitResult is returned to the requester after a successful submission.
type SubmitResult struct {
	TrackingToken string
	UserRequestID string
	DraftTicketID string
}

// NewIntakeService constructs the service.
func NewIntakeService(deps Dependencies) *IntakeService {
	return &IntakeService{
		users:    deps.Repos.Users,
		requests: deps.Repos.Requests,
		drafts:   deps.Repos.Drafts,
		tickets:  deps.Repos.Tickets,
		drafter:  deps.Drafter,
		uow:      newUnitOfWork(deps),
		events:   publisher{dispatcher: deps.Dispatcher, logger: deps.logger()},
		logger:   deps.logger(),
	}
}

// Submit records a request and its AI-drafted ticket in one transaction. If
// the drafter fails nothing is persisted.
func (s *IntakeService) Submit(ctx context.Context, email, text string) (*SubmitResult, error) {
	email = strings.TrimSpace(email)
	text = strings.TrimSpace(text)
	details := map[string]any{}
	if email == "" {
		details["email"] = "required"
	}
	if text == "" {
		details["text"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("email and request text are required", details)
	}
	email = domain.Truncate(email, domain.MaxEmailLength)
	text = domain.Truncate(text, domain.MaxTextLength)

	var result SubmitResult
	err := s.uow.run(ctx, "submit", func(ctx context.Context) error {
		if _, err := s.users.EnsureByEmail(ctx, email); err != nil {
			return err
		}

		req := &domain.UserRequest{
			RequesterEmail: email,
			Body:           text,
			TrackingToken:  uuid.NewString(),
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}

		suggestion, err := s.drafter.Draft(ctx, text)
		if err != nil {
			s.logger.Warn("AI draft failed", zap.String("requester", email), zap.Error(err))
			return apperrors.NewAIFailure(err)
		}
		if suggestion == nil {
			return apperrors.NewAIFailure(errors.New("empty suggestion"))
		}

		draft := &domain.DraftTicket{
			Title:              domain.Truncate(strings.TrimSpace(suggestion.Title), domain.MaxTitleLength),
			Summary:            domain.Truncate(strings.TrimSpace(suggestion.Summary), domain.MaxTextLength),
			SuggestedSolutions: domain.Truncate(strings.TrimSpace(suggestion.SuggestedSolutions), domain.MaxTextLength),
			SuggestedAssignee:  optionalString(suggestion.SuggestedAssignee, domain.MaxAssigneeLength),
		}
		if err := s.drafts.Create(ctx, draft); err != nil {
			return err
		}
		if err := s.drafts.LinkRequest(ctx, draft.ID, req.ID); err != nil {
			return err
		}
		if err := s.drafts.AddCategories(ctx, draft.ID, NormalizeCategories(suggestion.Categories)); err != nil {
			return err
		}

		result = SubmitResult{
			TrackingToken: req.TrackingToken,
			UserRequestID: req.ID,
			DraftTicketID: draft.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.publish(ctx, events.Event{
		Type:  events.EventRequestSubmitted,
		Actor: email,
		Payload: events.RequestSubmittedPayload{
			Email:         email,
			TrackingToken: result.TrackingToken,
			UserRequestID: result.UserRequestID,
			DraftTicketID: result.DraftTicketID,
		},
	})
	return &result, nil
}

// ListRequests returns the requester's submissions, newest first, each with
// the stage it has reached.
func (s *IntakeService) ListRequests(ctx context.Context, email string) ([]domain.RequestSummary, error) {
	email = cleanEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}

	requests, err := s.requests.ListByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summaries := make([]domain.RequestSummary, 0, len(requests))
	for _, req := range requests {
		summary, err := summarizeRequest(ctx, s.drafts, s.tickets, req)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func summarizeRequest(ctx context.Context, drafts repository.DraftTicketRepository, tickets repository.TicketRepository, req domain.UserRequest) (domain.RequestSummary, error) {
	summary := domain.RequestSummary{Request: req}

	draft, err := drafts.FindByRequest(ctx, req.ID)
	switch {
	case err == nil:
		summary.Stage = domain.StageDraft
		summary.Status = string(domain.StageDraft)
		summary.Title = draft.Title
		return summary, nil
	case !errors.Is(err, repository.ErrNotFound):
		return summary, err
	}

	ticket, err := tickets.FindByRequest(ctx, req.ID)
	switch {
	case err == nil:
		summary.Stage = domain.StageActive
		summary.Status = string(ticket.Status)
		summary.Title = ticket.Title
		summary.TicketID = &ticket.ID
		return summary, nil
	case !errors.Is(err, repository.ErrNotFound):
		return summary, err
	}

	summary.Stage = domain.StagePending
	summary.Status = string(domain.StagePending)
	return summary, nil
}
