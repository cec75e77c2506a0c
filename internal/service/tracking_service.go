package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// TrackingService answers requester lookups by tracking token.
type TrackingService struct {
	requests repository.UserRequestRepository
	drafts   repository.DraftTicketRepository
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	uow      unitOfWork
}

// NewTrackingService constructs the service.
func NewTrackingService(deps Dependencies) *TrackingService {
	return &TrackingService{
		requests: deps.Repos.Requests,
		drafts:   deps.Repos.Drafts,
		tickets:  deps.Repos.Tickets,
		comments: deps.Repos.Comments,
		uow:      newUnitOfWork(deps),
	}
}

// Resolve returns what the requester may see for one submission. The token
// and email must both match, otherwise the request is reported missing.
// Internal comments never appear in the view.
func (s *TrackingService) Resolve(ctx context.Context, token, email string) (*domain.TrackingView, error) {
	req, err := s.lookup(ctx, token, email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	view := &domain.TrackingView{
		TrackingToken: req.TrackingToken,
		SubmittedAt:   req.CreatedAt,
		RequestBody:   req.Body,
	}

	draft, err := s.drafts.FindByRequest(ctx, req.ID)
	switch {
	case err == nil:
		view.Stage = domain.StageDraft
		view.Status = string(domain.StageDraft)
		view.Title = draft.Title
		view.Summary = draft.Summary
		return view, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.tickets.FindByRequest(ctx, req.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		view.Stage = domain.StagePending
		view.Status = string(domain.StagePending)
		return view, nil
	default:
		return nil, apperrors.MapError(err)
	}

	view.Stage = domain.StageActive
	view.Status = string(ticket.Status)
	view.TicketID = &ticket.ID
	view.Title = ticket.Title
	view.Content = ticket.Content
	view.Deadline = ticket.Deadline
	if view.Comments, err = s.comments.ListByTicket(ctx, ticket.ID, false); err != nil {
		return nil, apperrors.MapError(err)
	}
	if view.Assignees, err = s.tickets.ListAssignees(ctx, ticket.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	return view, nil
}

// AddPublicComment lets a requester comment on the active ticket their
// request belongs to.
func (s *TrackingService) AddPublicComment(ctx context.Context, token, email, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", map[string]any{"text": "required"})
	}

	var comment *domain.Comment
	err := s.uow.run(ctx, "public_comment", func(ctx context.Context) error {
		req, err := s.lookup(ctx, token, email)
		if err != nil {
			return err
		}
		ticket, err := s.tickets.FindByRequest(ctx, req.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewConsistencyViolation("request is not an active ticket yet",
				map[string]any{"tracking_token": req.TrackingToken})
		}
		if err != nil {
			return err
		}
		comment = &domain.Comment{
			TicketID:    ticket.ID,
			AuthorEmail: req.RequesterEmail,
			Body:        domain.Truncate(text, domain.MaxTextLength),
		}
		return s.comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *TrackingService) lookup(ctx context.Context, token, email string) (*domain.UserRequest, error) {
	token = strings.TrimSpace(token)
	email = cleanEmail(email)
	if token == "" || email == "" {
		return nil, apperrors.NewNotFound("request", nil)
	}
	req, err := s.requests.GetByTokenAndEmail(ctx, token, email)
	if err != nil {
		return nil, notFoundOr(err, "request", nil)
	}
	return req, nil
}
