package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// PromotionService converts reviewed drafts into active tickets.
type PromotionService struct {
	drafts  repository.DraftTicketRepository
	tickets repository.TicketRepository
	staff   repository.StaffRepository
	history repository.TicketHistoryRepository
	uow     unitOfWork
	events  publisher
	logger  *zap.Logger
}

// PromoteInput overrides draft fields at promotion time.
type PromoteInput struct {
	DraftID       string
	Deadline      *time.Time
	AssigneeEmail *string
	PerformedBy   string
}

// NewPromotionService constructs the service.
func NewPromotionService(deps Dependencies) *PromotionService {
	return &PromotionService{
		drafts:  deps.Repos.Drafts,
		tickets: deps.Repos.Tickets,
		staff:   deps.Repos.Staff,
		history: deps.Repos.History,
		uow:     newUnitOfWork(deps),
		events:  publisher{dispatcher: deps.Dispatcher, logger: deps.logger()},
		logger:  deps.logger(),
	}
}

// Promote creates a ticket from the draft, moves every origin request and
// requester onto it and deletes the draft, all in one transaction.
func (s *PromotionService) Promote(ctx context.Context, input PromoteInput) (*domain.Ticket, error) {
	draftID := strings.TrimSpace(input.DraftID)
	if draftID == "" {
		return nil, apperrors.NewValidationError("draft id is required", nil)
	}

	var (
		ticket    *domain.Ticket
		followers []domain.Follower
	)
	err := s.uow.run(ctx, "promote", func(ctx context.Context) error {
		draft, err := s.drafts.GetForUpdate(ctx, draftID)
		if err != nil {
			return notFoundOr(err, "draft ticket", map[string]any{"draft_id": draftID})
		}

		deadline := draft.Deadline
		if input.Deadline != nil {
			deadline = input.Deadline
		}
		assignee, err := s.effectiveAssignee(ctx, draftID, input.AssigneeEmail)
		if err != nil {
			return err
		}

		ticket = &domain.Ticket{
			Title:              draft.Title,
			Content:            draft.Summary,
			SuggestedSolutions: draft.SuggestedSolutions,
			Status:             domain.TicketStatusNew,
			Deadline:           deadline,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if assignee != nil {
			if err := s.tickets.ReplaceAssignee(ctx, ticket.ID, assignee); err != nil {
				return err
			}
		}
		if err := s.history.Create(ctx, &domain.HistoryEntry{
			TicketID:    ticket.ID,
			Action:      domain.ActionPromoted,
			PerformedBy: input.PerformedBy,
			Details:     "from draft " + draftID,
		}); err != nil {
			return err
		}

		requests, err := s.drafts.ListRequests(ctx, draftID)
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			return apperrors.NewConsistencyViolation("draft has no linked requests",
				map[string]any{"draft_id": draftID})
		}
		followers = followersOf(requests)
		emails := make([]string, 0, len(followers))
		for _, f := range followers {
			emails = append(emails, f.Email)
		}
		if err := s.tickets.AddFollowers(ctx, ticket.ID, emails); err != nil {
			return err
		}
		requestIDs := make([]string, 0, len(requests))
		for _, req := range requests {
			requestIDs = append(requestIDs, req.ID)
		}
		if err := s.tickets.LinkRequests(ctx, ticket.ID, requestIDs); err != nil {
			return err
		}

		categories, err := s.drafts.ListCategories(ctx, draftID)
		if err != nil {
			return err
		}
		if err := s.tickets.AddCategories(ctx, ticket.ID, categories); err != nil {
			return err
		}

		if err := s.drafts.DeleteRequestLinks(ctx, draftID); err != nil {
			return err
		}
		if err := s.drafts.DeleteCategories(ctx, draftID); err != nil {
			return err
		}
		if err := s.drafts.DeleteAssignees(ctx, draftID); err != nil {
			return err
		}
		return s.drafts.Delete(ctx, draftID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("draft promoted",
		zap.String("draft_id", draftID),
		zap.String("ticket_id", ticket.ID),
		zap.Int("followers", len(followers)))
	s.events.publish(ctx, events.Event{
		Type:  events.EventTicketPromoted,
		Actor: input.PerformedBy,
		Payload: events.TicketPromotedPayload{
			TicketID:  ticket.ID,
			DraftID:   draftID,
			Title:     ticket.Title,
			Status:    ticket.Status,
			Followers: followers,
		},
	})

	promoted, err := loadTicket(ctx, s.tickets, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return promoted, nil
}

func (s *PromotionService) effectiveAssignee(ctx context.Context, draftID string, override *string) (*string, error) {
	if override != nil {
		if email := strings.TrimSpace(*override); email != "" {
			if _, err := s.staff.GetByEmail(ctx, email); err != nil {
				return nil, notFoundOr(err, "specialist", map[string]any{"email": email})
			}
			return &email, nil
		}
	}
	assignees, err := s.drafts.ListAssignees(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if len(assignees) == 0 {
		return nil, nil
	}
	return &assignees[0], nil
}

// followersOf returns one follower per distinct requester, carrying the token
// of that requester's earliest request. requests must be oldest first.
func followersOf(requests []domain.UserRequest) []domain.Follower {
	seen := make(map[string]struct{}, len(requests))
	followers := make([]domain.Follower, 0, len(requests))
	for _, req := range requests {
		if _, ok := seen[req.RequesterEmail]; ok {
			continue
		}
		seen[req.RequesterEmail] = struct{}{}
		followers = append(followers, domain.Follower{Email: req.RequesterEmail, TrackingToken: req.TrackingToken})
	}
	return followers
}
