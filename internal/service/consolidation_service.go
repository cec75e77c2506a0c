package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

const (
	unlinkedTitlePrefix = "Unlinked: "
	pendingSolutions    = "Pending review"
)

// ConsolidationService merges, splits and edits drafts.
type ConsolidationService struct {
	drafts      repository.DraftTicketRepository
	staff       repository.StaffRepository
	recommender ai.Recommender
	uow         unitOfWork
	logger      *zap.Logger
}

// MergeInput carries the caller-resolved fields of the merged draft.
type MergeInput struct {
	DraftIDs           []string
	Title              string
	Summary            string
	SuggestedSolutions string
	Categories         []string
	Deadline           *time.Time
	AssigneeEmail      *string
}

// DraftUpdateInput describes a partial draft edit. Nil fields are left as is.
type DraftUpdateInput struct {
	Title              *string
	Summary            *string
	SuggestedSolutions *string
	Deadline           *time.Time
	ClearDeadline      bool
	Categories         []string
	ReplaceCategories  bool
	// AssigneeEmail replaces the assignee link; an empty string removes it.
	AssigneeEmail *string
}

// NewConsolidationService constructs the service.
func NewConsolidationService(deps Dependencies) *ConsolidationService {
	return &ConsolidationService{
		drafts:      deps.Repos.Drafts,
		staff:       deps.Repos.Staff,
		recommender: deps.Recommender,
		uow:         newUnitOfWork(deps),
		logger:      deps.logger(),
	}
}

// Merge replaces the source drafts with one new draft holding every request
// the sources held. Either all sources are consumed or nothing changes.
func (s *ConsolidationService) Merge(ctx context.Context, input MergeInput) (*domain.DraftTicket, error) {
	ids := uniqueNonEmpty(input.DraftIDs)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("at least one draft id is required", nil)
	}
	// Sources are always locked in id order.
	sort.Strings(ids)
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"title": "required"})
	}
	var assignee string
	if input.AssigneeEmail != nil {
		assignee = strings.TrimSpace(*input.AssigneeEmail)
	}

	var mergedID string
	err := s.uow.run(ctx, "merge", func(ctx context.Context) error {
		var expected int
		for _, id := range ids {
			if _, err := s.drafts.GetForUpdate(ctx, id); err != nil {
				return notFoundOr(err, "draft ticket", map[string]any{"draft_id": id})
			}
			linked, err := s.drafts.ListRequests(ctx, id)
			if err != nil {
				return err
			}
			expected += len(linked)
		}
		if assignee != "" {
			if err := s.ensureSpecialist(ctx, assignee); err != nil {
				return err
			}
		}

		merged := &domain.DraftTicket{
			Title:              domain.Truncate(title, domain.MaxTitleLength),
			Summary:            domain.Truncate(strings.TrimSpace(input.Summary), domain.MaxTextLength),
			SuggestedSolutions: domain.Truncate(strings.TrimSpace(input.SuggestedSolutions), domain.MaxTextLength),
			Deadline:           input.Deadline,
		}
		if err := s.drafts.Create(ctx, merged); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := s.drafts.RepointRequests(ctx, id, merged.ID); err != nil {
				return err
			}
			if err := s.drafts.DeleteCategories(ctx, id); err != nil {
				return err
			}
			if err := s.drafts.DeleteAssignees(ctx, id); err != nil {
				return err
			}
			if err := s.drafts.Delete(ctx, id); err != nil {
				return notFoundOr(err, "draft ticket", map[string]any{"draft_id": id})
			}
		}

		if err := s.drafts.AddCategories(ctx, merged.ID, CleanCategories(input.Categories)); err != nil {
			return err
		}
		if assignee != "" {
			if err := s.drafts.AddAssignee(ctx, merged.ID, assignee); err != nil {
				return err
			}
		}

		linked, err := s.drafts.ListRequests(ctx, merged.ID)
		if err != nil {
			return err
		}
		if len(linked) == 0 || len(linked) > expected {
			return apperrors.NewConsistencyViolation("merged draft requester set does not match its sources",
				map[string]any{"expected": expected, "linked": len(linked)})
		}
		mergedID = merged.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDraft(ctx, mergedID)
}

// Unlink detaches one request from a multi-request draft into a new draft of its own.
func (s *ConsolidationService) Unlink(ctx context.Context, draftID, userRequestID string) (*domain.DraftTicket, error) {
	draftID = strings.TrimSpace(draftID)
	userRequestID = strings.TrimSpace(userRequestID)
	if draftID == "" || userRequestID == "" {
		return nil, apperrors.NewValidationError("draft id and user request id are required", nil)
	}

	var newID string
	err := s.uow.run(ctx, "unlink", func(ctx context.Context) error {
		if _, err := s.drafts.GetForUpdate(ctx, draftID); err != nil {
			return notFoundOr(err, "draft ticket", map[string]any{"draft_id": draftID})
		}
		linked, err := s.drafts.ListRequests(ctx, draftID)
		if err != nil {
			return err
		}

		var detached *domain.UserRequest
		for i := range linked {
			if linked[i].ID == userRequestID {
				detached = &linked[i]
				break
			}
		}
		if detached == nil {
			return apperrors.NewNotFound("user request", map[string]any{
				"draft_id":        draftID,
				"user_request_id": userRequestID,
			})
		}
		if len(linked) == 1 {
			return apperrors.NewConsistencyViolation("cannot unlink the only request of a draft",
				map[string]any{"draft_id": draftID})
		}

		if err := s.drafts.UnlinkRequest(ctx, draftID, userRequestID); err != nil {
			return err
		}
		split := &domain.DraftTicket{
			Title:              domain.Truncate(unlinkedTitlePrefix+detached.RequesterEmail, domain.MaxTitleLength),
			Summary:            domain.Truncate(detached.Body, domain.MaxTextLength),
			SuggestedSolutions: pendingSolutions,
		}
		if err := s.drafts.Create(ctx, split); err != nil {
			return err
		}
		if err := s.drafts.LinkRequest(ctx, split.ID, userRequestID); err != nil {
			return err
		}
		newID = split.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDraft(ctx, newID)
}

// RecommendMerges asks the recommender for groups of similar drafts. It
// never fails: recommender errors yield no recommendations.
func (s *ConsolidationService) RecommendMerges(ctx context.Context) ([][]string, error) {
	drafts, err := s.drafts.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(drafts) < 2 || s.recommender == nil {
		return [][]string{}, nil
	}

	live := make(map[string]struct{}, len(drafts))
	digests := make([]ai.DraftDigest, 0, len(drafts))
	for _, d := range drafts {
		live[d.ID] = struct{}{}
		digests = append(digests, ai.DraftDigest{ID: d.ID, Title: d.Title, Summary: d.Summary})
	}

	groups, err := s.recommender.Recommend(ctx, digests)
	if err != nil {
		s.logger.Warn("merge recommendation failed", zap.Error(err))
		return [][]string{}, nil
	}

	result := [][]string{}
	for _, group := range groups {
		members := []string{}
		for _, id := range uniqueNonEmpty(group) {
			if _, ok := live[id]; ok {
				members = append(members, id)
			}
		}
		if len(members) >= 2 {
			result = append(result, members)
		}
	}
	return result, nil
}

// GetDraft loads a draft with its requests, categories and assignees.
func (s *ConsolidationService) GetDraft(ctx context.Context, id string) (*domain.DraftTicket, error) {
	draft, err := loadDraft(ctx, s.drafts, id)
	if err != nil {
		return nil, apperrors.MapError(notFoundOr(err, "draft ticket", map[string]any{"draft_id": id}))
	}
	return draft, nil
}

// ListDrafts returns every live draft, newest first, with links loaded.
func (s *ConsolidationService) ListDrafts(ctx context.Context) ([]domain.DraftTicket, error) {
	rows, err := s.drafts.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]domain.DraftTicket, 0, len(rows))
	for _, row := range rows {
		draft, err := loadDraft(ctx, s.drafts, row.ID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		result = append(result, *draft)
	}
	return result, nil
}

// UpdateDraft edits draft fields and links in one transaction.
func (s *ConsolidationService) UpdateDraft(ctx context.Context, id string, input DraftUpdateInput) (*domain.DraftTicket, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"title": "required"})
	}

	err := s.uow.run(ctx, "update_draft", func(ctx context.Context) error {
		draft, err := s.drafts.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "draft ticket", map[string]any{"draft_id": id})
		}

		if input.Title != nil {
			draft.Title = domain.Truncate(strings.TrimSpace(*input.Title), domain.MaxTitleLength)
		}
		if input.Summary != nil {
			draft.Summary = domain.Truncate(strings.TrimSpace(*input.Summary), domain.MaxTextLength)
		}
		if input.SuggestedSolutions != nil {
			draft.SuggestedSolutions = domain.Truncate(strings.TrimSpace(*input.SuggestedSolutions), domain.MaxTextLength)
		}
		switch {
		case input.ClearDeadline:
			draft.Deadline = nil
		case input.Deadline != nil:
			draft.Deadline = input.Deadline
		}
		if err := s.drafts.Update(ctx, draft); err != nil {
			return err
		}

		if input.ReplaceCategories {
			if err := s.drafts.DeleteCategories(ctx, id); err != nil {
				return err
			}
			if err := s.drafts.AddCategories(ctx, id, CleanCategories(input.Categories)); err != nil {
				return err
			}
		}

		if input.AssigneeEmail != nil {
			assignee := strings.TrimSpace(*input.AssigneeEmail)
			if assignee != "" {
				if err := s.ensureSpecialist(ctx, assignee); err != nil {
					return err
				}
			}
			if err := s.drafts.DeleteAssignees(ctx, id); err != nil {
				return err
			}
			if assignee != "" {
				if err := s.drafts.AddAssignee(ctx, id, assignee); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDraft(ctx, id)
}

func (s *ConsolidationService) ensureSpecialist(ctx context.Context, email string) error {
	if _, err := s.staff.GetByEmail(ctx, email); err != nil {
		return notFoundOr(err, "specialist", map[string]any{"email": email})
	}
	return nil
}

func loadDraft(ctx context.Context, drafts repository.DraftTicketRepository, id string) (*domain.DraftTicket, error) {
	draft, err := drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.Requests, err = drafts.ListRequests(ctx, id); err != nil {
		return nil, err
	}
	if draft.Categories, err = drafts.ListCategories(ctx, id); err != nil {
		return nil, err
	}
	if draft.Assignees, err = drafts.ListAssignees(ctx, id); err != nil {
		return nil, err
	}
	return draft, nil
}
