package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

func TestSubmit_CreatesRequestDraftAndCategory(t *testing.T) {
	h := newHarness(t)
	h.ai.suggestion = &ai.Suggestion{
		Title:              "Printer issue",
		Summary:            "The printer is broken",
		SuggestedSolutions: "Replace toner",
		Categories:         []string{"Hardware"},
	}
	ctx := context.Background()

	res := h.submit(t, "a@x.com", "printer broken")
	require.NotEmpty(t, res.TrackingToken)

	requests, err := h.store.Requests().ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "printer broken", requests[0].Body)
	assert.Equal(t, res.TrackingToken, requests[0].TrackingToken)

	draft, err := h.consolidation.GetDraft(ctx, res.DraftTicketID)
	require.NoError(t, err)
	assert.Equal(t, "Printer issue", draft.Title)
	assert.Equal(t, []string{"Hardware"}, draft.Categories)
	require.Len(t, draft.Requests, 1)
	assert.Equal(t, res.UserRequestID, draft.Requests[0].ID)

	msgs := h.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, notify.KindConfirmation, msgs[0].Kind)
	assert.Equal(t, "a@x.com", msgs[0].To)
	assert.Equal(t, res.TrackingToken, msgs[0].TrackingToken)
}

func TestSubmit_RejectsBlankInput(t *testing.T) {
	h := newHarness(t)
	cases := map[string][2]string{
		"empty text":      {"a@x.com", ""},
		"whitespace text": {"a@x.com", "   \n\t"},
		"empty email":     {"  ", "printer broken"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.intake.Submit(context.Background(), in[0], in[1])
			requireCode(t, err, apperrors.CodeValidation)
		})
	}
	assert.Equal(t, 0, h.draftCount(t))
}

func TestSubmit_AIFailureLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	h.ai.draftErr = errBoom
	ctx := context.Background()

	res, err := h.intake.Submit(ctx, "a@x.com", "printer broken")
	require.Nil(t, res)
	requireCode(t, err, apperrors.CodeAIFailed)
	assert.Equal(t, "AI summary failed", apperrors.ToDomainError(err).Message)

	requests, err := h.store.Requests().ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, requests)
	_, err = h.store.Users().GetByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, h.draftCount(t))
	assert.Empty(t, h.drain())
}

func TestSubmit_StoreFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.store.FailOn("drafts.AddCategories", errBoom)
	ctx := context.Background()

	_, err := h.intake.Submit(ctx, "a@x.com", "printer broken")
	requireCode(t, err, apperrors.CodeInternal)

	requests, err := h.store.Requests().ListByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, requests)
	assert.Equal(t, 0, h.draftCount(t))
}

func TestSubmit_TruncatesLongFields(t *testing.T) {
	h := newHarness(t)
	long := strings.Repeat("é", 3000)
	h.ai.suggestion = &ai.Suggestion{
		Title:              strings.Repeat("t", 400),
		Summary:            long,
		SuggestedSolutions: "ok",
		Categories:         []string{strings.Repeat("c", 40), "one", "two", "three", "four", "five", "six"},
	}

	res := h.submit(t, "a@x.com", long)
	draft, err := h.consolidation.GetDraft(context.Background(), res.DraftTicketID)
	require.NoError(t, err)

	assert.Equal(t, domain.MaxTitleLength, utf8.RuneCountInString(draft.Title))
	assert.Equal(t, domain.MaxTextLength, utf8.RuneCountInString(draft.Summary))
	assert.Equal(t, domain.MaxTextLength, utf8.RuneCountInString(draft.Requests[0].Body))
	assert.Len(t, draft.Categories, domain.MaxCategories)
	for _, c := range draft.Categories {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), domain.MaxCategoryLength)
	}
}

func TestListRequests_ReportsStage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.submit(t, "a@x.com", "printer broken")
	h.submit(t, "a@x.com", "monitor flickers")

	_, err := h.promotion.Promote(ctx, PromoteInput{DraftID: first.DraftTicketID, PerformedBy: "admin@example.com"})
	require.NoError(t, err)

	summaries, err := h.intake.ListRequests(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byToken := map[string]domain.RequestSummary{}
	for _, s := range summaries {
		byToken[s.Request.TrackingToken] = s
	}
	active := byToken[first.TrackingToken]
	assert.Equal(t, domain.StageActive, active.Stage)
	assert.Equal(t, string(domain.TicketStatusNew), active.Status)
	assert.NotNil(t, active.TicketID)

	for token, s := range byToken {
		if token != first.TrackingToken {
			assert.Equal(t, domain.StageDraft, s.Stage)
		}
	}
}
