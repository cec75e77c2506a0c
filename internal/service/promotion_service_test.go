package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// mergedDraft submits one request per entry and merges them into one draft.
func mergedDraft(t *testing.T, h *harness, submissions ...[2]string) (*domain.DraftTicket, []*SubmitResult) {
	t.Helper()
	results := make([]*SubmitResult, 0, len(submissions))
	ids := make([]string, 0, len(submissions))
	for _, s := range submissions {
		res := h.submit(t, s[0], s[1])
		results = append(results, res)
		ids = append(ids, res.DraftTicketID)
	}
	merged, err := h.consolidation.Merge(context.Background(), MergeInput{
		DraftIDs:   ids,
		Title:      "Network outage",
		Summary:    "No connectivity on floor 3",
		Categories: []string{"Network"},
	})
	require.NoError(t, err)
	return merged, results
}

func TestPromote_CarriesRequestersAndOrigins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	draft, subs := mergedDraft(t, h,
		[2]string{"a@x.com", "wifi down"},
		[2]string{"a@x.com", "still down"},
		[2]string{"b@x.com", "no internet"},
	)
	h.drain()

	ticket, err := h.promotion.Promote(ctx, PromoteInput{DraftID: draft.ID, PerformedBy: "admin@example.com"})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, "Network outage", ticket.Title)
	assert.Equal(t, "No connectivity on floor 3", ticket.Content)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, ticket.Followers)
	assert.Equal(t, []string{"Network"}, ticket.Categories)

	origins, err := h.store.Tickets().ListRequestIDs(ctx, ticket.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{subs[0].UserRequestID, subs[1].UserRequestID, subs[2].UserRequestID}, origins)

	history, err := h.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ActionPromoted, history[0].Action)
	assert.Equal(t, "admin@example.com", history[0].PerformedBy)
	assert.Equal(t, "from draft "+draft.ID, history[0].Details)

	_, err = h.store.Drafts().GetByID(ctx, draft.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, h.draftCount(t))

	msgs := h.drain()
	require.Len(t, msgs, 2)
	tokens := map[string]string{}
	for _, m := range msgs {
		assert.Equal(t, notify.KindStatusUpdate, m.Kind)
		assert.Equal(t, string(domain.TicketStatusNew), m.Status)
		tokens[m.To] = m.TrackingToken
	}
	assert.Equal(t, subs[0].TrackingToken, tokens["a@x.com"], "earliest request token is used")
	assert.Equal(t, subs[2].TrackingToken, tokens["b@x.com"])
}

func TestPromote_DeadlineOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.submit(t, "a@x.com", "wifi down")
	override := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ticket, err := h.promotion.Promote(ctx, PromoteInput{DraftID: res.DraftTicketID, Deadline: &override})
	require.NoError(t, err)
	require.NotNil(t, ticket.Deadline)
	assert.True(t, override.Equal(*ticket.Deadline))
}

func TestPromote_AssigneeResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("inherits the draft assignee", func(t *testing.T) {
		h := newHarness(t)
		res := h.submit(t, "a@x.com", "wifi down")
		assignee := specialistEmail
		draftDeadline := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
		_, err := h.consolidation.UpdateDraft(ctx, res.DraftTicketID, DraftUpdateInput{
			AssigneeEmail: &assignee,
			Deadline:      &draftDeadline,
		})
		require.NoError(t, err)

		ticket, err := h.promotion.Promote(ctx, PromoteInput{DraftID: res.DraftTicketID})
		require.NoError(t, err)
		assert.Equal(t, []string{specialistEmail}, ticket.Assignees)
		require.NotNil(t, ticket.Deadline)
		assert.True(t, draftDeadline.Equal(*ticket.Deadline))
	})

	t.Run("unknown override is rejected", func(t *testing.T) {
		h := newHarness(t)
		res := h.submit(t, "a@x.com", "wifi down")
		ghost := "ghost@example.com"

		_, err := h.promotion.Promote(ctx, PromoteInput{DraftID: res.DraftTicketID, AssigneeEmail: &ghost})
		requireCode(t, err, apperrors.CodeNotFound)
		assert.Equal(t, 1, h.draftCount(t))
	})
}

func TestPromote_FailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	draft, _ := mergedDraft(t, h,
		[2]string{"a@x.com", "wifi down"},
		[2]string{"b@x.com", "no internet"},
	)
	h.drain()
	h.store.FailOn("tickets.LinkRequests", errBoom)

	_, err := h.promotion.Promote(ctx, PromoteInput{DraftID: draft.ID})
	requireCode(t, err, apperrors.CodeInternal)
	h.store.ClearFaults()

	restored, err := h.consolidation.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, requestEmails(restored))
	assert.Equal(t, []string{"Network"}, restored.Categories)

	tickets, err := h.tickets.ListTickets(ctx, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, h.drain())
}

func TestPromote_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.promotion.Promote(ctx, PromoteInput{DraftID: "missing"})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.promotion.Promote(ctx, PromoteInput{DraftID: " "})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestFollowersOf_KeepsEarliestToken(t *testing.T) {
	requests := []domain.UserRequest{
		{ID: "1", RequesterEmail: "a@x.com", TrackingToken: "t1"},
		{ID: "2", RequesterEmail: "b@x.com", TrackingToken: "t2"},
		{ID: "3", RequesterEmail: "a@x.com", TrackingToken: "t3"},
	}
	assert.Equal(t, []domain.Follower{
		{Email: "a@x.com", TrackingToken: "t1"},
		{Email: "b@x.com", TrackingToken: "t2"},
	}, followersOf(requests))
}
