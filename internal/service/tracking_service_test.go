package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceivoice/ticket-service/internal/domain"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

func TestResolve_DraftStage(t *testing.T) {
	h := newHarness(t)
	res := h.submit(t, "a@x.com", "printer broken")

	view, err := h.tracking.Resolve(context.Background(), res.TrackingToken, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StageDraft, view.Stage)
	assert.Equal(t, "Draft", view.Status)
	assert.Equal(t, "Issue: printer broken", view.Title)
	assert.Equal(t, "printer broken", view.RequestBody)
	assert.Nil(t, view.TicketID)
}

func TestResolve_ActiveStageHidesInternalComments(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, subs := activeTicket(t, h, "a@x.com")
	assignee := specialistEmail
	_, err := h.tickets.UpdateAssignee(ctx, ticket.ID, &assignee, admin)
	require.NoError(t, err)
	_, err = h.tickets.AddComment(ctx, ticket.ID, specialistEmail, "internal note", true)
	require.NoError(t, err)
	_, err = h.tickets.AddComment(ctx, ticket.ID, specialistEmail, "we are on it", false)
	require.NoError(t, err)

	view, err := h.tracking.Resolve(ctx, subs[0].TrackingToken, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StageActive, view.Stage)
	assert.Equal(t, "New", view.Status)
	require.NotNil(t, view.TicketID)
	assert.Equal(t, ticket.ID, *view.TicketID)
	assert.Equal(t, ticket.Content, view.Content)
	assert.Equal(t, []string{specialistEmail}, view.Assignees)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "we are on it", view.Comments[0].Body)
}

func TestResolve_PendingStage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.submit(t, "a@x.com", "printer broken")
	require.NoError(t, h.store.Drafts().DeleteRequestLinks(ctx, res.DraftTicketID))

	view, err := h.tracking.Resolve(ctx, res.TrackingToken, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StagePending, view.Stage)
	assert.Equal(t, "Pending", view.Status)
}

func TestResolve_RequiresMatchingEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.submit(t, "a@x.com", "printer broken")

	_, err := h.tracking.Resolve(ctx, res.TrackingToken, "b@x.com")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = h.tracking.Resolve(ctx, "unknown", "a@x.com")
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = h.tracking.Resolve(ctx, "", "")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAddPublicComment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draftOnly := h.submit(t, "c@x.com", "scanner offline")
	_, err := h.tracking.AddPublicComment(ctx, draftOnly.TrackingToken, "c@x.com", "any news?")
	requireCode(t, err, apperrors.CodeConsistency)

	ticket, subs := activeTicket(t, h, "a@x.com")
	comment, err := h.tracking.AddPublicComment(ctx, subs[0].TrackingToken, "a@x.com", "  any news?  ")
	require.NoError(t, err)
	assert.Equal(t, "any news?", comment.Body)
	assert.Equal(t, "a@x.com", comment.AuthorEmail)
	assert.False(t, comment.IsInternal)

	comments, err := h.tickets.ListComments(ctx, ticket.ID, false)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	_, err = h.tracking.AddPublicComment(ctx, subs[0].TrackingToken, "a@x.com", "")
	requireCode(t, err, apperrors.CodeValidation)
	_, err = h.tracking.AddPublicComment(ctx, subs[0].TrackingToken, "z@x.com", "hi")
	requireCode(t, err, apperrors.CodeNotFound)
}
