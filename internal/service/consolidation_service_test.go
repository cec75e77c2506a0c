package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

func TestMerge_ConservesRequesters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")
	assignee := specialistEmail

	merged, err := h.consolidation.Merge(ctx, MergeInput{
		DraftIDs:           []string{d1.DraftTicketID, d2.DraftTicketID},
		Title:              "Network outage",
		Summary:            "Several users report no connectivity",
		SuggestedSolutions: "Restart the router",
		Categories:         []string{"A", "A", "B"},
		AssigneeEmail:      &assignee,
	})
	require.NoError(t, err)

	assert.Equal(t, "Network outage", merged.Title)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, requestEmails(merged))
	assert.Equal(t, []string{"A", "B"}, merged.Categories)
	assert.Equal(t, []string{specialistEmail}, merged.Assignees)

	for _, id := range []string{d1.DraftTicketID, d2.DraftTicketID} {
		_, err := h.store.Drafts().GetByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	assert.Equal(t, 1, h.draftCount(t))
}

func TestMerge_KeepsEveryCategory(t *testing.T) {
	h := newHarness(t)
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")

	merged, err := h.consolidation.Merge(context.Background(), MergeInput{
		DraftIDs:   []string{d1.DraftTicketID, d2.DraftTicketID},
		Title:      "Network outage",
		Categories: []string{"A", "B", "C", "D", "E", "F", "f"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F"}, merged.Categories)
}

type lockRecorder struct {
	repository.DraftTicketRepository
	locked []string
}

func (r *lockRecorder) GetForUpdate(ctx context.Context, id string) (*domain.DraftTicket, error) {
	r.locked = append(r.locked, id)
	return r.DraftTicketRepository.GetForUpdate(ctx, id)
}

func TestMerge_LocksSourcesInIDOrder(t *testing.T) {
	var recorder *lockRecorder
	h := newHarness(t, func(deps *Dependencies) {
		recorder = &lockRecorder{DraftTicketRepository: deps.Repos.Drafts}
		deps.Repos.Drafts = recorder
	})
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")
	d3 := h.submit(t, "c@x.com", "router blinking")

	ids := []string{d1.DraftTicketID, d2.DraftTicketID, d3.DraftTicketID}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	reversed := []string{sorted[2], sorted[1], sorted[0]}

	_, err := h.consolidation.Merge(context.Background(), MergeInput{DraftIDs: reversed, Title: "Network outage"})
	require.NoError(t, err)
	assert.Equal(t, sorted, recorder.locked)
}

func TestMerge_FailureLeavesSourcesIntact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")
	h.store.FailOn("drafts.Delete", errBoom)

	_, err := h.consolidation.Merge(ctx, MergeInput{
		DraftIDs: []string{d1.DraftTicketID, d2.DraftTicketID},
		Title:    "Network outage",
	})
	requireCode(t, err, apperrors.CodeInternal)
	h.store.ClearFaults()

	assert.Equal(t, 2, h.draftCount(t))
	for _, src := range []*SubmitResult{d1, d2} {
		draft, err := h.consolidation.GetDraft(ctx, src.DraftTicketID)
		require.NoError(t, err)
		require.Len(t, draft.Requests, 1)
		assert.Equal(t, src.UserRequestID, draft.Requests[0].ID)
		assert.Equal(t, []string{"Hardware"}, draft.Categories)
	}
}

func TestMerge_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")

	_, err := h.consolidation.Merge(ctx, MergeInput{DraftIDs: []string{d1.DraftTicketID, "missing"}, Title: "x"})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.consolidation.Merge(ctx, MergeInput{DraftIDs: []string{" ", ""}, Title: "x"})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = h.consolidation.Merge(ctx, MergeInput{DraftIDs: []string{d1.DraftTicketID}, Title: "  "})
	requireCode(t, err, apperrors.CodeValidation)

	unknown := "ghost@example.com"
	_, err = h.consolidation.Merge(ctx, MergeInput{DraftIDs: []string{d1.DraftTicketID}, Title: "x", AssigneeEmail: &unknown})
	requireCode(t, err, apperrors.CodeNotFound)

	draft, err := h.consolidation.GetDraft(ctx, d1.DraftTicketID)
	require.NoError(t, err)
	assert.Len(t, draft.Requests, 1)
	assert.Equal(t, 1, h.draftCount(t))
}

func TestUnlink_SplitsRequestIntoNewDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")
	merged, err := h.consolidation.Merge(ctx, MergeInput{
		DraftIDs: []string{d1.DraftTicketID, d2.DraftTicketID},
		Title:    "Network outage",
	})
	require.NoError(t, err)

	split, err := h.consolidation.Unlink(ctx, merged.ID, d2.UserRequestID)
	require.NoError(t, err)
	assert.Equal(t, "Unlinked: b@x.com", split.Title)
	assert.Equal(t, "no internet", split.Summary)
	assert.Equal(t, "Pending review", split.SuggestedSolutions)
	assert.Equal(t, []string{"b@x.com"}, requestEmails(split))

	remaining, err := h.consolidation.GetDraft(ctx, merged.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, requestEmails(remaining))
}

func TestUnlink_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")

	_, err := h.consolidation.Unlink(ctx, d1.DraftTicketID, d1.UserRequestID)
	requireCode(t, err, apperrors.CodeConsistency)

	_, err = h.consolidation.Unlink(ctx, d1.DraftTicketID, d2.UserRequestID)
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.consolidation.Unlink(ctx, "missing", d1.UserRequestID)
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.consolidation.Unlink(ctx, "", "")
	requireCode(t, err, apperrors.CodeValidation)

	assert.Equal(t, 2, h.draftCount(t))
}

func TestUnlink_FailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	d2 := h.submit(t, "b@x.com", "no internet")
	merged, err := h.consolidation.Merge(ctx, MergeInput{
		DraftIDs: []string{d1.DraftTicketID, d2.DraftTicketID},
		Title:    "Network outage",
	})
	require.NoError(t, err)

	h.store.FailOn("drafts.LinkRequest", errBoom)
	_, err = h.consolidation.Unlink(ctx, merged.ID, d2.UserRequestID)
	requireCode(t, err, apperrors.CodeInternal)
	h.store.ClearFaults()

	assert.Equal(t, 1, h.draftCount(t))
	draft, err := h.consolidation.GetDraft(ctx, merged.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@x.com", "b@x.com"}, requestEmails(draft))
}

func TestRecommendMerges(t *testing.T) {
	t.Run("skips the recommender with fewer than two drafts", func(t *testing.T) {
		h := newHarness(t)
		h.submit(t, "a@x.com", "wifi down")

		groups, err := h.consolidation.RecommendMerges(context.Background())
		require.NoError(t, err)
		assert.Empty(t, groups)
		assert.Equal(t, 0, h.ai.recommended)
	})

	t.Run("recommender failure yields no groups", func(t *testing.T) {
		h := newHarness(t)
		h.submit(t, "a@x.com", "wifi down")
		h.submit(t, "b@x.com", "no internet")
		h.ai.recommendErr = errBoom

		groups, err := h.consolidation.RecommendMerges(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, groups)
		assert.Empty(t, groups)
		assert.Equal(t, 1, h.ai.recommended)
	})

	t.Run("drops unknown ids and singleton groups", func(t *testing.T) {
		h := newHarness(t)
		d1 := h.submit(t, "a@x.com", "wifi down")
		d2 := h.submit(t, "b@x.com", "no internet")
		d3 := h.submit(t, "c@x.com", "printer jam")
		h.ai.groups = [][]string{
			{d1.DraftTicketID, d2.DraftTicketID, "stale", d1.DraftTicketID},
			{d3.DraftTicketID, "stale"},
		}

		groups, err := h.consolidation.RecommendMerges(context.Background())
		require.NoError(t, err)
		assert.Equal(t, [][]string{{d1.DraftTicketID, d2.DraftTicketID}}, groups)
	})
}

func TestUpdateDraft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	d1 := h.submit(t, "a@x.com", "wifi down")
	title := "  Wifi outage  "
	assignee := specialistEmail
	deadline := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	draft, err := h.consolidation.UpdateDraft(ctx, d1.DraftTicketID, DraftUpdateInput{
		Title:             &title,
		Deadline:          &deadline,
		Categories:        []string{"Network", "network", ""},
		ReplaceCategories: true,
		AssigneeEmail:     &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wifi outage", draft.Title)
	require.NotNil(t, draft.Deadline)
	assert.True(t, deadline.Equal(*draft.Deadline))
	assert.Equal(t, []string{"Network"}, draft.Categories)
	assert.Equal(t, []string{specialistEmail}, draft.Assignees)

	many := []string{"a", "b", "c", "d", "e", "f"}
	draft, err = h.consolidation.UpdateDraft(ctx, d1.DraftTicketID, DraftUpdateInput{Categories: many, ReplaceCategories: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, many, draft.Categories)

	draft, err = h.consolidation.UpdateDraft(ctx, d1.DraftTicketID, DraftUpdateInput{Categories: []string{"Network"}, ReplaceCategories: true})
	require.NoError(t, err)

	none := ""
	draft, err = h.consolidation.UpdateDraft(ctx, d1.DraftTicketID, DraftUpdateInput{ClearDeadline: true, AssigneeEmail: &none})
	require.NoError(t, err)
	assert.Nil(t, draft.Deadline)
	assert.Empty(t, draft.Assignees)
	assert.Equal(t, []string{"Network"}, draft.Categories)

	empty := " "
	_, err = h.consolidation.UpdateDraft(ctx, d1.DraftTicketID, DraftUpdateInput{Title: &empty})
	requireCode(t, err, apperrors.CodeValidation)

	_, err = h.consolidation.UpdateDraft(ctx, "missing", DraftUpdateInput{})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestListDrafts_NewestFirst(t *testing.T) {
	h := newHarness(t)
	first := h.submit(t, "a@x.com", "wifi down")
	second := h.submit(t, "b@x.com", "no internet")

	drafts, err := h.consolidation.ListDrafts(context.Background())
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, second.DraftTicketID, drafts[0].ID)
	assert.Equal(t, first.DraftTicketID, drafts[1].ID)
	assert.Len(t, drafts[0].Requests, 1)
}
