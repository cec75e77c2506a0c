package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/observability"
	"github.com/ceivoice/ticket-service/internal/repository/memory"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

var errBoom = errors.New("boom")

const specialistEmail = "spec@example.com"

type stubAI struct {
	suggestion   *ai.Suggestion
	draftErr     error
	groups       [][]string
	recommendErr error
	recommended  int
}

func (s *stubAI) Draft(_ context.Context, text string) (*ai.Suggestion, error) {
	if s.draftErr != nil {
		return nil, s.draftErr
	}
	if s.suggestion != nil {
		out := *s.suggestion
		return &out, nil
	}
	return &ai.Suggestion{
		Title:              "Issue: " + text,
		Summary:            text,
		SuggestedSolutions: "Restart the device",
		Categories:         []string{"Hardware"},
	}, nil
}

func (s *stubAI) Recommend(_ context.Context, _ []ai.DraftDigest) ([][]string, error) {
	s.recommended++
	return s.groups, s.recommendErr
}

type harness struct {
	store   *memory.Store
	ai      *stubAI
	queue   *notify.ChannelQueue
	metrics *observability.Metrics

	intake        *IntakeService
	consolidation *ConsolidationService
	promotion     *PromotionService
	tickets       *TicketService
	tracking      *TrackingService
}

func newHarness(t *testing.T, opts ...func(*Dependencies)) *harness {
	t.Helper()
	store := memory.NewStore()
	stub := &stubAI{}
	queue := notify.NewChannelQueue(64)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, queue, nil, metrics).RegisterHandlers()

	deps := Dependencies{
		Repos:       store.Set(),
		Drafter:     stub,
		Recommender: stub,
		Dispatcher:  dispatcher,
		Transitions: PermissiveTransitions{},
		Metrics:     metrics,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	require.NoError(t, store.Staff().Create(context.Background(), &domain.StaffMember{
		Name:   "Spec",
		Email:  specialistEmail,
		Role:   domain.StaffRoleSpecialist,
		Active: true,
	}))

	return &harness{
		store:         store,
		ai:            stub,
		queue:         queue,
		metrics:       metrics,
		intake:        NewIntakeService(deps),
		consolidation: NewConsolidationService(deps),
		promotion:     NewPromotionService(deps),
		tickets:       NewTicketService(deps),
		tracking:      NewTrackingService(deps),
	}
}

func (h *harness) submit(t *testing.T, email, text string) *SubmitResult {
	t.Helper()
	res, err := h.intake.Submit(context.Background(), email, text)
	require.NoError(t, err)
	return res
}

// drain empties the notification queue and returns what was in it.
func (h *harness) drain() []notify.Message {
	var out []notify.Message
	for h.queue.Len() > 0 {
		msg, err := h.queue.Dequeue(context.Background())
		if err != nil {
			break
		}
		out = append(out, msg)
	}
	return out
}

func (h *harness) draftCount(t *testing.T) int {
	t.Helper()
	drafts, err := h.store.Drafts().List(context.Background())
	require.NoError(t, err)
	return len(drafts)
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func requestEmails(d *domain.DraftTicket) []string {
	out := make([]string, 0, len(d.Requests))
	for _, r := range d.Requests {
		out = append(out, r.RequesterEmail)
	}
	return out
}
