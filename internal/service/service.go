package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/ai"
	"github.com/ceivoice/ticket-service/internal/domain"
	"github.com/ceivoice/ticket-service/internal/events"
	"github.com/ceivoice/ticket-service/internal/observability"
	"github.com/ceivoice/ticket-service/internal/repository"
	apperrors "github.com/ceivoice/ticket-service/pkg/util/errorutil"
)

// Dependencies bundles collaborators shared by the lifecycle services.
type Dependencies struct {
	Repos       repository.Set
	Drafter     ai.Drafter
	Recommender ai.Recommender
	Dispatcher  events.Dispatcher
	Transitions TransitionPolicy
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

func (d Dependencies) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// unitOfWork runs transactional operations and records their outcome.
type unitOfWork struct {
	tx      repository.Transactor
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newUnitOfWork(deps Dependencies) unitOfWork {
	return unitOfWork{tx: deps.Repos.Tx, logger: deps.logger(), metrics: deps.Metrics}
}

// run executes fn in one transaction. Domain errors pass through; anything
// else becomes an internal error.
func (u unitOfWork) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := u.tx.RunInTransaction(ctx, fn)
	u.metrics.RecordOperation(op, err)
	if err == nil {
		return nil
	}

	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		u.logger.Error("transaction rolled back", zap.String("operation", op), zap.Error(err))
	} else {
		u.logger.Info("transaction rolled back",
			zap.String("operation", op),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message))
	}
	return domainErr
}

// publisher emits events after commit. Failures are logged, never returned.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}

func cleanEmail(raw string) string {
	return domain.Truncate(strings.TrimSpace(raw), domain.MaxEmailLength)
}

func optionalString(raw string, limit int) *string {
	trimmed := domain.Truncate(strings.TrimSpace(raw), limit)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
