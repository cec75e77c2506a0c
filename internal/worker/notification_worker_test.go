package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ceivoice/ticket-service/internal/notify"
	"github.com/ceivoice/ticket-service/internal/observability"
)

type fakeSender struct {
	mu        sync.Mutex
	delivered []string
	failFor   string
}

func (s *fakeSender) SendConfirmation(_ context.Context, email, _ string) error {
	return s.record(email)
}

func (s *fakeSender) SendStatusUpdate(_ context.Context, email, _, _, _ string) error {
	return s.record(email)
}

func (s *fakeSender) record(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email == s.failFor {
		return errors.New("mailbox unavailable")
	}
	s.delivered = append(s.delivered, email)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestNotificationWorker_DeliversAndSurvivesFailures(t *testing.T) {
	queue := notify.NewChannelQueue(10)
	sender := &fakeSender{failFor: "bad@example.com"}
	metrics := observability.NewMetrics()
	w := NewNotificationWorker(queue, sender, zap.NewNop(), metrics)

	ctx := context.Background()
	require.NoError(t, queue.Enqueue(ctx, notify.NewConfirmation("a@example.com", "t1")))
	require.NoError(t, queue.Enqueue(ctx, notify.NewStatusUpdate("bad@example.com", "x", "Solved", "t2")))
	require.NoError(t, queue.Enqueue(ctx, notify.NewStatusUpdate("b@example.com", "x", "Solved", "t3")))

	runCtx, cancel := context.WithCancel(ctx)
	done := w.Start(runCtx)

	assert.Eventually(t, func() bool { return sender.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Notifications["confirmation|sent"])
	assert.Equal(t, int64(1), snap.Notifications["status_update|sent"])
	assert.Equal(t, int64(1), snap.Notifications["status_update|failed"])
}

func TestNotificationWorker_StopsOnCancel(t *testing.T) {
	w := NewNotificationWorker(notify.NewChannelQueue(1), &fakeSender{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
