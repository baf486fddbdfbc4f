package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

type memoryLogRepo struct {
	mu     sync.Mutex
	logs   []*repository.SubscriptionLog
	failOn int64
}

func (m *memoryLogRepo) Log(_ context.Context, log *repository.SubscriptionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != 0 && log.UserID == m.failOn {
		return errors.New("write failed")
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryLogRepo) ListByUser(context.Context, int64, int) ([]*repository.SubscriptionLog, error) {
	return nil, nil
}

func (m *memoryLogRepo) DeleteBefore(context.Context, int64) (int64, error) { return 0, nil }

func (m *memoryLogRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func TestSubscriptionLogQueueFlush(t *testing.T) {
	repo := &memoryLogRepo{failOn: 2}
	q := NewSubscriptionLogQueue(repo, time.Hour, logging.Discard())
	defer q.Stop()

	q.Enqueue(&repository.SubscriptionLog{UserID: 1, Client: "general", Outcome: "ok"})
	q.Enqueue(&repository.SubscriptionLog{UserID: 2, Client: "clash", Outcome: "ok"})
	q.Enqueue(nil)
	assert.Equal(t, 2, q.Pending())

	assert.Equal(t, 1, q.Flush(context.Background()))
	assert.Equal(t, 0, q.Pending())
	require.Equal(t, 1, repo.count())
	assert.NotZero(t, repo.logs[0].CreatedAt)
}

func TestSubscriptionLogQueueStopDrains(t *testing.T) {
	repo := &memoryLogRepo{}
	q := NewSubscriptionLogQueue(repo, time.Hour, logging.Discard())
	for i := 0; i < 5; i++ {
		q.Enqueue(&repository.SubscriptionLog{UserID: int64(i + 1)})
	}
	q.Stop()
	assert.Equal(t, 5, repo.count())
}

func TestSubscriptionLogQueueDropsWhenFull(t *testing.T) {
	repo := &memoryLogRepo{}
	q := NewSubscriptionLogQueue(repo, time.Hour, logging.Discard())
	defer q.Stop()
	q.capacity = 2
	for i := 0; i < 4; i++ {
		q.Enqueue(&repository.SubscriptionLog{UserID: 1})
	}
	assert.Equal(t, 2, q.Pending())
	assert.Equal(t, 2, q.Flush(context.Background()))
}

func TestNilQueueIsSafe(t *testing.T) {
	var q *SubscriptionLogQueue
	q.Enqueue(&repository.SubscriptionLog{UserID: 1})
	q.Stop()
}
