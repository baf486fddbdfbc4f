package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

type countingJob struct {
	runs int
	err  error
	boom bool
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	if j.boom {
		panic("kaboom")
	}
	return j.err
}

type stubHeartbeat struct {
	synced int
	err    error
	calls  int
}

func (s *stubHeartbeat) Beat(context.Context, int64, string) error { return nil }

func (s *stubHeartbeat) Sync(context.Context) (int, error) {
	s.calls++
	return s.synced, s.err
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(logging.Discard())

	_, err := s.Register("", &countingJob{})
	require.Error(t, err)
	_, err = s.Register("@every 1m", nil)
	require.Error(t, err)
	_, err = s.Register("not a spec", &countingJob{})
	require.Error(t, err)

	_, err = s.Register("@every 1m", &countingJob{})
	require.NoError(t, err)
	_, err = s.Register("*/30 * * * * *", &countingJob{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Start()
	<-s.Stop().Done()
}

func TestSchedulerRunNowRecovers(t *testing.T) {
	s := NewScheduler(logging.Discard())
	job := &countingJob{boom: true}
	assert.NotPanics(t, func() { s.RunNow(job) })
	assert.Equal(t, 1, job.runs)

	failing := &countingJob{err: errors.New("nope")}
	s.RunNow(failing)
	assert.Equal(t, 1, failing.runs)
}

func TestLivenessSyncJob(t *testing.T) {
	hb := &stubHeartbeat{synced: 3}
	j := NewLivenessSyncJob(hb, logging.Discard())
	assert.Equal(t, "liveness-sync", j.Name())
	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, 1, hb.calls)

	hb.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
}

type cutoffRecorder struct {
	before  int64
	deleted int64
}

func (c *cutoffRecorder) Log(context.Context, *repository.SubscriptionLog) error { return nil }

func (c *cutoffRecorder) ListByUser(context.Context, int64, int) ([]*repository.SubscriptionLog, error) {
	return nil, nil
}

func (c *cutoffRecorder) DeleteBefore(_ context.Context, before int64) (int64, error) {
	c.before = before
	return c.deleted, nil
}

func TestSubscriptionLogCleanupJob(t *testing.T) {
	repo := &cutoffRecorder{deleted: 4}
	j := NewSubscriptionLogCleanupJob(repo, 48*time.Hour, logging.Discard())
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour).Unix(), repo.before)

	repo.before = 0
	disabled := NewSubscriptionLogCleanupJob(repo, 0, logging.Discard())
	require.NoError(t, disabled.Run(context.Background()))
	assert.Zero(t, repo.before)

	require.Error(t, NewSubscriptionLogCleanupJob(nil, time.Hour, nil).Run(context.Background()))
}
