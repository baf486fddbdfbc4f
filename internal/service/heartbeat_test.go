package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

func TestHeartbeatBeat(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	repo := &memoryServers{servers: []*repository.Server{serverRecord(1, "vless", `[1]`, 0, `{}`)}}
	liveness := cache.NewLiveness(cache.NewStore(cache.Options{}), time.Minute)
	svc := NewHeartbeatService(repo, liveness, "node-key", logging.Discard()).(*heartbeatService)
	svc.now = func() time.Time { return now }

	require.ErrorIs(t, svc.Beat(ctx, 1, "wrong"), ErrInvalidServerToken)
	require.ErrorIs(t, svc.Beat(ctx, 99, "node-key"), ErrNotFound)

	require.NoError(t, svc.Beat(ctx, 1, " node-key "))
	assert.Equal(t, now.Unix(), repo.servers[0].LastHeartbeatAt)
	at, ok := liveness.LastCheck(ctx, "vless", 1)
	require.True(t, ok)
	assert.Equal(t, now.Unix(), at)
}

func TestHeartbeatRejectsWhenTokenUnset(t *testing.T) {
	svc := NewHeartbeatService(&memoryServers{}, nil, "", logging.Discard())
	require.ErrorIs(t, svc.Beat(context.Background(), 1, ""), ErrInvalidServerToken)
}

func TestHeartbeatSync(t *testing.T) {
	ctx := context.Background()
	a := serverRecord(1, "vless", `[1]`, 0, `{}`)
	a.LastHeartbeatAt = 500
	b := serverRecord(2, "vmess", `[1]`, 0, `{}`)
	c := serverRecord(3, "trojan", `[1]`, 0, `{}`)
	c.LastHeartbeatAt = 100
	repo := &memoryServers{servers: []*repository.Server{a, b, c}}

	liveness := cache.NewLiveness(cache.NewStore(cache.Options{}), time.Minute)
	require.NoError(t, liveness.Mark(ctx, "trojan", 3, 200))
	svc := NewHeartbeatService(repo, liveness, "k", logging.Discard())

	n, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	at, ok := liveness.LastCheck(ctx, "vless", 1)
	require.True(t, ok)
	assert.Equal(t, int64(500), at)
	at, _ = liveness.LastCheck(ctx, "trojan", 3)
	assert.Equal(t, int64(200), at)
	_, ok = liveness.LastCheck(ctx, "vmess", 2)
	assert.False(t, ok)

	_, err = NewHeartbeatService(repo, nil, "k", logging.Discard()).Sync(ctx)
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewUserCredentials(t *testing.T) {
	a := NewUserCredentials()
	b := NewUserCredentials()
	assert.Len(t, a.UUID, 36)
	assert.Len(t, a.Token, 32)
	assert.NotEqual(t, a.Token, b.Token)
}
