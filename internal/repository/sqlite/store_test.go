package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/bootstrap"
	"github.com/creamcroissant/xboard-sub/internal/migrations"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test.db")
	db, err := bootstrap.OpenSQLite(context.Background(), path, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))
	return NewStore(db), db
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	created, err := store.Users().Create(ctx, &repository.User{
		UUID: "uuid-1", Token: "tok-1", Email: "a@example.com", GroupID: 2, TransferEnable: 1024, Banned: true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	byToken, err := store.Users().FindByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)
	assert.True(t, byToken.Banned)
	assert.Equal(t, int64(1024), byToken.TransferEnable)

	byEmail, err := store.Users().FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", byEmail.UUID)

	_, err = store.Users().FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.Users().Create(ctx, &repository.User{UUID: "uuid-2", Token: "tok-1", Email: "b@example.com"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	count, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPlanRepositoryResetMethod(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	method := int64(2)
	withMethod, err := store.Plans().Create(ctx, &repository.Plan{Name: "monthly", ResetTrafficMethod: &method})
	require.NoError(t, err)
	without, err := store.Plans().Create(ctx, &repository.Plan{Name: "default"})
	require.NoError(t, err)

	got, err := store.Plans().FindByID(ctx, withMethod.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResetTrafficMethod)
	assert.Equal(t, int64(2), *got.ResetTrafficMethod)

	got, err = store.Plans().FindByID(ctx, without.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ResetTrafficMethod)
}

func TestServerRepository(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	visible := &repository.Server{Type: "vless", Name: "b", Host: "b.example", Port: "443", GroupIDs: json.RawMessage(`[1,"2"]`), Show: true, Sort: 2, Settings: json.RawMessage(`{"tls":1}`)}
	first := &repository.Server{Type: "trojan", Name: "a", Host: "a.example", Port: "20000-30000", Show: true, Sort: 1}
	hidden := &repository.Server{Type: "vmess", Name: "h", Host: "h.example", Port: "80"}
	for _, s := range []*repository.Server{visible, first, hidden} {
		require.NoError(t, store.Servers().Create(ctx, s))
	}

	list, err := store.Servers().ListVisible(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.JSONEq(t, `[]`, string(list[0].GroupIDs))
	assert.JSONEq(t, `{}`, string(list[0].Settings))
	assert.JSONEq(t, `[1,"2"]`, string(list[1].GroupIDs))

	all, err := store.Servers().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Servers().TouchHeartbeat(ctx, visible.ID, 1_700_000_000))
	got, err := store.Servers().FindByID(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), got.LastHeartbeatAt)
	assert.Equal(t, visible.UpdatedAt, got.UpdatedAt)

	assert.ErrorIs(t, store.Servers().TouchHeartbeat(ctx, 999, 1), repository.ErrNotFound)
	_, err = store.Servers().FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionLogRepository(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	logs := store.SubscriptionLogs()

	for _, at := range []int64{100, 200, 300} {
		require.NoError(t, logs.Log(ctx, &repository.SubscriptionLog{UserID: 1, Client: "general", Outcome: "ok", CreatedAt: at, IP: "198.51.100.1"}))
	}
	require.NoError(t, logs.Log(ctx, &repository.SubscriptionLog{UserID: 2, CreatedAt: 150}))

	recent, err := logs.ListByUser(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(300), recent[0].CreatedAt)
	assert.Equal(t, int64(200), recent[1].CreatedAt)

	deleted, err := logs.DeleteBefore(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := logs.ListByUser(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestMigrationsDownAndUp(t *testing.T) {
	_, db := newTestStore(t)
	version, err := migrations.Version(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	require.NoError(t, migrations.Down(db))
	version, err = migrations.Version(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, migrations.Up(db))
}
