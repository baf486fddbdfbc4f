package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	root := NewStore(Options{Prefix: "xboard"})
	a := root.Namespace("a")
	b := root.Namespace("b")

	require.NoError(t, a.Set(ctx, "k", "one", time.Minute))
	_, ok := b.Get(ctx, "k")
	require.False(t, ok)

	v, ok := a.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "one", v)

	_, ok = root.Get(ctx, "a:k")
	require.True(t, ok, "namespaces share one backend")

	a.Delete(ctx, "k")
	_, ok = a.Get(ctx, "k")
	require.False(t, ok)
}

func TestGetInt64AndIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewStore(Options{})

	n, err := store.Increment(ctx, "hits", 2, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	n, err = store.Increment(ctx, "hits", 3, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)

	require.NoError(t, store.Set(ctx, "str", "42", time.Minute))
	got, ok := store.GetInt64(ctx, "str")
	require.True(t, ok)
	require.Equal(t, int64(42), got)

	require.NoError(t, store.Set(ctx, "bad", "x", time.Minute))
	_, ok = store.GetInt64(ctx, "bad")
	require.False(t, ok)

	ttl, ok := store.TTL(ctx, "hits")
	require.True(t, ok)
	require.LessOrEqual(t, ttl, time.Minute)
}

func TestLiveness(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	live := NewLiveness(NewStore(Options{}), 300*time.Second)
	live.now = func() time.Time { return now }

	_, ok := live.LastCheck(ctx, "vless", 1)
	require.False(t, ok)

	require.NoError(t, live.Mark(ctx, "VLESS", 1, now.Unix()-10))
	at, ok := live.LastCheck(ctx, "vless", 1)
	require.True(t, ok)
	require.Equal(t, now.Unix()-10, at)
	require.True(t, live.Online(at))

	_, ok = live.LastCheck(ctx, "vmess", 1)
	require.False(t, ok)

	require.True(t, live.Online(now.Unix()-300))
	require.False(t, live.Online(now.Unix()-301))
	require.False(t, live.Online(0))
}
