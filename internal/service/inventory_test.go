package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/protocol"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

var inventoryNow = time.Unix(1_700_000_000, 0)

func newTestInventory(servers *memoryServers, liveness *cache.Liveness) *inventory {
	inv := NewInventory(servers, liveness, logging.Discard()).(*inventory)
	inv.now = func() time.Time { return inventoryNow }
	return inv
}

func serverRecord(id int64, typ, groups string, sort int64, settings string) *repository.Server {
	return &repository.Server{
		ID:        id,
		Type:      typ,
		Name:      "node",
		Host:      "example.com",
		Port:      "443",
		GroupIDs:  json.RawMessage(groups),
		Show:      true,
		Sort:      sort,
		Settings:  json.RawMessage(settings),
		CreatedAt: 100,
		UpdatedAt: 200,
	}
}

func TestInventoryFiltersByGroupTolerantly(t *testing.T) {
	repo := &memoryServers{servers: []*repository.Server{
		serverRecord(1, "vless", `[1, 2]`, 0, `{}`),
		serverRecord(2, "vmess", `["2","3"]`, 0, `{}`),
		serverRecord(3, "trojan", `["x", 3]`, 0, `{}`),
		serverRecord(4, "shadowsocks", `not json`, 0, `{"cipher":"aes-128-gcm"}`),
	}}
	hidden := serverRecord(5, "vless", `[2]`, 0, `{}`)
	hidden.Show = false
	repo.servers = append(repo.servers, hidden)

	inv := newTestInventory(repo, nil)
	servers, err := inv.ListForUser(context.Background(), &repository.User{ID: 1, GroupID: 2})
	require.NoError(t, err)

	ids := make([]int64, 0, len(servers))
	for _, s := range servers {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []int64{2, 3}, servers[1].GroupIDs)
}

func TestInventorySortsStably(t *testing.T) {
	repo := &memoryServers{servers: []*repository.Server{
		serverRecord(3, "vless", `[1]`, 2, `{}`),
		serverRecord(1, "vless", `[1]`, 5, `{}`),
		serverRecord(2, "vless", `[1]`, 2, `{}`),
	}}
	servers, err := newTestInventory(repo, nil).ListForUser(context.Background(), &repository.User{GroupID: 1})
	require.NoError(t, err)
	require.Len(t, servers, 3)
	assert.Equal(t, int64(2), servers[0].ID)
	assert.Equal(t, int64(3), servers[1].ID)
	assert.Equal(t, int64(1), servers[2].ID)
}

func TestInventoryOnlineAndCacheKey(t *testing.T) {
	ctx := context.Background()
	fresh := serverRecord(1, "vless", `[1]`, 0, `{}`)
	stale := serverRecord(2, "vmess", `[1]`, 0, `{}`)
	stale.LastHeartbeatAt = inventoryNow.Unix() - 301
	cached := serverRecord(3, "trojan", `[1]`, 0, `{}`)

	liveness := cache.NewLiveness(cache.NewStore(cache.Options{}), 300*time.Second)
	require.NoError(t, liveness.Mark(ctx, "vless", 1, inventoryNow.Unix()-300))
	require.NoError(t, liveness.Mark(ctx, "trojan", 3, inventoryNow.Unix()-5))

	repo := &memoryServers{servers: []*repository.Server{fresh, stale, cached}}
	servers, err := newTestInventory(repo, liveness).ListForUser(ctx, &repository.User{GroupID: 1})
	require.NoError(t, err)
	require.Len(t, servers, 3)

	assert.True(t, servers[0].IsOnline)
	assert.Equal(t, "vless-1-200-1", servers[0].CacheKey)
	assert.False(t, servers[1].IsOnline)
	assert.Equal(t, "vmess-2-200-0", servers[1].CacheKey)
	assert.True(t, servers[2].IsOnline)
	assert.Equal(t, inventoryNow.Unix()-5, servers[2].LastCheckAt)
}

func TestInventoryDecodesServer(t *testing.T) {
	record := serverRecord(7, "VLESS", `[1]`, 0, `{"network":"ws","tls":2,"tlsSettings":{"serverName":"sni.example","publicKey":"pk"},"networkSettings":{"path":"/ws"}}`)
	record.Name = "<b>HK</b> & 01"
	record.Port = "20000-20010"
	broken := serverRecord(8, "vmess", `[1]`, 0, `{"network":`)

	repo := &memoryServers{servers: []*repository.Server{record, broken}}
	servers, err := newTestInventory(repo, nil).ListForUser(context.Background(), &repository.User{GroupID: 1})
	require.NoError(t, err)
	require.Len(t, servers, 2)

	s := servers[0]
	assert.Equal(t, protocol.TypeVLESS, s.Type)
	assert.Equal(t, "HK & 01", s.Name)
	assert.Equal(t, "20000-20010", s.PortRange)
	assert.Equal(t, 20000, s.Port)
	require.NotNil(t, s.VLESS)
	assert.Equal(t, protocol.TLSModeReality, s.VLESS.TLSMode)
	assert.Equal(t, "sni.example", s.VLESS.TLSSettings.ServerName)
	assert.Equal(t, "pk", s.VLESS.TLSSettings.PublicKey)
	require.NotNil(t, s.VLESS.NetworkSettings)
	assert.Equal(t, "/ws", s.VLESS.NetworkSettings.Path)

	// 损坏的 settings 退化为默认负载，节点仍然保留。
	require.NotNil(t, servers[1].VMess)
	assert.Equal(t, protocol.NetworkTCP, servers[1].VMess.Network)
}

func TestInventoryErrors(t *testing.T) {
	inv := newTestInventory(&memoryServers{listErr: assert.AnError}, nil)
	_, err := inv.ListForUser(context.Background(), &repository.User{GroupID: 1})
	require.ErrorIs(t, err, assert.AnError)

	servers, err := inv.ListForUser(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestParseGroupIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 3}, parseGroupIDs(json.RawMessage(`[1,"2"," 3 ",1.5,null,"a"]`)))
	assert.Equal(t, []int64{4}, parseGroupIDs(json.RawMessage(`"4"`)))
	assert.Nil(t, parseGroupIDs(nil))
	assert.Nil(t, parseGroupIDs(json.RawMessage(`{`)))
}
