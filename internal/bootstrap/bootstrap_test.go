package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/protocol"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sub.db")
	db, err := OpenSQLite(context.Background(), path, logging.Discard())
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", nil)
	require.Error(t, err)
}

func TestBuildInfrastructure(t *testing.T) {
	cfg := &config.Config{
		Subscribe: config.SubscribeConfig{OnlineWindow: 2 * time.Minute},
		I18n:      config.I18nConfig{DefaultLang: "en-US", Dir: filepath.Join(t.TempDir(), "missing")},
	}
	infra, err := BuildInfrastructure(cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, infra.Liveness.Window())
	assert.Equal(t, "en-US", infra.I18n.DefaultLang())

	families, err := infra.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	_, err = BuildInfrastructure(nil, nil)
	require.Error(t, err)
}

func TestNewProtocolManager(t *testing.T) {
	m, err := NewProtocolManager(config.SubscribeConfig{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"clash", "general"}, m.Flags())

	builder, singbox := m.Select(protocol.ResolveClient("", "sing-box 1.12.0"))
	assert.True(t, singbox)
	assert.Equal(t, "sing-box", protocol.BuilderName(builder))

	builder, _ = m.Select(protocol.ResolveClient("", "Shadowrocket/1.0"))
	assert.Equal(t, "general", protocol.BuilderName(builder))

	_, err = NewProtocolManager(config.SubscribeConfig{ClashTemplate: filepath.Join(t.TempDir(), "none.yaml")}, nil)
	require.Error(t, err)
}

func TestNewHTTPServer(t *testing.T) {
	srv := NewHTTPServer(&config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}, nil)
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Equal(t, 60*time.Second, srv.WriteTimeout)
}
