package protocol

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/repository"
)

var uriGrammar = regexp.MustCompile(`^(vmess://[A-Za-z0-9+/=]+|vless://[^@]+@[^:]+(:[^:]+)*:\d+\?[^#]*#.*|ss://[A-Za-z0-9_-]+@[^:]+:\d+#.*|trojan://[^@]+@[^:]+:\d+\?[^#]*#.*)$`)

func sampleServers(t *testing.T) []Server {
	return []Server{
		mustServer(t, TypeVMess, "vmess", "v.example.com", 443, `{"network":"ws","tls":1}`),
		mustServer(t, TypeVLESS, "vless", "l.example.com", 443, `{"tls":2,"tls_settings":{"public_key":"k","short_id":"s"}}`),
		mustServer(t, TypeShadowsocks, "ss", "s.example.com", 8388, `{"cipher":"2022-blake3-aes-256-gcm"}`),
		mustServer(t, TypeTrojan, "trojan", "t.example.com", 443, `{"server_name":"t.example.com"}`),
		mustServer(t, TypeHysteria, "hy2", "h.example.com", 443, `{"version":2}`),
		{ID: 7, Name: "no type", Host: "x.example.com", Port: 1},
	}
}

func TestGeneralBuilderRoundTrip(t *testing.T) {
	b := NewGeneralBuilder()
	res, err := b.Build(BuildRequest{User: &repository.User{UUID: testUUID}, Servers: sampleServers(t)})
	require.NoError(t, err)
	require.False(t, res.Empty())

	decoded, err := base64.StdEncoding.DecodeString(string(res.Payload))
	require.NoError(t, err)
	text := string(decoded)
	require.True(t, strings.HasSuffix(text, "\r\n"))

	lines := strings.Split(strings.TrimSuffix(text, "\r\n"), "\r\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.Regexp(t, uriGrammar, line)
	}
	assert.Contains(t, res.Headers["subscription-userinfo"], "upload=0")
}

func TestGeneralBuilderEmptyCases(t *testing.T) {
	b := NewGeneralBuilder()

	res, err := b.Build(BuildRequest{User: &repository.User{UUID: testUUID}})
	require.NoError(t, err)
	assert.True(t, res.Empty())

	res, err = b.Build(BuildRequest{User: &repository.User{}, Servers: sampleServers(t)})
	require.NoError(t, err)
	assert.True(t, res.Empty())

	assert.Equal(t, "", AssembleDocument(nil))
}

func TestEncodeServerErrors(t *testing.T) {
	_, err := EncodeServer(testUUID, Server{Name: "x"})
	assert.ErrorIs(t, err, ErrMissingType)

	_, err = EncodeServer("", Server{Type: TypeVMess})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = EncodeServer(testUUID, Server{Type: TypeHysteria})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestInjectInfoOrder(t *testing.T) {
	servers := []Server{{ID: 1, Type: TypeTrojan, Name: "first", Host: "h"}, {ID: 2, Name: "second"}}

	out := InjectInfo(servers, SubscribeInfo{TrafficLine: "traffic", ResetLine: "reset", ExpireLine: "expire"})
	require.Len(t, out, 5)
	names := []string{out[0].Name, out[1].Name, out[2].Name, out[3].Name, out[4].Name}
	assert.Equal(t, []string{"traffic", "reset", "expire", "first", "second"}, names)
	assert.Equal(t, TypeTrojan, out[0].Type)
	assert.Equal(t, "h", out[1].Host)
	assert.Equal(t, "first", servers[0].Name)

	out = InjectInfo(servers, SubscribeInfo{TrafficLine: "traffic", ExpireLine: "expire"})
	require.Len(t, out, 4)
	assert.Equal(t, "expire", out[1].Name)

	assert.Empty(t, InjectInfo(nil, SubscribeInfo{TrafficLine: "traffic"}))
}

func TestBuildInfo(t *testing.T) {
	user := &repository.User{UUID: testUUID, TransferEnable: 1073741824}
	info := BuildInfo(user, 0, false, InfoOptions{Location: time.UTC})
	assert.Equal(t, "剩余流量：1.00 GB", info.TrafficLine)
	assert.Equal(t, "套餐到期：长期有效", info.ExpireLine)
	assert.Empty(t, info.ResetLine)

	user.ExpiredAt = time.Date(2030, 5, 6, 10, 0, 0, 0, time.UTC).Unix()
	info = BuildInfo(user, 12, true, InfoOptions{Location: time.UTC})
	assert.Equal(t, "距离下次重置剩余：12 天", info.ResetLine)
	assert.Equal(t, "套餐到期：2030-05-06", info.ExpireLine)

	info = BuildInfo(user, 0, true, InfoOptions{Location: time.UTC})
	assert.Empty(t, info.ResetLine)
}

func TestEndToEndInfoLine(t *testing.T) {
	user := &repository.User{UUID: testUUID, TransferEnable: 1073741824}
	info := BuildInfo(user, 0, false, InfoOptions{Location: time.UTC})
	general := NewGeneralBuilder()
	m := NewManager([]Builder{general}, WithDefault(general))

	res, err := m.Build(BuildRequest{
		User:    user,
		Servers: []Server{mustServer(t, TypeTrojan, "node", "t.example.com", 443, `{}`)},
		Client:  ResolveClient("", "v2rayN/6.0"),
		Info:    &info,
	})
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(string(res.Payload))
	require.NoError(t, err)
	first := strings.SplitN(string(decoded), "\r\n", 2)[0]
	idx := strings.LastIndex(first, "#")
	require.Positive(t, idx)
	assert.Equal(t, "剩余流量：1.00 GB", unescapeName(t, first[idx+1:]))
}

func unescapeName(t *testing.T, s string) string {
	t.Helper()
	out, err := url.QueryUnescape(s)
	require.NoError(t, err)
	return out
}
