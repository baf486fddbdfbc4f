package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/api/requestctx"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

func TestRedactQuery(t *testing.T) {
	values := url.Values{"token": {"secret"}, "flag": {"clash"}}
	assert.Equal(t, "flag=clash&token=%2A%2A%2A", redactQuery(values))
	assert.Empty(t, redactQuery(url.Values{}))
}

func TestI18nLanguageSources(t *testing.T) {
	manager, err := i18n.NewManager()
	require.NoError(t, err)

	var got string
	h := I18n(manager)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestctx.GetLanguage(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/?lang=en-US", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "en-US", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-I18N-Lang", "zh-CN")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "zh-CN", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-GB,en;q=0.8")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "en-US", got)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:443"
	assert.Equal(t, "198.51.100.4", clientIP(req))
	req.RemoteAddr = "198.51.100.4"
	assert.Equal(t, "198.51.100.4", clientIP(req))
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	assert.Equal(t, 60, retryAfterSeconds(now.Add(time.Minute), now))
	assert.Equal(t, 2, retryAfterSeconds(now.Add(1500*time.Millisecond), now))
	assert.Equal(t, 1, retryAfterSeconds(now, now))
	assert.Equal(t, 1, retryAfterSeconds(now.Add(-time.Second), now))
}
