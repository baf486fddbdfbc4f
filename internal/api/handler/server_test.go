package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHeartbeat struct {
	id    int64
	token string
}

func (r *recordingHeartbeat) Beat(_ context.Context, id int64, token string) error {
	r.id, r.token = id, token
	return nil
}

func (r *recordingHeartbeat) Sync(context.Context) (int, error) { return 0, nil }

func TestServerHandlerHeartbeat(t *testing.T) {
	beats := &recordingHeartbeat{}
	h := NewServerHandler(beats, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=5", nil)
	req.Header.Set("Authorization", "Bearer node-secret")
	rec := httptest.NewRecorder()
	h.Heartbeat(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":true}`, rec.Body.String())
	assert.Equal(t, int64(5), beats.id)
	assert.Equal(t, "node-secret", beats.token)

	rec = httptest.NewRecorder()
	NewServerHandler(nil, nil, nil).Heartbeat(rec, httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=5", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
