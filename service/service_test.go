package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzHandle(t *testing.T) {
	h := &HealthzServer{started: time.Now()}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:7300", normalizeAddr(":7300"))
	assert.Equal(t, "127.0.0.1:7300", normalizeAddr("127.0.0.1:7300"))
	assert.Equal(t, "localhost", normalizeAddr("localhost"))
}
