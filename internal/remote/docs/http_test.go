package docs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modicscan/syncengine/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *HTTPStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL, "test-token")
}

func TestUpsertProfile_SendsAuthorizedPut(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/owners/u1/profile", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var fields map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		assert.Equal(t, "a@x.com", fields["email"])
		w.WriteHeader(http.StatusOK)
	})

	err := s.UpsertProfile(context.Background(), "u1", map[string]any{"email": "a@x.com"})
	require.NoError(t, err)
}

func TestPatchRecordAssets(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/owners/u1/records/r1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"https://assets.example/a"}, body["asset_urls"])
		w.WriteHeader(http.StatusOK)
	})

	err := s.PatchRecordAssets(context.Background(), "u1", "r1", []string{"https://assets.example/a"})
	require.NoError(t, err)
}

func TestReownRecords_ReturnsCount(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records:reown", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "local-1", body["from"])
		assert.Equal(t, "remote-1", body["to"])

		_ = json.NewEncoder(w).Encode(map[string]any{"count": 4})
	})

	n, err := s.ReownRecords(context.Background(), "local-1", "remote-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCall_ServerErrorIsNetworkClass(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := s.UpsertRecord(context.Background(), "u1", "r1", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNetwork))
}

func TestCall_ClientErrorIsNotNetworkClass(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	err := s.UpsertRecord(context.Background(), "u1", "r1", map[string]any{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrNetwork))
}
