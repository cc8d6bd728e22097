package identity

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

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider(srv.URL, "test-key")
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": code},
	})
}

func TestCreateAccount_Success(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@x.com", req["email"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"localId":      "remote-u1",
			"email":        "a@x.com",
			"idToken":      "",
			"refreshToken": "r",
		})
	})

	got, err := p.CreateAccount(context.Background(), "a@x.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "remote-u1", got.ID)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
	})

	_, err := p.CreateAccount(context.Background(), "a@x.com", "Secret1!")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindDuplicate, perr.Kind)
	assert.True(t, errors.Is(err, common.ErrDuplicateIdentity))
}

func TestSignIn_CredentialErrorIsNotNetwork(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "INVALID_LOGIN_CREDENTIALS")
	})

	_, err := p.SignIn(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindCredentials, perr.Kind)
	assert.True(t, errors.Is(err, common.ErrRemoteAuth))
	assert.False(t, errors.Is(err, common.ErrNetwork))
}

func TestSignIn_ServerErrorIsNetworkClass(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.SignIn(context.Background(), "a@x.com", "Secret1!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNetwork))
}

func TestSignIn_UnreachableHostIsNetworkClass(t *testing.T) {
	p := NewHTTPProvider("http://127.0.0.1:1", "test-key")

	_, err := p.SignIn(context.Background(), "a@x.com", "Secret1!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNetwork))
}

func TestSendPasswordReset(t *testing.T) {
	var gotType string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:sendOobCode", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotType, _ = req["requestType"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{"email": "a@x.com"})
	})

	require.NoError(t, p.SendPasswordReset(context.Background(), "a@x.com"))
	assert.Equal(t, "PASSWORD_RESET", gotType)
}

func TestAuthCall_MissingAccountID(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"email": "a@x.com"})
	})

	_, err := p.SignIn(context.Background(), "a@x.com", "Secret1!")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNetwork))
}
