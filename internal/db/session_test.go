package db

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions() Sessions {
	m := scs.New()
	m.Store = memstore.New()
	return NewSessions(m)
}

// serve runs fn inside a loaded session and returns the response cookies.
func serve(t *testing.T, s Sessions, cookies []*http.Cookie, fn func(r *http.Request)) []*http.Cookie {
	t.Helper()
	h := s.Manager().LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Result().Cookies()
}

func TestUserDataPersists(t *testing.T) {
	s := newTestSessions()

	cookies := serve(t, s, nil, func(r *http.Request) {
		ctx := r.Context()
		assert.Equal(t, UserData{}, s.UserDataGet(ctx), "missing data reads as zero value")
		s.UserDataCreateIfDoesNotExist(ctx)
		s.UserDataSet(ctx, UserData{Username: "alice", IsAuthenticated: true, IsOperator: true})
	})
	require.NotEmpty(t, cookies)

	serve(t, s, cookies, func(r *http.Request) {
		ctx := r.Context()
		s.UserDataCreateIfDoesNotExist(ctx)
		data := s.UserDataGet(ctx)
		assert.Equal(t, "alice", data.Username)
		assert.True(t, data.IsAuthenticated)
		assert.True(t, data.IsOperator)
		assert.False(t, data.IsOTPEnabled)
	})
}

func TestOTPSecretLifecycle(t *testing.T) {
	s := newTestSessions()

	cookies := serve(t, s, nil, func(r *http.Request) {
		s.OTPSecretPut(r.Context(), []byte{1, 2, 3})
	})
	cookies = serve(t, s, cookies, func(r *http.Request) {
		assert.Equal(t, []byte{1, 2, 3}, s.OTPSecretGet(r.Context()))
		s.OTPSecretRemove(r.Context())
	})
	serve(t, s, cookies, func(r *http.Request) {
		assert.Empty(t, s.OTPSecretGet(r.Context()))
	})
}

func TestDestroyForgetsUser(t *testing.T) {
	s := newTestSessions()

	cookies := serve(t, s, nil, func(r *http.Request) {
		s.UserDataSet(r.Context(), UserData{Username: "bob", IsAuthenticated: true})
	})
	cookies = serve(t, s, cookies, func(r *http.Request) {
		require.NoError(t, s.UserTokenRenew(r.Context()))
		require.NoError(t, s.UserDataDestroy(r.Context()))
	})
	serve(t, s, cookies, func(r *http.Request) {
		assert.Equal(t, UserData{}, s.UserDataGet(r.Context()))
	})
}
