package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondandelion/opengost/internal/db"
	"github.com/liondandelion/opengost/internal/utils"
)

type fixture struct {
	store    *db.Memory
	sessions db.Sessions
	router   chi.Router
	cookies  []*http.Cookie
}

// newFixture mounts /login/{user} to put a user in the session, and /ok
// behind the middleware guards returns, built from the fixture's own state.
func newFixture(guards func(f *fixture) []func(http.Handler) http.Handler) *fixture {
	m := scs.New()
	m.Store = memstore.New()
	f := &fixture{store: db.NewMemory(), sessions: db.NewSessions(m)}

	r := chi.NewRouter()
	r.Use(m.LoadAndSave)
	r.Get("/login/{user}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "user")
		f.sessions.UserDataSet(r.Context(), db.UserData{Username: name, IsAuthenticated: true})
	})
	r.Group(func(r chi.Router) {
		r.Use(guards(f)...)
		r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
			if f.sessions.UserDataGet(r.Context()).IsOperator {
				w.Header().Set("X-Operator", "yes")
			}
			w.WriteHeader(http.StatusTeapot)
		})
	})
	f.router = r
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if cs := rec.Result().Cookies(); len(cs) > 0 {
		f.cookies = cs
	}
	return rec
}

func TestAuth(t *testing.T) {
	f := newFixture(func(f *fixture) []func(http.Handler) http.Handler {
		return []func(http.Handler) http.Handler{Auth(f.sessions)}
	})

	rec := f.get(t, "/ok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "login required")

	f.get(t, "/login/alice")
	assert.Equal(t, http.StatusTeapot, f.get(t, "/ok").Code)
}

func TestOperator(t *testing.T) {
	f := newFixture(func(f *fixture) []func(http.Handler) http.Handler {
		return []func(http.Handler) http.Handler{
			EnsureUserExists(f.store, f.sessions),
			Auth(f.sessions),
			Operator(f.sessions),
		}
	})
	ctx := context.Background()
	require.NoError(t, f.store.UserInsert(ctx, "alice", []byte("x"), false))
	require.NoError(t, f.store.UserInsert(ctx, "root", []byte("x"), true))

	f.get(t, "/login/alice")
	rec := f.get(t, "/ok")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "access denied")

	// The operator flag comes from the store, not from the login.
	f.get(t, "/login/root")
	rec = f.get(t, "/ok")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Operator"))
}

func TestEnsureUserExists(t *testing.T) {
	f := newFixture(func(f *fixture) []func(http.Handler) http.Handler {
		return []func(http.Handler) http.Handler{EnsureUserExists(f.store, f.sessions)}
	})
	ctx := context.Background()

	// Anonymous sessions pass through.
	assert.Equal(t, http.StatusTeapot, f.get(t, "/ok").Code)

	require.NoError(t, f.store.UserInsert(ctx, "bob", []byte("x"), false))
	require.NoError(t, f.store.UserOTPSecretInsert(ctx, "bob", []byte("sealed")))
	f.get(t, "/login/bob")
	assert.Equal(t, http.StatusTeapot, f.get(t, "/ok").Code)

	// A session whose user vanished is ended.
	f.get(t, "/login/ghost")
	rec := f.get(t, "/ok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer exists")
	assert.Equal(t, http.StatusTeapot, f.get(t, "/ok").Code, "the next request is anonymous")
}

func TestSecureHeaders(t *testing.T) {
	h := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, utils.SetLogFormat("json"))
	utils.SetLogOutput(&buf)
	t.Cleanup(func() {
		utils.SetLogOutput(os.Stderr)
		_ = utils.SetLogFormat("console")
	})

	h := middleware.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(context.Background(), http.MethodPost, "/api/x", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"status":201`)
	assert.Contains(t, out, `"bytes":5`)
	assert.Contains(t, out, `"path":"/api/x"`)
	assert.Contains(t, out, `"request_id":`)
}
