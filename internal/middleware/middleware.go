package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/liondandelion/opengost/internal/db"
	mhttp "github.com/liondandelion/opengost/internal/http"
	"github.com/liondandelion/opengost/internal/utils"
)

func Auth(sessions db.Sessions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mhttp.APIHandler(func(w http.ResponseWriter, r *http.Request) *mhttp.APIError {
			data := sessions.UserDataGet(r.Context())

			w.Header().Add("Cache-Control", "no-store")

			if !data.IsAuthenticated {
				return &mhttp.APIError{Where: "Auth", What: "login required", Err: nil, Status: http.StatusUnauthorized}
			}

			next.ServeHTTP(w, r)
			return nil
		})
	}
}

// Operator admits only users allowed to sign with the service key.
func Operator(sessions db.Sessions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mhttp.APIHandler(func(w http.ResponseWriter, r *http.Request) *mhttp.APIError {
			data := sessions.UserDataGet(r.Context())

			if !data.IsOperator {
				return &mhttp.APIError{Where: "Operator", What: "access denied", Err: nil, Status: http.StatusForbidden}
			}

			w.Header().Add("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
			return nil
		})
	}
}

// EnsureUserExists refreshes the session's view of its user from the store
// and ends sessions whose user is gone.
func EnsureUserExists(store db.Store, sessions db.Sessions) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mhttp.APIHandler(func(w http.ResponseWriter, r *http.Request) *mhttp.APIError {
			sessions.UserDataCreateIfDoesNotExist(r.Context())
			data := sessions.UserDataGet(r.Context())

			if data.Username == "" {
				next.ServeHTTP(w, r)
				return nil
			}

			exists, err := store.UserExists(r.Context(), data.Username)
			if err != nil {
				return &mhttp.APIError{Where: "EnsureUserExists", What: "failed to query db", Err: err, Status: http.StatusInternalServerError}
			}

			if !exists {
				if err := sessions.UserDataDestroy(r.Context()); err != nil {
					return &mhttp.APIError{Where: "EnsureUserExists", What: "failed to destroy session", Err: err, Status: http.StatusInternalServerError}
				}
				return &mhttp.APIError{Where: "EnsureUserExists", What: "session user no longer exists", Err: nil, Status: http.StatusUnauthorized}
			}

			data.IsOperator, err = store.UserIsOperator(r.Context(), data.Username)
			if err != nil {
				return &mhttp.APIError{Where: "EnsureUserExists", What: "failed to query db", Err: err, Status: http.StatusInternalServerError}
			}

			data.IsOTPEnabled, err = store.UserIsOTPEnabled(r.Context(), data.Username)
			if err != nil {
				return &mhttp.APIError{Where: "EnsureUserExists", What: "failed to query db", Err: err, Status: http.StatusInternalServerError}
			}

			sessions.UserDataSet(r.Context(), data)

			next.ServeHTTP(w, r)
			return nil
		})
	}
}

func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Add("X-Frame-Options", "DENY")
		w.Header().Add("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		w.Header().Add("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// Logger logs one line per request through the process logger.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			utils.Logger().Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
