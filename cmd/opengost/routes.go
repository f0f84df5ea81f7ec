package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mhttp "github.com/liondandelion/opengost/internal/http"
	mmiddleware "github.com/liondandelion/opengost/internal/middleware"
)

func newRouter(d mhttp.Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mmiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(mmiddleware.SecureHeaders)

	r.Get("/api/algorithms", mhttp.Algorithms(d).ServeHTTP)
	r.Get("/api/key", mhttp.ServiceKeyInfo(d).ServeHTTP)
	r.Post("/api/digest/{alg}", mhttp.Digest(d).ServeHTTP)
	r.Post("/api/mac/{alg}", mhttp.MAC(d).ServeHTTP)
	r.Post("/api/verify/{alg}", mhttp.Verify(d).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.Manager().LoadAndSave)
		r.Use(mmiddleware.EnsureUserExists(d.Store, d.Sessions))

		r.Post("/register", mhttp.Register(d).ServeHTTP)
		r.Post("/login", mhttp.Login(d).ServeHTTP)
		r.Post("/login/otp", mhttp.LoginOTP(d).ServeHTTP)
		r.Post("/logout", mhttp.Logout(d).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mmiddleware.Auth(d.Sessions))

			r.Get("/user", mhttp.User(d).ServeHTTP)
			r.Post("/user/otp", mhttp.OTPEnable(d).ServeHTTP)
			r.Post("/user/otp/confirm", mhttp.OTPEnableConfirm(d).ServeHTTP)
			r.Post("/user/otp/disable", mhttp.OTPDisable(d).ServeHTTP)
			r.Post("/user/password", mhttp.PasswordChange(d).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(mmiddleware.Operator(d.Sessions))

				r.Post("/api/sign/{alg}", mhttp.Sign(d).ServeHTTP)
				r.Get("/api/signatures", mhttp.Signatures(d).ServeHTTP)
				r.Get("/api/users", mhttp.UsersTable(d).ServeHTTP)
			})
		})
	})

	return r
}
