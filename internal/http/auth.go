package http

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/http"

	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/liondandelion/opengost/internal/db"
	"github.com/liondandelion/opengost/internal/utils"
)

const otpIssuer = "OpenGost"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type otpCode struct {
	Code string `json:"code"`
}

type loginResponse struct {
	OTPRequired bool        `json:"otp_required"`
	User        db.UserData `json:"user"`
}

type otpEnrolment struct {
	Issuer      string `json:"issuer"`
	Account     string `json:"account"`
	Secret      string `json:"secret"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageHeight int    `json:"image_height,omitempty"`
}

type userView struct {
	Username   string `json:"username"`
	IsOperator bool   `json:"is_operator"`
}

func Register(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		var req credentials
		if err := readJSON(w, r, "Register", &req); err != nil {
			return err
		}
		if !UsernameIsValid(req.Username) {
			return &APIError{"Register", "username must be letters, digits or underscores", nil, http.StatusBadRequest}
		}
		if !PasswordIsValid(req.Password) {
			return &APIError{"Register", "password must be 8 to 72 bytes", nil, http.StatusBadRequest}
		}

		exists, err := d.Store.UserExists(r.Context(), req.Username)
		if err != nil {
			return &APIError{"Register", "failed to query db", err, http.StatusInternalServerError}
		}
		if exists {
			return &APIError{"Register", "this user already exists", nil, http.StatusConflict}
		}

		hash, err := HashPassword([]byte(req.Password))
		if err != nil {
			return &APIError{"Register", "failed to hash password", err, http.StatusInternalServerError}
		}
		isOperator := d.Config.IsOperator(req.Username)

		err = d.Store.UserInsert(r.Context(), req.Username, hash, isOperator)
		if errors.Is(err, db.ErrDuplicate) {
			return &APIError{"Register", "this user already exists", err, http.StatusConflict}
		}
		if err != nil {
			return &APIError{"Register", "failed to insert user", err, http.StatusInternalServerError}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"Register", "failed to renew session", err, http.StatusInternalServerError}
		}
		data := db.UserData{Username: req.Username, IsAuthenticated: true, IsOperator: isOperator}
		d.Sessions.UserDataSet(r.Context(), data)

		utils.Logger().Info().Str("username", req.Username).Bool("operator", isOperator).Msg("user registered")
		WriteJSON(w, http.StatusCreated, data)
		return nil
	})
}

func Login(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		var req credentials
		if err := readJSON(w, r, "Login", &req); err != nil {
			return err
		}

		passwordHash, err := d.Store.UserPasswordHashGet(r.Context(), req.Username)
		if errors.Is(err, db.ErrNotFound) {
			return &APIError{"Login", "invalid username or password", nil, http.StatusUnauthorized}
		}
		if err != nil {
			return &APIError{"Login", "failed to query db", err, http.StatusInternalServerError}
		}
		if err := bcrypt.CompareHashAndPassword(passwordHash, []byte(req.Password)); err != nil {
			return &APIError{"Login", "invalid username or password", nil, http.StatusUnauthorized}
		}

		isOperator, err := d.Store.UserIsOperator(r.Context(), req.Username)
		if err != nil {
			return &APIError{"Login", "failed to query db", err, http.StatusInternalServerError}
		}
		isOTPEnabled, err := d.Store.UserIsOTPEnabled(r.Context(), req.Username)
		if err != nil {
			return &APIError{"Login", "failed to query db", err, http.StatusInternalServerError}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"Login", "failed to renew session", err, http.StatusInternalServerError}
		}
		data := db.UserData{
			Username:        req.Username,
			IsAuthenticated: !isOTPEnabled,
			IsOperator:      isOperator,
			IsOTPEnabled:    isOTPEnabled,
		}
		d.Sessions.UserDataSet(r.Context(), data)

		WriteJSON(w, http.StatusOK, loginResponse{OTPRequired: isOTPEnabled, User: data})
		return nil
	})
}

func LoginOTP(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		var req otpCode
		if err := readJSON(w, r, "LoginOTP", &req); err != nil {
			return err
		}
		data := d.Sessions.UserDataGet(r.Context())
		if data.Username == "" || data.IsAuthenticated {
			return &APIError{"LoginOTP", "no login is waiting for a code", nil, http.StatusBadRequest}
		}

		valid, err := OTPValidate(r.Context(), data.Username, req.Code, d.Store, d.Sealer)
		if err != nil {
			return &APIError{"LoginOTP", "failed to validate otp", err, http.StatusInternalServerError}
		}
		if !valid {
			return &APIError{"LoginOTP", "the code is invalid", nil, http.StatusUnauthorized}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"LoginOTP", "failed to renew session", err, http.StatusInternalServerError}
		}
		data.IsAuthenticated = true
		d.Sessions.UserDataSet(r.Context(), data)

		WriteJSON(w, http.StatusOK, loginResponse{User: data})
		return nil
	})
}

func Logout(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"Logout", "failed to renew session", err, http.StatusInternalServerError}
		}
		if err := d.Sessions.UserDataDestroy(r.Context()); err != nil {
			return &APIError{"Logout", "failed to destroy session", err, http.StatusInternalServerError}
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}

func User(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		WriteJSON(w, http.StatusOK, d.Sessions.UserDataGet(r.Context()))
		return nil
	})
}

func UsersTable(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		users, err := d.Store.UserTableGet(r.Context())
		if err != nil {
			return &APIError{"UsersTable", "failed to collect rows", err, http.StatusInternalServerError}
		}
		views := make([]userView, len(users))
		for i, u := range users {
			views[i] = userView{u.Username, u.IsOperator}
		}
		WriteJSON(w, http.StatusOK, views)
		return nil
	})
}

func OTPEnable(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		data := d.Sessions.UserDataGet(r.Context())
		if data.IsOTPEnabled {
			return &APIError{"OTPEnable", "otp is already enabled", nil, http.StatusConflict}
		}

		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      otpIssuer,
			AccountName: data.Username,
		})
		if err != nil {
			return &APIError{"OTPEnable", "failed to generate key", err, http.StatusInternalServerError}
		}

		enrolment := otpEnrolment{
			Issuer:  key.Issuer(),
			Account: key.AccountName(),
			Secret:  key.Secret(),
			URL:     key.URL(),
		}

		var buf bytes.Buffer
		imageWidth, imageHeight := 200, 200
		img, err := key.Image(imageWidth, imageHeight)
		if err == nil {
			err = png.Encode(&buf, img)
		}
		if err != nil {
			utils.Logger().Warn().Err(err).Str("username", data.Username).Msg("OTPEnable: failed to generate image")
		} else {
			enrolment.Image = base64.StdEncoding.EncodeToString(buf.Bytes())
			enrolment.ImageWidth, enrolment.ImageHeight = imageWidth, imageHeight
		}

		sealed, err := d.Sealer.Seal(data.Username, []byte(key.Secret()))
		if err != nil {
			return &APIError{"OTPEnable", "failed to seal secret", err, http.StatusInternalServerError}
		}
		d.Sessions.OTPSecretPut(r.Context(), sealed)

		WriteJSON(w, http.StatusOK, enrolment)
		return nil
	})
}

func OTPEnableConfirm(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		var req otpCode
		if err := readJSON(w, r, "OTPEnableConfirm", &req); err != nil {
			return err
		}
		data := d.Sessions.UserDataGet(r.Context())

		sealed := d.Sessions.OTPSecretGet(r.Context())
		if len(sealed) == 0 {
			return &APIError{"OTPEnableConfirm", "no otp enrolment in progress", nil, http.StatusConflict}
		}
		otpSecret, err := d.Sealer.Open(data.Username, sealed)
		if err != nil {
			return &APIError{"OTPEnableConfirm", "failed to decrypt", err, http.StatusInternalServerError}
		}

		if !totp.Validate(req.Code, string(otpSecret)) {
			return &APIError{"OTPEnableConfirm", "the code is invalid, try enrolling again in your app", nil, http.StatusBadRequest}
		}

		err = d.Store.UserOTPSecretInsert(r.Context(), data.Username, sealed)
		if errors.Is(err, db.ErrDuplicate) {
			return &APIError{"OTPEnableConfirm", "otp is already enabled", err, http.StatusConflict}
		}
		if err != nil {
			return &APIError{"OTPEnableConfirm", "failed to insert otp", err, http.StatusInternalServerError}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"OTPEnableConfirm", "failed to renew session", err, http.StatusInternalServerError}
		}
		d.Sessions.OTPSecretRemove(r.Context())
		data.IsOTPEnabled = true
		d.Sessions.UserDataSet(r.Context(), data)

		WriteJSON(w, http.StatusOK, data)
		return nil
	})
}

func OTPDisable(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		data := d.Sessions.UserDataGet(r.Context())

		if err := d.Store.UserOTPSecretDelete(r.Context(), data.Username); err != nil {
			return &APIError{"OTPDisable", "failed to delete row", err, http.StatusInternalServerError}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"OTPDisable", "failed to renew session", err, http.StatusInternalServerError}
		}
		data.IsOTPEnabled = false
		d.Sessions.UserDataSet(r.Context(), data)

		WriteJSON(w, http.StatusOK, data)
		return nil
	})
}

type passwordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func PasswordChange(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		var req passwordChange
		if err := readJSON(w, r, "PasswordChange", &req); err != nil {
			return err
		}
		data := d.Sessions.UserDataGet(r.Context())

		oldHash, err := d.Store.UserPasswordHashGet(r.Context(), data.Username)
		if err != nil {
			return &APIError{"PasswordChange", "failed to get old hash", err, http.StatusInternalServerError}
		}
		if err := bcrypt.CompareHashAndPassword(oldHash, []byte(req.OldPassword)); err != nil {
			return &APIError{"PasswordChange", "old password is wrong", nil, http.StatusForbidden}
		}
		if !PasswordIsValid(req.NewPassword) {
			return &APIError{"PasswordChange", "password must be 8 to 72 bytes", nil, http.StatusBadRequest}
		}

		newHash, err := HashPassword([]byte(req.NewPassword))
		if err != nil {
			return &APIError{"PasswordChange", "failed to hash password", err, http.StatusInternalServerError}
		}
		if err := d.Store.UserPasswordHashSet(r.Context(), data.Username, newHash); err != nil {
			return &APIError{"PasswordChange", "failed to update", err, http.StatusInternalServerError}
		}

		if err := d.Sessions.UserTokenRenew(r.Context()); err != nil {
			return &APIError{"PasswordChange", "failed to renew session", err, http.StatusInternalServerError}
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
