package db

import (
	"context"
	"encoding/gob"

	"github.com/alexedwards/scs/v2"
)

const (
	userDataKey  = "UserData"
	otpSecretKey = "otpSecret"
)

// UserData is what a session remembers about its user.
type UserData struct {
	Username        string `json:"username"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsOperator      bool   `json:"is_operator"`
	IsOTPEnabled    bool   `json:"is_otp_enabled"`
}

// Sessions keeps per-request user state in an scs session.
type Sessions struct {
	manager *scs.SessionManager
}

func NewSessions(manager *scs.SessionManager) Sessions {
	gob.Register(UserData{})
	return Sessions{manager}
}

func (s Sessions) Manager() *scs.SessionManager { return s.manager }

func (s Sessions) UserDataCreateIfDoesNotExist(ctx context.Context) {
	if !s.manager.Exists(ctx, userDataKey) {
		s.manager.Put(ctx, userDataKey, UserData{})
	}
}

func (s Sessions) UserDataGet(ctx context.Context) UserData {
	data, _ := s.manager.Get(ctx, userDataKey).(UserData)
	return data
}

func (s Sessions) UserDataSet(ctx context.Context, data UserData) {
	s.manager.Put(ctx, userDataKey, data)
}

func (s Sessions) UserDataDestroy(ctx context.Context) error {
	return s.manager.Destroy(ctx)
}

func (s Sessions) UserTokenRenew(ctx context.Context) error {
	return s.manager.RenewToken(ctx)
}

// OTPSecretPut parks a sealed, not yet confirmed OTP secret in the session.
func (s Sessions) OTPSecretPut(ctx context.Context, sealed []byte) {
	s.manager.Put(ctx, otpSecretKey, sealed)
}

func (s Sessions) OTPSecretGet(ctx context.Context) []byte {
	return s.manager.GetBytes(ctx, otpSecretKey)
}

func (s Sessions) OTPSecretRemove(ctx context.Context) {
	s.manager.Remove(ctx, otpSecretKey)
}
