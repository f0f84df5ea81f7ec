package http

import (
	"context"
	"unicode"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/liondandelion/opengost/internal/db"
)

const passwordCost = 12

func OTPValidate(ctx context.Context, username, otpCode string, store db.Store, sealer *Sealer) (bool, error) {
	sealed, err := store.UserOTPSecretGet(ctx, username)
	if err != nil {
		return false, err
	}

	otpSecret, err := sealer.Open(username, sealed)
	if err != nil {
		return false, err
	}

	return totp.Validate(otpCode, string(otpSecret)), nil
}

func HashPassword(password []byte) ([]byte, error) {
	/* encodedSaltSize = 22 bytes */
	return bcrypt.GenerateFromPassword(password, passwordCost)
}

func UsernameIsValid(username string) bool {
	if len(username) == 0 || len(username) > 64 {
		return false
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// PasswordIsValid bounds the length; bcrypt ignores bytes past 72.
func PasswordIsValid(password string) bool {
	return len(password) >= 8 && len(password) <= 72
}
