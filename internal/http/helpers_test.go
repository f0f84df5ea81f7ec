package http

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/liondandelion/opengost/internal/db"
)

var testSealKey = bytes.Repeat([]byte{0x42}, 32)

func newTestSealer(t *testing.T) *Sealer {
	s, err := NewSealer(testSealKey)
	require.NoError(t, err)
	return s
}

func TestSealer(t *testing.T) {
	s := newTestSealer(t)
	secret := []byte("JBSWY3DPEHPK3PXP")

	a, err := s.Seal("alice", secret)
	require.NoError(t, err)
	b, err := s.Seal("alice", secret)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "every seal draws a fresh nonce")

	got, err := s.Open("alice", a)
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = s.Open("bob", a)
	assert.Error(t, err, "sealed secrets are bound to their user")

	a[len(a)-1] ^= 1
	_, err = s.Open("alice", a)
	assert.Error(t, err)
	_, err = s.Open("alice", a[:10])
	assert.Error(t, err)

	_, err = NewSealer(make([]byte, 16))
	assert.Error(t, err)
}

func TestOTPValidate(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	sealer := newTestSealer(t)
	require.NoError(t, store.UserInsert(ctx, "alice", []byte("x"), false))

	_, err := OTPValidate(ctx, "alice", "000000", store, sealer)
	assert.Error(t, err, "no secret enrolled")

	key, err := totp.Generate(totp.GenerateOpts{Issuer: otpIssuer, AccountName: "alice"})
	require.NoError(t, err)
	sealed, err := sealer.Seal("alice", []byte(key.Secret()))
	require.NoError(t, err)
	require.NoError(t, store.UserOTPSecretInsert(ctx, "alice", sealed))

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	valid, err := OTPValidate(ctx, "alice", code, store, sealer)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = OTPValidate(ctx, "alice", "not a code", store, sealer)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword([]byte("correct horse"))
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("correct horse")))
	assert.Error(t, bcrypt.CompareHashAndPassword(hash, []byte("battery staple")))
	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, passwordCost, cost)
}

func TestCredentialRules(t *testing.T) {
	for name, want := range map[string]bool{
		"alice":                  true,
		"bob_2":                  true,
		"оператор":               true,
		"":                       false,
		"has space":              false,
		"semi;colon":             false,
		strings.Repeat("a", 65): false,
	} {
		assert.Equal(t, want, UsernameIsValid(name), "%q", name)
	}

	assert.False(t, PasswordIsValid("short"))
	assert.True(t, PasswordIsValid("long enough"))
	assert.False(t, PasswordIsValid(string(bytes.Repeat([]byte{'a'}, 73))))
}
