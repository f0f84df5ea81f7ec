package http

import (
	"crypto/cipher"
	"crypto/rand"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gosthp"
)

// Sealer encrypts OTP secrets at rest with Grasshopper-GCM. Each sealed
// value is nonce || ciphertext, and the owning username is the additional
// data, so a secret cannot be replayed for another account.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	block, err := gosthp.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "sealer")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "sealer")
	}
	return &Sealer{aead}, nil
}

func (s *Sealer) Seal(username string, secret []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(secret)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "sealer: nonce")
	}
	return s.aead.Seal(nonce, nonce, secret, []byte(username)), nil
}

func (s *Sealer) Open(username string, sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, errors.New("sealer: sealed value too short")
	}
	secret, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(username))
	return secret, errors.Wrap(err, "sealer")
}
