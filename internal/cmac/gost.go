package cmac

import (
	"github.com/liondandelion/opengost/internal/gosthp"
	"github.com/liondandelion/opengost/internal/magma"
)

// NewWithCipher keys an Engine, choosing the polynomial from the cipher's block size.
func NewWithCipher(newCipher CipherFunc, key []byte) (*Engine, error) {
	if newCipher == nil {
		return nil, ErrNilCipher
	}
	if key == nil {
		return nil, ErrNilKey
	}
	block, err := newCipher(key)
	if err != nil {
		return nil, err
	}
	poly, err := Polynomial(block.BlockSize())
	if err != nil {
		return nil, err
	}
	return New(newCipher, key, poly)
}

// NewMagma returns CMAC-Magma keyed with a 32-byte key.
func NewMagma(key []byte) (*Engine, error) {
	return New(magma.NewCipher, key, poly64)
}

// NewGrasshopper returns CMAC-Grasshopper keyed with a 32-byte key.
func NewGrasshopper(key []byte) (*Engine, error) {
	return New(gosthp.NewCipher, key, poly128)
}
