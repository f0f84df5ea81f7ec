// Package magma provides the 64-bit block cipher of GOST R 34.12-2015
// ("Magma") as a cipher.Block, backed by gogost's gost341264.
package magma

import (
	"crypto/cipher"
	"strconv"

	"github.com/ddulesov/gogost/gost341264"
)

const (
	// BlockSize is the Magma block size in bytes.
	BlockSize = gost341264.BlockSize
	// KeySize is the Magma key size in bytes.
	KeySize = gost341264.KeySize
)

// KeySizeError is returned for keys that are not 32 bytes long.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "magma: invalid key size " + strconv.Itoa(int(k))
}

// NewCipher returns a Magma cipher.Block for a 256-bit key.
func NewCipher(key []byte) (cipher.Block, error) {
	// gost341264 panics on other lengths.
	if len(key) != KeySize {
		return nil, KeySizeError(len(key))
	}
	return gost341264.NewCipher(key), nil
}
