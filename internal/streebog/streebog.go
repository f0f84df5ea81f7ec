// Package streebog provides the GOST R 34.11-2012 hash functions
// (Streebog-256 and Streebog-512) and HMAC over them.
package streebog

import (
	"crypto/hmac"
	"hash"

	"github.com/ddulesov/gogost/gost34112012256"
	"github.com/ddulesov/gogost/gost34112012512"
)

const (
	// Size256 is the Streebog-256 digest size in bytes.
	Size256 = 32
	// Size512 is the Streebog-512 digest size in bytes.
	Size512 = 64
	// BlockSize is the Streebog compression block size in bytes.
	BlockSize = 64
)

// New256 returns a new Streebog-256 hash.
func New256() hash.Hash { return gost34112012256.New() }

// New512 returns a new Streebog-512 hash.
func New512() hash.Hash { return gost34112012512.New() }

// Sum256 returns the Streebog-256 digest of data.
func Sum256(data []byte) []byte {
	h := New256()
	h.Write(data)
	return h.Sum(nil)
}

// Sum512 returns the Streebog-512 digest of data.
func Sum512(data []byte) []byte {
	h := New512()
	h.Write(data)
	return h.Sum(nil)
}

// NewHMAC256 returns HMAC-Streebog-256 keyed with key.
func NewHMAC256(key []byte) hash.Hash { return hmac.New(New256, key) }

// NewHMAC512 returns HMAC-Streebog-512 keyed with key.
func NewHMAC512(key []byte) hash.Hash { return hmac.New(New512, key) }

// New returns the Streebog variant producing size-byte digests, or nil.
func New(size int) func() hash.Hash {
	switch size {
	case Size256:
		return New256
	case Size512:
		return New512
	}
	return nil
}
