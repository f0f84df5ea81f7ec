// Package cmac implements the CMAC message authentication code
// (GOST R 34.13-2015 5.6, NIST SP 800-38B) over any block cipher.
//
// The engine is block-size agnostic: the reduction polynomial supplied at
// construction selects the GF(2^n) used for subkey doubling, so the same code
// drives 64-bit Magma and 128-bit Grasshopper. An Engine is not safe for
// concurrent use.
package cmac

import (
	"crypto/cipher"

	"github.com/pkg/errors"
)

var (
	ErrNilKey               = errors.New("cmac: nil key")
	ErrNilCipher            = errors.New("cmac: nil cipher constructor")
	ErrPolynomialSize       = errors.New("cmac: polynomial length does not match block size")
	ErrUnsupportedBlockSize = errors.New("cmac: unsupported block size")
	ErrKeyChangeAfterStart  = errors.New("cmac: key changed after hashing has begun")
	ErrFinalized            = errors.New("cmac: transform after final block, call Initialize first")
	ErrOutOfRange           = errors.New("cmac: offset or length out of range")
	ErrClosed               = errors.New("cmac: engine closed")
)

// CipherFunc builds a block cipher bound to key.
type CipherFunc func(key []byte) (cipher.Block, error)

// Engine is a streaming CMAC computation bound to one cipher key.
type Engine struct {
	newCipher CipherFunc
	poly      []byte

	key    []byte
	block  cipher.Block
	n      int
	k1, k2 []byte

	// acc holds the chained value of every processed block.
	acc []byte
	// buf holds up to n pending bytes; the last block always waits here
	// until finalisation picks K1 or K2.
	buf []byte
	pos int

	started bool
	final   bool
}

// New returns an Engine keyed with key. polynomial must be as long as the
// cipher's block.
func New(newCipher CipherFunc, key, polynomial []byte) (*Engine, error) {
	if newCipher == nil {
		return nil, ErrNilCipher
	}
	e := &Engine{
		newCipher: newCipher,
		poly:      append([]byte(nil), polynomial...),
	}
	if err := e.rekey(key); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) rekey(key []byte) error {
	if key == nil {
		return ErrNilKey
	}
	block, err := e.newCipher(key)
	if err != nil {
		return errors.Wrap(err, "cmac: cipher")
	}
	n := block.BlockSize()
	if len(e.poly) != n {
		return ErrPolynomialSize
	}

	e.wipe()
	e.key = append([]byte(nil), key...)
	e.block = block
	e.n = n
	e.k1 = make([]byte, n)
	e.k2 = make([]byte, n)
	e.acc = make([]byte, n)
	e.buf = make([]byte, n)

	// L = E_K(0^n), K1 = L·x, K2 = K1·x.
	l := make([]byte, n)
	block.Encrypt(l, l)
	dbl(e.k1, l, e.poly)
	dbl(e.k2, e.k1, e.poly)
	clear(l)

	e.pos = 0
	e.started = false
	e.final = false
	return nil
}

// SetKey rebinds the engine to key and derives fresh subkeys. It fails once
// any data has been transformed since the last Initialize.
func (e *Engine) SetKey(key []byte) error {
	if e.block == nil {
		return ErrClosed
	}
	if e.started {
		return ErrKeyChangeAfterStart
	}
	return e.rekey(key)
}

// Key returns a copy of the current key.
func (e *Engine) Key() []byte {
	return append([]byte(nil), e.key...)
}

// Initialize clears the accumulator and pending data. Subkeys are kept.
func (e *Engine) Initialize() {
	clear(e.acc)
	clear(e.buf)
	e.pos = 0
	e.started = false
	e.final = false
}

// TransformBlock appends data[offset:offset+length] to the message.
func (e *Engine) TransformBlock(data []byte, offset, length int) error {
	p, err := e.slice(data, offset, length)
	if err != nil {
		return err
	}
	e.started = true
	e.absorb(p)
	return nil
}

// TransformFinalBlock appends the trailing bytes and returns the MAC.
// Another transform requires Initialize first.
func (e *Engine) TransformFinalBlock(data []byte, offset, length int) ([]byte, error) {
	if err := e.TransformBlock(data, offset, length); err != nil {
		return nil, err
	}
	mac := e.finish()
	e.final = true
	return mac, nil
}

func (e *Engine) slice(data []byte, offset, length int) ([]byte, error) {
	if e.block == nil {
		return nil, ErrClosed
	}
	if e.final {
		return nil, ErrFinalized
	}
	if offset < 0 || length < 0 || offset > len(data) || length > len(data)-offset {
		return nil, ErrOutOfRange
	}
	return data[offset : offset+length], nil
}

func (e *Engine) absorb(p []byte) {
	for len(p) > 0 {
		// A full buffer is only processed once more data proves it is not last.
		if e.pos == e.n {
			xorBytes(e.acc, e.buf)
			e.block.Encrypt(e.acc, e.acc)
			e.pos = 0
		}
		c := copy(e.buf[e.pos:], p)
		e.pos += c
		p = p[c:]
	}
}

// finish computes the tag without touching the streaming state.
func (e *Engine) finish() []byte {
	last := make([]byte, e.n)
	copy(last, e.buf[:e.pos])
	if e.pos == e.n {
		xorBytes(last, e.k1)
	} else {
		last[e.pos] = 0x80
		xorBytes(last, e.k2)
	}
	xorBytes(last, e.acc)
	e.block.Encrypt(last, last)
	return last
}

// Write implements hash.Hash.
func (e *Engine) Write(p []byte) (int, error) {
	if err := e.TransformBlock(p, 0, len(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Sum appends the MAC of the data written so far to in. Writing may continue.
// A closed engine returns in unchanged.
func (e *Engine) Sum(in []byte) []byte {
	if e.block == nil {
		return in
	}
	return append(in, e.finish()...)
}

// Reset is Initialize under the hash.Hash name.
func (e *Engine) Reset() { e.Initialize() }

// Size returns the MAC length, one cipher block.
func (e *Engine) Size() int { return e.n }

// BlockSize returns the cipher block size.
func (e *Engine) BlockSize() int { return e.n }

// Close scrubs key material. The engine is unusable afterwards.
func (e *Engine) Close() error {
	e.wipe()
	e.block = nil
	return nil
}

func (e *Engine) wipe() {
	clear(e.key)
	clear(e.k1)
	clear(e.k2)
	clear(e.acc)
	clear(e.buf)
}
