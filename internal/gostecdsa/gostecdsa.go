// Package gostecdsa implements GOST R 34.10-2012 elliptic-curve signatures
// with 256- and 512-bit keys.
//
// Hashes, scalars and signature halves are little-endian and padded to the
// curve's field size. A signature is s||r. An Engine holds at most one key
// pair and is not safe for concurrent use.
package gostecdsa

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/pkg/errors"
)

var (
	ErrMissingKey         = errors.New("gostecdsa: no key imported")
	ErrMissingPrivateKey  = errors.New("gostecdsa: no private key imported")
	ErrInvalidHashSize    = errors.New("gostecdsa: hash length does not match key size")
	ErrInvalidSignature   = errors.New("gostecdsa: signature length does not match key size")
	ErrCurveSize          = errors.New("gostecdsa: curve size does not match key size")
	ErrInvalidCurve       = errors.New("gostecdsa: invalid curve")
	ErrUnknownCurve       = errors.New("gostecdsa: unknown curve")
	ErrInvalidPublicKey   = errors.New("gostecdsa: invalid public key")
	ErrInvalidPrivateKey  = errors.New("gostecdsa: invalid private key")
	ErrNilParameters      = errors.New("gostecdsa: nil parameters")
	ErrNilHash            = errors.New("gostecdsa: nil hash")
	ErrNilSignature       = errors.New("gostecdsa: nil signature")
	ErrEntropy            = errors.New("gostecdsa: could not find a usable nonce")
	ErrUnsupportedKeySize = errors.New("gostecdsa: key size must be 256 or 512")
)

// maxSignAttempts bounds the nonce loop. With a sound random source r or s
// is zero with probability about 2/q per attempt.
const maxSignAttempts = 64

// Size is a key size in bits.
type Size int

const (
	Size256 Size = 256
	Size512 Size = 512
)

// Bytes is the field size, hash length and signature half length for s.
func (s Size) Bytes() int { return int(s) / 8 }

func (s Size) valid() bool { return s == Size256 || s == Size512 }

// Parameters is a curve plus a key. D is nil for public-only keys.
type Parameters struct {
	Curve *Curve
	X, Y  *big.Int
	D     *big.Int
}

// Engine signs and verifies hashes with one key pair.
type Engine struct {
	size  Size
	rand  io.Reader
	curve *Curve
	x, y  *big.Int
	d     *big.Int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces crypto/rand.Reader as the nonce and key source.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// New returns an empty Engine for size-bit keys.
func New(size Size, opts ...Option) (*Engine, error) {
	if !size.valid() {
		return nil, ErrUnsupportedKeySize
	}
	e := &Engine{size: size, rand: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// KeySize returns the key size in bits.
func (e *Engine) KeySize() int { return int(e.size) }

// Curve returns the bound curve, or nil.
func (e *Engine) Curve() *Curve { return e.curve }

// HasPrivateKey reports whether the engine can sign.
func (e *Engine) HasPrivateKey() bool { return e.d != nil }

func (e *Engine) checkCurve(c *Curve) error {
	if c == nil {
		return ErrNilParameters
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PointSize() != e.size.Bytes() {
		return errors.Wrapf(ErrCurveSize, "%s is %d bits", c.Name, c.PointSize()*8)
	}
	return nil
}

// ImportParameters validates p and binds its key, replacing any previous
// one. With D present the public point is derived, and must equal X, Y if
// those are given too. A public-only import must be a point of order Q.
func (e *Engine) ImportParameters(p Parameters) error {
	if err := e.checkCurve(p.Curve); err != nil {
		return err
	}
	c := p.Curve
	f := c.field()
	if (p.X == nil) != (p.Y == nil) {
		return errors.Wrap(ErrInvalidPublicKey, "half a public point")
	}

	var x, y, d *big.Int
	switch {
	case p.D != nil:
		if p.D.Sign() <= 0 || p.D.Cmp(c.Q) >= 0 {
			return ErrInvalidPrivateKey
		}
		d = new(big.Int).Set(p.D)
		var ok bool
		x, y, ok = f.affine(f.scalarMult(fromAffine(c.X, c.Y), d, c.Q.BitLen()))
		if !ok {
			return ErrInvalidPrivateKey
		}
		if p.X != nil && (p.X.Cmp(x) != 0 || p.Y.Cmp(y) != 0) {
			return errors.Wrap(ErrInvalidPublicKey, "public point does not match private key")
		}
	case p.X != nil:
		if !c.inSubgroup(p.X, p.Y) {
			return ErrInvalidPublicKey
		}
		x, y = new(big.Int).Set(p.X), new(big.Int).Set(p.Y)
	default:
		return ErrMissingKey
	}

	e.scrub()
	e.curve, e.x, e.y, e.d = c, x, y, d
	return nil
}

// ExportParameters returns copies of the bound key. includePrivate demands
// the private scalar.
func (e *Engine) ExportParameters(includePrivate bool) (Parameters, error) {
	if e.curve == nil {
		return Parameters{}, ErrMissingKey
	}
	p := Parameters{
		Curve: e.curve,
		X:     new(big.Int).Set(e.x),
		Y:     new(big.Int).Set(e.y),
	}
	if includePrivate {
		if e.d == nil {
			return Parameters{}, ErrMissingPrivateKey
		}
		p.D = new(big.Int).Set(e.d)
	}
	return p, nil
}

// GenerateKey binds a fresh key pair on c.
func (e *Engine) GenerateKey(c *Curve) error {
	if err := e.checkCurve(c); err != nil {
		return err
	}
	d, err := randScalar(e.rand, c.Q)
	if err != nil {
		return err
	}
	f := c.field()
	x, y, _ := f.affine(f.scalarMult(fromAffine(c.X, c.Y), d, c.Q.BitLen()))
	e.scrub()
	e.curve, e.x, e.y, e.d = c, x, y, d
	return nil
}

// randScalar draws a uniform-enough value in [1, q-1]: 64 surplus bits are
// reduced mod q-1, so the bias is below 2^-64.
func randScalar(r io.Reader, q *big.Int) (*big.Int, error) {
	buf := make([]byte, (q.BitLen()+7)/8+8)
	defer clear(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "gostecdsa: reading randomness")
	}
	qm1 := new(big.Int).Sub(q, big.NewInt(1))
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, qm1)
	return k.Add(k, big.NewInt(1)), nil
}

// digest maps a hash to e = h mod q, with 0 replaced by 1.
func digest(hash []byte, q *big.Int) *big.Int {
	e := fromLE(hash)
	e.Mod(e, q)
	if e.Sign() == 0 {
		e.SetInt64(1)
	}
	return e
}

// SignHash signs a pre-computed hash of KeySize bits and returns s||r.
func (e *Engine) SignHash(hash []byte) ([]byte, error) {
	if hash == nil {
		return nil, ErrNilHash
	}
	if e.d == nil {
		return nil, ErrMissingPrivateKey
	}
	n := e.size.Bytes()
	if len(hash) != n {
		return nil, ErrInvalidHashSize
	}
	c := e.curve
	f := c.field()
	q := c.Q
	h := digest(hash, q)
	g := fromAffine(c.X, c.Y)

	for attempt := 0; attempt < maxSignAttempts; attempt++ {
		k, err := randScalar(e.rand, q)
		if err != nil {
			return nil, err
		}
		cx, _, ok := f.affine(f.scalarMult(g, k, q.BitLen()))
		if !ok {
			continue
		}
		r := cx.Mod(cx, q)
		if r.Sign() == 0 {
			continue
		}
		// s = r·d + k·e (mod q)
		s := new(big.Int).Mul(r, e.d)
		s.Add(s, k.Mul(k, h))
		s.Mod(s, q)
		clear(k.Bits())
		if s.Sign() == 0 {
			continue
		}
		sb, _ := toLE(s, n)
		rb, _ := toLE(r, n)
		return append(sb, rb...), nil
	}
	return nil, ErrEntropy
}

// VerifyHash reports whether signature is a valid s||r over hash for the
// bound public key. It errors only on malformed input.
func (e *Engine) VerifyHash(hash, signature []byte) (bool, error) {
	if hash == nil {
		return false, ErrNilHash
	}
	if signature == nil {
		return false, ErrNilSignature
	}
	if e.curve == nil {
		return false, ErrMissingKey
	}
	n := e.size.Bytes()
	if len(hash) != n {
		return false, ErrInvalidHashSize
	}
	if len(signature) != 2*n {
		return false, ErrInvalidSignature
	}

	c := e.curve
	q := c.Q
	s, r := fromLE(signature[:n]), fromLE(signature[n:])
	if s.Sign() <= 0 || s.Cmp(q) >= 0 || r.Sign() <= 0 || r.Cmp(q) >= 0 {
		return false, nil
	}

	v := new(big.Int).ModInverse(digest(hash, q), q)
	z1 := new(big.Int).Mul(s, v)
	z1.Mod(z1, q)
	z2 := new(big.Int).Sub(q, r)
	z2.Mul(z2, v)
	z2.Mod(z2, q)

	f := c.field()
	bits := q.BitLen()
	pt := f.add(
		f.scalarMult(fromAffine(c.X, c.Y), z1, bits),
		f.scalarMult(fromAffine(e.x, e.y), z2, bits),
	)
	cx, _, ok := f.affine(pt)
	if !ok {
		return false, nil
	}
	return cx.Mod(cx, q).Cmp(r) == 0, nil
}

// Close scrubs the private scalar and unbinds the key.
func (e *Engine) Close() error {
	e.scrub()
	e.curve, e.x, e.y = nil, nil, nil
	return nil
}

func (e *Engine) scrub() {
	if e.d != nil {
		clear(e.d.Bits())
		e.d = nil
	}
}
