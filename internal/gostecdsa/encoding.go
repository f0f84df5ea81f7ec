package gostecdsa

import (
	"math/big"

	"github.com/pkg/errors"
)

// Integers cross the API boundary little-endian, each padded to the field
// size, as GOST R 34.10 key containers store them.

func fromLE(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return new(big.Int).SetBytes(be)
}

// toLE encodes x into exactly n bytes. ok is false if x does not fit.
func toLE(x *big.Int, n int) ([]byte, bool) {
	if x.Sign() < 0 || (x.BitLen()+7)/8 > n {
		return nil, false
	}
	b := x.FillBytes(make([]byte, n))
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b, true
}

// RawParameters is the byte form of Parameters, every field little-endian in
// PointSize bytes.
type RawParameters struct {
	Prime    []byte `json:"prime"`
	A        []byte `json:"a"`
	B        []byte `json:"b"`
	Order    []byte `json:"order"`
	Cofactor []byte `json:"cofactor"`
	GX       []byte `json:"gx"`
	GY       []byte `json:"gy"`
	QX       []byte `json:"qx,omitempty"`
	QY       []byte `json:"qy,omitempty"`
	D        []byte `json:"d,omitempty"`
}

// MarshalParameters encodes p. D is written only when present.
func MarshalParameters(p Parameters) (RawParameters, error) {
	c := p.Curve
	if c == nil || c.P == nil {
		return RawParameters{}, ErrNilParameters
	}
	n := c.PointSize()
	var raw RawParameters
	ok := true
	enc := func(dst *[]byte, v *big.Int) {
		if v == nil || !ok {
			return
		}
		*dst, ok = toLE(v, n)
	}
	enc(&raw.Prime, c.P)
	enc(&raw.A, c.A)
	enc(&raw.B, c.B)
	enc(&raw.Order, c.Q)
	enc(&raw.Cofactor, c.Cofactor)
	enc(&raw.GX, c.X)
	enc(&raw.GY, c.Y)
	enc(&raw.QX, p.X)
	enc(&raw.QY, p.Y)
	enc(&raw.D, p.D)
	if !ok {
		return RawParameters{}, errors.New("gostecdsa: parameter exceeds field size")
	}
	return raw, nil
}

// UnmarshalParameters decodes raw. The result is not validated; pass it to
// Engine.ImportParameters for that.
func UnmarshalParameters(raw RawParameters) (Parameters, error) {
	if len(raw.Prime) == 0 || len(raw.Order) == 0 || len(raw.GX) == 0 || len(raw.GY) == 0 {
		return Parameters{}, ErrNilParameters
	}
	dec := func(b []byte) *big.Int {
		if len(b) == 0 {
			return nil
		}
		return fromLE(b)
	}
	c := &Curve{
		P:        fromLE(raw.Prime),
		A:        fromLE(raw.A),
		B:        fromLE(raw.B),
		Q:        fromLE(raw.Order),
		Cofactor: dec(raw.Cofactor),
		X:        fromLE(raw.GX),
		Y:        fromLE(raw.GY),
	}
	if (len(raw.QX) == 0) != (len(raw.QY) == 0) {
		return Parameters{}, errors.Wrap(ErrInvalidPublicKey, "half a public point")
	}
	return Parameters{Curve: c, X: dec(raw.QX), Y: dec(raw.QY), D: dec(raw.D)}, nil
}

// EncodePoint returns x||y, each coordinate little-endian in PointSize bytes.
func (c *Curve) EncodePoint(x, y *big.Int) ([]byte, error) {
	n := c.PointSize()
	bx, ok1 := toLE(x, n)
	by, ok2 := toLE(y, n)
	if !ok1 || !ok2 {
		return nil, ErrInvalidPublicKey
	}
	return append(bx, by...), nil
}

// DecodePoint splits x||y as written by EncodePoint and checks the result is
// on the curve.
func (c *Curve) DecodePoint(b []byte) (x, y *big.Int, err error) {
	n := c.PointSize()
	if len(b) != 2*n {
		return nil, nil, errors.Wrapf(ErrInvalidPublicKey, "point is %d bytes, want %d", len(b), 2*n)
	}
	x, y = fromLE(b[:n]), fromLE(b[n:])
	if !c.IsOnCurve(x, y) {
		return nil, nil, errors.Wrap(ErrInvalidPublicKey, "point not on curve")
	}
	return x, y, nil
}

// EncodeScalar writes d little-endian in PointSize bytes, the key file form.
func (c *Curve) EncodeScalar(d *big.Int) ([]byte, error) {
	b, ok := toLE(d, c.PointSize())
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return b, nil
}

// DecodeScalar reads a private scalar written by EncodeScalar. The range is
// checked by Engine.ImportParameters.
func (c *Curve) DecodeScalar(b []byte) (*big.Int, error) {
	if n := c.PointSize(); len(b) != n {
		return nil, errors.Wrapf(ErrInvalidPrivateKey, "scalar is %d bytes, want %d", len(b), n)
	}
	return fromLE(b), nil
}
