package gostecdsa

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// Curve holds short Weierstrass domain parameters y² = x³ + ax + b over GF(P)
// with a base point (X, Y) of prime order Q. Curves are shared read-only.
type Curve struct {
	Name     string
	P        *big.Int
	A, B     *big.Int
	Q        *big.Int
	Cofactor *big.Int
	X, Y     *big.Int
}

func (c *Curve) String() string { return c.Name }

// PointSize is the byte length of one coordinate, and of each signature half.
func (c *Curve) PointSize() int { return (c.P.BitLen() + 7) / 8 }

func (c *Curve) field() field { return field{p: c.P, a: c.A} }

// IsOnCurve reports whether (x, y) is an affine point of c.
func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	if x == nil || y == nil {
		return false
	}
	if x.Sign() < 0 || x.Cmp(c.P) >= 0 || y.Sign() < 0 || y.Cmp(c.P) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, c.P)

	rhs := new(big.Int).Mul(x, x)
	rhs.Add(rhs, c.A)
	rhs.Mul(rhs, x)
	rhs.Add(rhs, c.B)
	rhs.Mod(rhs, c.P)
	return lhs.Cmp(rhs) == 0
}

// Validate checks that the parameters describe a usable group: an odd prime
// field, a non-singular curve, a base point on the curve and a prime order
// that annihilates it.
func (c *Curve) Validate() error {
	if c == nil {
		return errors.Wrap(ErrInvalidCurve, "nil curve")
	}
	for _, v := range []*big.Int{c.P, c.A, c.B, c.Q, c.X, c.Y} {
		if v == nil {
			return errors.Wrap(ErrInvalidCurve, "missing parameter")
		}
	}
	if c.P.Cmp(big.NewInt(3)) <= 0 || c.P.Bit(0) == 0 || !c.P.ProbablyPrime(0) {
		return errors.Wrap(ErrInvalidCurve, "field modulus is not an odd prime")
	}
	if c.A.Sign() < 0 || c.A.Cmp(c.P) >= 0 || c.B.Sign() < 0 || c.B.Cmp(c.P) >= 0 {
		return errors.Wrap(ErrInvalidCurve, "coefficient out of range")
	}
	// 4a³ + 27b² != 0 (mod p)
	disc := new(big.Int).Exp(c.A, big.NewInt(3), c.P)
	disc.Lsh(disc, 2)
	b2 := new(big.Int).Mul(c.B, c.B)
	disc.Add(disc, b2.Mul(b2, big.NewInt(27)))
	if disc.Mod(disc, c.P).Sign() == 0 {
		return errors.Wrap(ErrInvalidCurve, "singular curve")
	}
	if c.Q.Cmp(big.NewInt(1)) <= 0 || !c.Q.ProbablyPrime(0) {
		return errors.Wrap(ErrInvalidCurve, "order is not prime")
	}
	if c.Cofactor != nil && c.Cofactor.Sign() <= 0 {
		return errors.Wrap(ErrInvalidCurve, "cofactor must be positive")
	}
	if !c.IsOnCurve(c.X, c.Y) {
		return errors.Wrap(ErrInvalidCurve, "base point not on curve")
	}
	if !c.field().scalarMult(fromAffine(c.X, c.Y), c.Q, c.Q.BitLen()).isInfinity() {
		return errors.Wrap(ErrInvalidCurve, "base point order mismatch")
	}
	return nil
}

// inSubgroup reports whether (x, y) lies on c and q·(x, y) = O.
func (c *Curve) inSubgroup(x, y *big.Int) bool {
	if !c.IsOnCurve(x, y) {
		return false
	}
	return c.field().scalarMult(fromAffine(x, y), c.Q, c.Q.BitLen()).isInfinity()
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("gostecdsa: bad curve constant " + s)
	}
	return v
}

// CurveTest256 returns the 256-bit test parameter set of GOST R 34.10-2012
// appendix A.1 (id-GostR3410-2001-TestParamSet).
func CurveTest256() *Curve {
	return &Curve{
		Name:     "id-GostR3410-2001-TestParamSet",
		P:        mustHex("8000000000000000000000000000000000000000000000000000000000000431"),
		A:        big.NewInt(7),
		B:        mustHex("5FBFF498AA938CE739B8E022FBAFEF40563F6E6A3472FC2A514C0CE9DAE23B7E"),
		Q:        mustHex("8000000000000000000000000000000150FE8A1892976154C59CFC193ACCF5B3"),
		Cofactor: big.NewInt(1),
		X:        big.NewInt(2),
		Y:        mustHex("08E2A8A0E65147D4BD6316030E16D19C85C97F0A9CA267122B96ABBCEA7E8FC8"),
	}
}

// CurveCryptoProA returns id-GostR3410-2001-CryptoPro-A-ParamSet
// (RFC 4357 11.4), also known as id-tc26-gost-3410-12-256-paramSetB.
func CurveCryptoProA() *Curve {
	return &Curve{
		Name:     "id-GostR3410-2001-CryptoPro-A-ParamSet",
		P:        mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFD97"),
		A:        mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFD94"),
		B:        big.NewInt(0xA6),
		Q:        mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF6C611070995AD10045841B09B761B893"),
		Cofactor: big.NewInt(1),
		X:        big.NewInt(1),
		Y:        mustHex("8D91E471E0989CDA27DF505A453F2B7635294F2DDF23E3B122ACC99C9E9F1E14"),
	}
}

// CurveTC26512A returns id-tc26-gost-3410-12-512-paramSetA (RFC 7836 A.1).
func CurveTC26512A() *Curve {
	return &Curve{
		Name: "id-tc26-gost-3410-12-512-paramSetA",
		P: mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF" +
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFDC7"),
		A: mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF" +
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFDC4"),
		B: mustHex("E8C2505DEDFC86DDC1BD0B2B6667F1DA34B82574761CB0E879BD081CFD0B6265" +
			"EE3CB090F30D27614CB4574010DA90DD862EF9D4EBEE4761503190785A71C760"),
		Q: mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF" +
			"27E69532F48D89116FF22B8D4E0560609B4B38ABFAD2B85DCACDB1411F10B275"),
		Cofactor: big.NewInt(1),
		X:        big.NewInt(3),
		Y: mustHex("7503CFE87A836AE3A61B8816E25450E6CE5E1C93ACF1ABC1778064FDCBEFA921" +
			"DF1626BE4FD036E93D75E6A50E3A41E98028FE5FC235F5B889A589CB5215F2A4"),
	}
}

// CurveTC26512B returns id-tc26-gost-3410-12-512-paramSetB (RFC 7836 A.2).
func CurveTC26512B() *Curve {
	return &Curve{
		Name: "id-tc26-gost-3410-12-512-paramSetB",
		P: mustHex("8000000000000000000000000000000000000000000000000000000000000000" +
			"000000000000000000000000000000000000000000000000000000000000006F"),
		A: mustHex("8000000000000000000000000000000000000000000000000000000000000000" +
			"000000000000000000000000000000000000000000000000000000000000006C"),
		B: mustHex("687D1B459DC841457E3E06CF6F5E2517B97C7D614AF138BCBF85DC806C4B289F" +
			"3E965D2DB1416D217F8B276FAD1AB69C50F78BEE1FA3106EFB8CCBC7C5140116"),
		Q: mustHex("8000000000000000000000000000000000000000000000000000000000000001" +
			"49A1EC142565A545ACFDB77BD9D40CFA8B996712101BEA0EC6346C54374F25BD"),
		Cofactor: big.NewInt(1),
		X:        big.NewInt(2),
		Y: mustHex("1A8F7EDA389B094C2C071E3647A8940F3C123B697578C213BE6DD9E6C8EC7335" +
			"DCB228FD1EDF4A39152CBCAAF8C0398828041055F94CEEEC7E21340780FE41BD"),
	}
}

var curveAliases = map[string]func() *Curve{
	"test":                                   CurveTest256,
	"1.2.643.2.2.35.0":                       CurveTest256,
	"id-gostr3410-2001-testparamset":         CurveTest256,
	"cryptopro-a":                            CurveCryptoProA,
	"1.2.643.2.2.35.1":                       CurveCryptoProA,
	"id-gostr3410-2001-cryptopro-a-paramset": CurveCryptoProA,
	"id-tc26-gost-3410-12-256-paramsetb":     CurveCryptoProA,
	"1.2.643.7.1.2.1.1.2":                    CurveCryptoProA,
	"tc26-512-a":                             CurveTC26512A,
	"1.2.643.7.1.2.1.2.1":                    CurveTC26512A,
	"id-tc26-gost-3410-12-512-paramseta":     CurveTC26512A,
	"tc26-512-b":                             CurveTC26512B,
	"1.2.643.7.1.2.1.2.2":                    CurveTC26512B,
	"id-tc26-gost-3410-12-512-paramsetb":     CurveTC26512B,
}

// CurveByName resolves a short name, a full parameter-set name or an OID,
// case-insensitively.
func CurveByName(name string) (*Curve, error) {
	f, ok := curveAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCurve, "%q", name)
	}
	return f(), nil
}

// CurveNames lists the short curve names CurveByName accepts.
func CurveNames() []string {
	return []string{"test", "cryptopro-a", "tc26-512-a", "tc26-512-b"}
}
