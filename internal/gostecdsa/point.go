package gostecdsa

import "math/big"

// jacobian is a point (X/Z², Y/Z³); Z == 0 is the point at infinity.
type jacobian struct {
	x, y, z *big.Int
}

func infinity() *jacobian {
	return &jacobian{new(big.Int), new(big.Int), new(big.Int)}
}

func fromAffine(x, y *big.Int) *jacobian {
	return &jacobian{new(big.Int).Set(x), new(big.Int).Set(y), big.NewInt(1)}
}

func (p *jacobian) isInfinity() bool { return p.z.Sign() == 0 }

func (p *jacobian) set(q *jacobian) *jacobian {
	p.x.Set(q.x)
	p.y.Set(q.y)
	p.z.Set(q.z)
	return p
}

// field carries the curve constants the group law needs.
type field struct {
	p, a *big.Int
}

func (f field) mod(z *big.Int) *big.Int { return z.Mod(z, f.p) }

func (f field) mul(x, y *big.Int) *big.Int {
	return f.mod(new(big.Int).Mul(x, y))
}

func (f field) sub(x, y *big.Int) *big.Int {
	return f.mod(new(big.Int).Sub(x, y))
}

// affine converts p back to affine coordinates. ok is false at infinity.
func (f field) affine(p *jacobian) (x, y *big.Int, ok bool) {
	if p.isInfinity() {
		return nil, nil, false
	}
	zInv := new(big.Int).ModInverse(p.z, f.p)
	zInv2 := f.mul(zInv, zInv)
	x = f.mul(p.x, zInv2)
	y = f.mul(p.y, f.mul(zInv2, zInv))
	return x, y, true
}

// double returns 2p.
func (f field) double(p *jacobian) *jacobian {
	if p.isInfinity() || p.y.Sign() == 0 {
		return infinity()
	}
	yy := f.mul(p.y, p.y)
	// S = 4·X·Y²
	s := f.mul(p.x, yy)
	s.Lsh(s, 2)
	f.mod(s)
	// M = 3·X² + a·Z⁴
	zz := f.mul(p.z, p.z)
	m := f.mul(p.x, p.x)
	m.Mul(m, big.NewInt(3))
	m.Add(m, f.mul(f.a, f.mul(zz, zz)))
	f.mod(m)

	x3 := f.mul(m, m)
	x3.Sub(x3, s)
	x3.Sub(x3, s)
	f.mod(x3)

	y3 := f.mul(m, f.sub(s, x3))
	yyyy := f.mul(yy, yy)
	yyyy.Lsh(yyyy, 3)
	y3.Sub(y3, yyyy)
	f.mod(y3)

	z3 := f.mul(p.y, p.z)
	z3.Lsh(z3, 1)
	f.mod(z3)
	return &jacobian{x3, y3, z3}
}

// add returns p+q.
func (f field) add(p, q *jacobian) *jacobian {
	if p.isInfinity() {
		return new(jacobian).copyOf(q)
	}
	if q.isInfinity() {
		return new(jacobian).copyOf(p)
	}
	z1z1 := f.mul(p.z, p.z)
	z2z2 := f.mul(q.z, q.z)
	u1 := f.mul(p.x, z2z2)
	u2 := f.mul(q.x, z1z1)
	s1 := f.mul(p.y, f.mul(q.z, z2z2))
	s2 := f.mul(q.y, f.mul(p.z, z1z1))
	h := f.sub(u2, u1)
	r := f.sub(s2, s1)
	if h.Sign() == 0 {
		if r.Sign() == 0 {
			return f.double(p)
		}
		return infinity()
	}
	hh := f.mul(h, h)
	hhh := f.mul(hh, h)
	v := f.mul(u1, hh)

	x3 := f.mul(r, r)
	x3.Sub(x3, hhh)
	x3.Sub(x3, v)
	x3.Sub(x3, v)
	f.mod(x3)

	y3 := f.mul(r, f.sub(v, x3))
	y3.Sub(y3, f.mul(s1, hhh))
	f.mod(y3)

	z3 := f.mul(h, f.mul(p.z, q.z))
	return &jacobian{x3, y3, z3}
}

func (p *jacobian) copyOf(q *jacobian) *jacobian {
	p.x, p.y, p.z = new(big.Int), new(big.Int), new(big.Int)
	return p.set(q)
}

// scalarMult returns k·p with a Montgomery ladder over bits fixed bits, so
// the add/double sequence does not depend on k.
func (f field) scalarMult(p *jacobian, k *big.Int, bits int) *jacobian {
	r0, r1 := infinity(), new(jacobian).copyOf(p)
	for i := bits - 1; i >= 0; i-- {
		if k.Bit(i) == 0 {
			r1 = f.add(r0, r1)
			r0 = f.double(r0)
		} else {
			r0 = f.add(r0, r1)
			r1 = f.double(r1)
		}
	}
	return r0
}
