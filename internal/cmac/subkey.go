package cmac

import "crypto/subtle"

// Irreducible polynomials for subkey doubling, big-endian and sized to the
// block (GOST R 34.13-2015 5.6, NIST SP 800-38B 5.3).
var (
	poly64  = []byte{0, 0, 0, 0, 0, 0, 0, 0x1B}
	poly128 = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x87}
)

// Polynomial returns a copy of the reduction constant for blockSize-byte blocks.
func Polynomial(blockSize int) ([]byte, error) {
	switch blockSize {
	case len(poly64):
		return append([]byte(nil), poly64...), nil
	case len(poly128):
		return append([]byte(nil), poly128...), nil
	}
	return nil, ErrUnsupportedBlockSize
}

// dbl multiplies src by x in GF(2^n) and stores the result in dst.
// dst and src may alias.
func dbl(dst, src, poly []byte) {
	mask := -(src[0] >> 7)
	var carry byte
	for i := len(src) - 1; i >= 0; i-- {
		b := src[i]
		dst[i] = b<<1 | carry
		carry = b >> 7
	}
	for i := range dst {
		dst[i] ^= poly[i] & mask
	}
}

func xorBytes(a, b []byte) {
	subtle.XORBytes(a, a, b)
}
