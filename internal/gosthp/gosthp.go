// ~=  GOSThopper  =~
// Kuznyechik cipher, GOST R 34.12-2015
//
// Kuznyechik ("Grasshopper") is a 128-bit block cipher with 256-bit keys,
// a substitution-permutation network whose round keys are derived with a
// Feistel construction. Rounds run over precomputed LS lookup tables.
//
// General usage:
//
//	c, err := gosthp.NewCipher(key) // cipher.Block
//	aead, err := cipher.NewGCM(c)
//
// Low level:
//
//	rkeys := gosthp.StretchKey(key)
//	ct := gosthp.DoEncrypt(pt, rkeys)
//	pt = gosthp.DoDecrypt(ct, gosthp.GetDecryptRoundKeys(rkeys))
//
// Reference: RFC 7801.
package gosthp

import (
	"crypto/cipher"
	"strconv"
	"sync"
)

const (
	// BlockSize is the Kuznyechik block size in bytes.
	BlockSize = 16
	// KeySize is the Kuznyechik key size in bytes.
	KeySize = 32
)

// Pi substitution.
var piTable = [256]uint8{
	0xFC, 0xEE, 0xDD, 0x11, 0xCF, 0x6E, 0x31, 0x16, 0xFB, 0xC4, 0xFA, 0xDA, 0x23, 0xC5, 0x04, 0x4D,
	0xE9, 0x77, 0xF0, 0xDB, 0x93, 0x2E, 0x99, 0xBA, 0x17, 0x36, 0xF1, 0xBB, 0x14, 0xCD, 0x5F, 0xC1,
	0xF9, 0x18, 0x65, 0x5A, 0xE2, 0x5C, 0xEF, 0x21, 0x81, 0x1C, 0x3C, 0x42, 0x8B, 0x01, 0x8E, 0x4F,
	0x05, 0x84, 0x02, 0xAE, 0xE3, 0x6A, 0x8F, 0xA0, 0x06, 0x0B, 0xED, 0x98, 0x7F, 0xD4, 0xD3, 0x1F,
	0xEB, 0x34, 0x2C, 0x51, 0xEA, 0xC8, 0x48, 0xAB, 0xF2, 0x2A, 0x68, 0xA2, 0xFD, 0x3A, 0xCE, 0xCC,
	0xB5, 0x70, 0x0E, 0x56, 0x08, 0x0C, 0x76, 0x12, 0xBF, 0x72, 0x13, 0x47, 0x9C, 0xB7, 0x5D, 0x87,
	0x15, 0xA1, 0x96, 0x29, 0x10, 0x7B, 0x9A, 0xC7, 0xF3, 0x91, 0x78, 0x6F, 0x9D, 0x9E, 0xB2, 0xB1,
	0x32, 0x75, 0x19, 0x3D, 0xFF, 0x35, 0x8A, 0x7E, 0x6D, 0x54, 0xC6, 0x80, 0xC3, 0xBD, 0x0D, 0x57,
	0xDF, 0xF5, 0x24, 0xA9, 0x3E, 0xA8, 0x43, 0xC9, 0xD7, 0x79, 0xD6, 0xF6, 0x7C, 0x22, 0xB9, 0x03,
	0xE0, 0x0F, 0xEC, 0xDE, 0x7A, 0x94, 0xB0, 0xBC, 0xDC, 0xE8, 0x28, 0x50, 0x4E, 0x33, 0x0A, 0x4A,
	0xA7, 0x97, 0x60, 0x73, 0x1E, 0x00, 0x62, 0x44, 0x1A, 0xB8, 0x38, 0x82, 0x64, 0x9F, 0x26, 0x41,
	0xAD, 0x45, 0x46, 0x92, 0x27, 0x5E, 0x55, 0x2F, 0x8C, 0xA3, 0xA5, 0x7D, 0x69, 0xD5, 0x95, 0x3B,
	0x07, 0x58, 0xB3, 0x40, 0x86, 0xAC, 0x1D, 0xF7, 0x30, 0x37, 0x6B, 0xE4, 0x88, 0xD9, 0xE7, 0x89,
	0xE1, 0x1B, 0x83, 0x49, 0x4C, 0x3F, 0xF8, 0xFE, 0x8D, 0x53, 0xAA, 0x90, 0xCA, 0xD8, 0x85, 0x61,
	0x20, 0x71, 0x67, 0xA4, 0x2D, 0x2B, 0x09, 0x5B, 0xCB, 0x9B, 0x25, 0xD0, 0xBE, 0xE5, 0x6C, 0x52,
	0x59, 0xA6, 0x74, 0xD2, 0xE6, 0xF4, 0xB4, 0xC0, 0xD1, 0x66, 0xAF, 0xC2, 0x39, 0x4B, 0x63, 0xB6,
}

// Inverse Pi substitution, filled by initTables.
var piInverse [256]uint8

// L-function coefficients.
var lVector = [BlockSize]uint8{
	0x94, 0x20, 0x85, 0x10, 0xC2, 0xC0, 0x01, 0xFB,
	0x01, 0xC0, 0xC2, 0x10, 0x85, 0x20, 0x94, 0x01,
}

var (
	// LS (substitution then linear) per byte position and value, for encryption.
	lsEncLookup [BlockSize][256][BlockSize]uint8
	// Inverse L per byte position and value.
	lInvLookup [BlockSize][256][BlockSize]uint8
	// Inverse S then inverse L, for decryption.
	slDecLookup [BlockSize][256][BlockSize]uint8

	tablesOnce sync.Once
)

// gfMul multiplies in GF(2^8) modulo x^8+x^7+x^6+x+1.
func gfMul(x, y uint8) uint8 {
	var z uint8
	for y != 0 {
		if y&1 == 1 {
			z ^= x
		}
		if x&0x80 != 0 {
			x = (x << 1) ^ 0xC3
		} else {
			x <<= 1
		}
		y >>= 1
	}
	return z
}

// lTransform applies 16 rounds of the R register.
func lTransform(block [BlockSize]uint8) [BlockSize]uint8 {
	for j := 0; j < BlockSize; j++ {
		x := block[15]
		for i := 14; i >= 0; i-- {
			block[i+1] = block[i]
			x ^= gfMul(block[i], lVector[i])
		}
		block[0] = x
	}
	return block
}

func lInverse(block [BlockSize]uint8) [BlockSize]uint8 {
	for j := 0; j < BlockSize; j++ {
		x := block[0]
		for i := 0; i < 15; i++ {
			block[i] = block[i+1]
			x ^= gfMul(block[i], lVector[i])
		}
		block[15] = x
	}
	return block
}

func initTables() {
	tablesOnce.Do(func() {
		for i, v := range piTable {
			piInverse[v] = uint8(i)
		}
		for i := 0; i < BlockSize; i++ {
			for j := 0; j < 256; j++ {
				var x [BlockSize]uint8
				x[i] = piTable[j]
				lsEncLookup[i][j] = lTransform(x)

				x = [BlockSize]uint8{}
				x[i] = uint8(j)
				lInvLookup[i][j] = lInverse(x)

				x = [BlockSize]uint8{}
				x[i] = piInverse[j]
				slDecLookup[i][j] = lInverse(x)
			}
		}
	})
}

// StretchKey expands the 256-bit key into ten round keys.
func StretchKey(key [KeySize]uint8) [10][BlockSize]uint8 {
	var c, x, y, z [BlockSize]uint8
	var rkeys [10][BlockSize]uint8

	copy(x[:], key[:BlockSize])
	copy(y[:], key[BlockSize:])
	rkeys[0] = x
	rkeys[1] = y

	for i := 1; i <= 32; i++ {
		c = [BlockSize]uint8{}
		c[15] = uint8(i)
		c = lTransform(c)
		for k := range z {
			z[k] = piTable[x[k]^c[k]]
		}
		z = lTransform(z)
		for k := range z {
			z[k] ^= y[k]
		}
		y = x
		x = z
		if i%8 == 0 {
			rkeys[i>>2] = x
			rkeys[(i>>2)+1] = y
		}
	}
	return rkeys
}

// GetDecryptRoundKeys L-inverts K_2..K_10 so DoDecrypt can use the SL tables.
func GetDecryptRoundKeys(rkeys [10][BlockSize]uint8) [10][BlockSize]uint8 {
	var dec [10][BlockSize]uint8
	dec[0] = rkeys[0]
	for k := 1; k < 10; k++ {
		dec[k] = lInverse(rkeys[k])
	}
	return dec
}

// Encrypt encrypts a single block under key.
func Encrypt(key [KeySize]uint8, block [BlockSize]uint8) [BlockSize]uint8 {
	initTables()
	return DoEncrypt(block, StretchKey(key))
}

// Decrypt decrypts a single block under key.
func Decrypt(key [KeySize]uint8, block [BlockSize]uint8) [BlockSize]uint8 {
	initTables()
	return DoDecrypt(block, GetDecryptRoundKeys(StretchKey(key)))
}

// KeySizeError is returned for keys that are not 32 bytes long.
type KeySizeError int

func (k KeySizeError) Error() string {
	return "gosthp: invalid key size " + strconv.Itoa(int(k))
}

type grasshopper struct {
	encKeys [10][BlockSize]uint8
	decKeys [10][BlockSize]uint8
}

// NewCipher returns a Kuznyechik cipher.Block for a 256-bit key.
func NewCipher(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, KeySizeError(len(key))
	}
	initTables()

	var k [KeySize]uint8
	copy(k[:], key)
	c := &grasshopper{encKeys: StretchKey(k)}
	c.decKeys = GetDecryptRoundKeys(c.encKeys)
	clear(k[:])
	return c, nil
}

func (c *grasshopper) BlockSize() int { return BlockSize }

func (c *grasshopper) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("gosthp: input not full block")
	}
	if len(dst) < BlockSize {
		panic("gosthp: output not full block")
	}
	var b [BlockSize]uint8
	copy(b[:], src[:BlockSize])
	b = DoEncrypt(b, c.encKeys)
	copy(dst, b[:])
}

func (c *grasshopper) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("gosthp: input not full block")
	}
	if len(dst) < BlockSize {
		panic("gosthp: output not full block")
	}
	var b [BlockSize]uint8
	copy(b[:], src[:BlockSize])
	b = DoDecrypt(b, c.decKeys)
	copy(dst, b[:])
}
