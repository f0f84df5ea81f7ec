// GOST-HP (GOSThopper)
//
// Pure Go block operations over the precomputed lookup tables.
// The tables must be ready (see initTables) before any of these are called.

package gosthp

// DoEncrypt encrypts one block with expanded round keys.
func DoEncrypt(block [BlockSize]uint8, rkeys [10][BlockSize]uint8) [BlockSize]uint8 {
	var ct, r [BlockSize]uint8
	ct = block
	for i := 0; i < 9; i++ { // Nine basic rounds.
		for k := range ct {
			ct[k] ^= rkeys[i][k]
		}
		r = lsEncLookup[0][ct[0]]
		for j := 1; j < BlockSize; j++ {
			// Each byte position selects a precomputed LS row.
			for k := range r {
				r[k] ^= lsEncLookup[j][ct[j]][k]
			}
		}
		ct = r
	}
	for k := range ct {
		ct[k] ^= rkeys[9][k]
	}
	return ct
}

// DoDecrypt decrypts one block. rkeys must come from GetDecryptRoundKeys.
func DoDecrypt(block [BlockSize]uint8, rkeys [10][BlockSize]uint8) [BlockSize]uint8 {
	var pt, r [BlockSize]uint8

	// Inverse L first, so the remaining rounds fit the SL lookup.
	r = lInvLookup[0][block[0]]
	for j := 1; j < BlockSize; j++ {
		for k := range r {
			r[k] ^= lInvLookup[j][block[j]][k]
		}
	}
	pt = r

	for i := 9; i > 1; i-- {
		for k := range pt {
			pt[k] ^= rkeys[i][k]
		}
		r = slDecLookup[0][pt[0]]
		for j := 1; j < BlockSize; j++ {
			for k := range r {
				r[k] ^= slDecLookup[j][pt[j]][k]
			}
		}
		pt = r
	}

	for k := range pt {
		pt[k] ^= rkeys[1][k]
		pt[k] = piInverse[pt[k]]
		pt[k] ^= rkeys[0][k]
	}
	return pt
}
