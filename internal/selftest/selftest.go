// Package selftest runs the known-answer vectors of every primitive in the
// kit and measures their throughput.
package selftest

import (
	"bytes"
	"crypto/cipher"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/gosthp"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/signature"
)

// Check is one named self-test.
type Check struct {
	Name string
	Run  func(reg *registry.Registry) error
}

// Result is the outcome of a Check.
type Result struct {
	Name string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil }

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func expect(what string, got, want []byte) error {
	if !bytes.Equal(got, want) {
		return errors.Errorf("%s: got %x, want %x", what, got, want)
	}
	return nil
}

// GOST R 34.12-2015 and 34.13-2015 appendix A.
var (
	grasshopperKey = unhex("8899aabbccddeeff0011223344556677fedcba98765432100123456789abcdef")
	grasshopperPT  = unhex("1122334455667700ffeeddccbbaa9988")
	grasshopperCT  = unhex("7f679d90bebc24305a468d42b9d4edcd")
	grasshopperMsg = unhex("1122334455667700ffeeddccbbaa9988" + "00112233445566778899aabbcceeff0a" +
		"112233445566778899aabbcceeff0a00" + "2233445566778899aabbcceeff0a0011")
	grasshopperMAC = unhex("336f4d296059fbe34ddeb35b37749c67")

	magmaKey = unhex("ffeeddccbbaa99887766554433221100f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	magmaPT  = unhex("fedcba9876543210")
	magmaCT  = unhex("4ee901e5c2d8ca3d")
	magmaMsg = unhex("92def06b3c130a59db54c704f8189d204a98fb2e67a8024c8912409b17b57e41")
	magmaMAC = unhex("154e72102030c5bb")
)

// Checks returns every self-test in run order.
func Checks() []Check {
	return []Check{
		{"grasshopper known answer", checkBlock(registry.Grasshopper, grasshopperKey, grasshopperPT, grasshopperCT)},
		{"grasshopper wrong key", checkGrasshopperWrongKey},
		{"grasshopper round keys", checkGrasshopperRoundKeys},
		{"grasshopper gcm", checkGCM},
		{"magma known answer", checkBlock(registry.Magma, magmaKey, magmaPT, magmaCT)},
		{"cmac magma known answer", checkMAC(registry.CMACMagma, magmaKey, magmaMsg, magmaMAC)},
		{"cmac grasshopper known answer", checkMAC(registry.CMACGrasshopper, grasshopperKey, grasshopperMsg, grasshopperMAC)},
		{"streebog streaming", checkStreebog},
		{"gost r 34.10-2012 known answer", checkSignatureKnownAnswer},
		{"gost r 34.10-2012 512-bit round trip", checkSignatureRoundTrip},
	}
}

// Run executes every check against reg.
func Run(reg *registry.Registry) []Result {
	checks := Checks()
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		results = append(results, Result{Name: c.Name, Err: c.Run(reg)})
	}
	return results
}

func checkBlock(name string, key, pt, ct []byte) func(*registry.Registry) error {
	return func(reg *registry.Registry) error {
		block, err := reg.Cipher(name, key)
		if err != nil {
			return err
		}
		out := make([]byte, block.BlockSize())
		block.Encrypt(out, pt)
		if err := expect("encrypt", out, ct); err != nil {
			return err
		}
		block.Decrypt(out, out)
		return expect("decrypt", out, pt)
	}
}

func checkMAC(name string, key, msg, want []byte) func(*registry.Registry) error {
	return func(reg *registry.Registry) error {
		m, err := reg.MAC(name, key)
		if err != nil {
			return err
		}
		m.Write(msg)
		return expect("mac", m.Sum(nil), want)
	}
}

func checkGrasshopperWrongKey(*registry.Registry) error {
	var key, other [gosthp.KeySize]uint8
	var pt [gosthp.BlockSize]uint8
	copy(key[:], grasshopperKey)
	copy(other[:], grasshopperKey)
	other[30] ^= 0x02
	copy(pt[:], grasshopperPT)

	ct := gosthp.Encrypt(key, pt)
	if gosthp.Decrypt(other, ct) == pt {
		return errors.New("decryption under a different key recovered the plaintext")
	}
	return nil
}

func checkGrasshopperRoundKeys(*registry.Registry) error {
	key := [gosthp.KeySize]uint8{
		0x17, 0x19, 0xca, 0xfe, 0x0c, 0x10, 0x03, 0x15, 0x2d, 0x19, 0x27, 0x13, 0x07, 0xab, 0x71, 0x67,
		0x1f, 0xe9, 0xa7, 0x31, 0x87, 0x15, 0x78, 0x61, 0x65, 0x03, 0x01, 0xef, 0x4a, 0xec, 0x9f, 0xf3,
	}
	var pt [gosthp.BlockSize]uint8
	copy(pt[:], "Search the ship.")

	rkeys := gosthp.StretchKey(key)
	ct := gosthp.DoEncrypt(pt, rkeys)
	if gosthp.DoDecrypt(ct, gosthp.GetDecryptRoundKeys(rkeys)) != pt {
		return errors.New("DoDecrypt does not invert DoEncrypt")
	}
	if gosthp.Decrypt(key, ct) != pt {
		return errors.New("Decrypt does not invert DoEncrypt")
	}
	return nil
}

func checkGCM(reg *registry.Registry) error {
	block, err := reg.Cipher(registry.Grasshopper, unhex("31899a7e1a030351d297793b7faffe71ffe0ca13425e99776bd3ee11bac7928f"))
	if err != nil {
		return err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}
	nonce := unhex("3c819d9a9bed087615030b65")
	pt := []byte("Search the big white ship.")
	ad := []byte("TO: Seaport, agent Zorka")

	sealed := aead.Seal(nil, nonce, pt, ad)
	opened, err := aead.Open(nil, nonce, sealed, ad)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	if err := expect("gcm", opened, pt); err != nil {
		return err
	}
	if _, err := aead.Open(nil, nonce, sealed, []byte("TO: Seaport, agent Dasha")); err == nil {
		return errors.New("gcm accepted manipulated additional data")
	}
	return nil
}

func checkStreebog(reg *registry.Registry) error {
	msg := bytes.Repeat([]byte("012345678901234567890123456789012345678901234567890123456789012"), 3)
	for _, name := range []string{registry.Streebog256, registry.Streebog512} {
		whole, err := reg.Hash(name)
		if err != nil {
			return err
		}
		whole.Write(msg)
		want := whole.Sum(nil)

		parts, _ := reg.Hash(name)
		for i := 0; i < len(msg); i += 13 {
			parts.Write(msg[i:min(i+13, len(msg))])
		}
		if err := expect(name+" streaming", parts.Sum(nil), want); err != nil {
			return err
		}
		if len(want) != whole.Size() {
			return errors.Errorf("%s: digest is %d bytes, want %d", name, len(want), whole.Size())
		}
	}
	return nil
}

// GOST R 34.10-2012 appendix A.1, little-endian.
var (
	exampleD    = "283bec9198ce191dee7e39491f96601bc1729ad39d35ed10beb99b78de9a927a"
	exampleHash = "e53e042b67e6ec678e2e02b12a0352ce1fc6eee0529cc088119ad872b3c1fb2d"
	exampleSig  = "409cbfc5f6148092df31b646f7d3d6bc4902a6985a233c65a14246ba646c4501" +
		"9304dc39fd43d03ab86727a45435057419a4ed6fd59ecd808214abf1d228aa41"
	// Reduces to the appendix nonce.
	exampleNonce = "000000000000000077105c9b20bcd3122823c8cf6fcc7b956de33814e95b7fe64fed924594dceab2"
)

func checkSignatureKnownAnswer(reg *registry.Registry) error {
	e, err := reg.Signer(registry.GostECDsa256, gostecdsa.WithRand(bytes.NewReader(unhex(exampleNonce))))
	if err != nil {
		return err
	}
	defer e.Close()

	c := gostecdsa.CurveTest256()
	raw, err := gostecdsa.MarshalParameters(gostecdsa.Parameters{Curve: c})
	if err != nil {
		return err
	}
	raw.D = unhex(exampleD)
	p, err := gostecdsa.UnmarshalParameters(raw)
	if err != nil {
		return err
	}
	if err := e.ImportParameters(p); err != nil {
		return err
	}

	sig, err := e.SignHash(unhex(exampleHash))
	if err != nil {
		return err
	}
	if err := expect("signature", sig, unhex(exampleSig)); err != nil {
		return err
	}
	ok, err := e.VerifyHash(unhex(exampleHash), sig)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("known signature rejected")
	}
	return nil
}

func checkSignatureRoundTrip(reg *registry.Registry) error {
	e, err := reg.Signer(registry.GostECDsa512)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.GenerateKey(gostecdsa.CurveTC26512B()); err != nil {
		return err
	}

	d := signature.Description512()
	f, err := d.CreateFormatter(reg, e)
	if err != nil {
		return err
	}
	v, err := d.CreateDeformatter(reg, e)
	if err != nil {
		return err
	}
	msg := []byte("The hunter will softly and suddenly vanish away, and never be met with again.")
	sig, err := f.SignMessage(msg)
	if err != nil {
		return err
	}
	if ok, err := v.VerifyMessage(msg, sig); err != nil || !ok {
		return errors.Errorf("fresh signature rejected (err %v)", err)
	}
	sig[len(sig)-1] ^= 1
	if ok, err := v.VerifyMessage(msg, sig); err != nil || ok {
		return errors.Errorf("tampered signature accepted (err %v)", err)
	}
	return nil
}
