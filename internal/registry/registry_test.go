package registry

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/magma"
	"github.com/liondandelion/opengost/internal/streebog"
)

func TestLookupForms(t *testing.T) {
	r := Default()
	for _, name := range []string{
		"Streebog256",
		"streebog256",
		"OpenGost.Security.Cryptography.Streebog256",
		"opengost.security.cryptography.STREEBOG256",
		"1.2.643.7.1.1.2.2",
		"  Streebog256 ",
	} {
		h, err := r.Hash(name)
		require.NoError(t, err, name)
		assert.Equal(t, streebog.Size256, h.Size(), name)
	}
}

func TestDefaultAlgorithms(t *testing.T) {
	r := Default()

	h, err := r.Hash(Streebog512)
	require.NoError(t, err)
	h.Write([]byte("abc"))
	assert.Equal(t, streebog.Sum512([]byte("abc")), h.Sum(nil))

	key := make([]byte, 32)
	block, err := r.Cipher(Magma, key)
	require.NoError(t, err)
	assert.Equal(t, magma.BlockSize, block.BlockSize())
	block, err = r.Cipher(Grasshopper, key)
	require.NoError(t, err)
	assert.Equal(t, 16, block.BlockSize())

	for name, size := range map[string]int{
		CMACMagma:       8,
		CMACGrasshopper: 16,
		HMACStreebog256: 32,
		HMACStreebog512: 64,
	} {
		m, err := r.MAC(name, key)
		require.NoError(t, err, name)
		assert.Equal(t, size, m.Size(), name)
	}

	e, err := r.Signer(GostECDsa512)
	require.NoError(t, err)
	assert.Equal(t, 512, e.KeySize())
	digest, err := r.SignerDigest("1.2.643.7.1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, Streebog256, digest)
}

func TestCMACKnownAnswer(t *testing.T) {
	key, _ := hex.DecodeString("ffeeddccbbaa99887766554433221100f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	msg, _ := hex.DecodeString("92def06b3c130a59db54c704f8189d204a98fb2e67a8024c8912409b17b57e41")
	m, err := Default().MAC("OpenGost.Security.Cryptography.CMACMagma", key)
	require.NoError(t, err)
	m.Write(msg)
	assert.Equal(t, "154e72102030c5bb", hex.EncodeToString(m.Sum(nil)))
}

func TestErrors(t *testing.T) {
	r := Default()

	_, err := r.Hash("SHA256")
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
	_, err = r.Hash(Magma)
	assert.True(t, errors.Is(err, ErrWrongKind))
	_, err = r.Signer(Streebog256)
	assert.True(t, errors.Is(err, ErrWrongKind))

	_, err = r.MAC(CMACMagma, nil)
	assert.Error(t, err)
	_, err = r.Cipher(Grasshopper, make([]byte, 5))
	assert.Error(t, err)

	err = r.RegisterHash("streebog256", "", sha256.New)
	assert.True(t, errors.Is(err, ErrDuplicate))
	err = r.RegisterHash("SHA256", "1.2.643.7.1.1.2.2", sha256.New)
	assert.True(t, errors.Is(err, ErrDuplicate))
	// A failed registration leaves no partial entry.
	_, err = r.Hash("SHA256")
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
}

func TestMapNameToOID(t *testing.T) {
	r := Default()
	assert.Equal(t, "1.2.643.7.1.1.2.3", r.MapNameToOID("OpenGost.Security.Cryptography.Streebog512"))
	assert.Equal(t, r.MapNameToOID(Streebog512), r.MapNameToOID("1.2.643.7.1.1.2.3"))
	assert.Equal(t, "", r.MapNameToOID(CMACGrasshopper))
	assert.Equal(t, "", r.MapNameToOID("nope"))
}

func TestCustomRegistry(t *testing.T) {
	r := New()
	assert.Empty(t, r.Names())

	require.NoError(t, r.RegisterHash("SHA256", "2.16.840.1.101.3.4.2.1", sha256.New))
	require.NoError(t, r.RegisterSigner("Signer", "", gostecdsa.Size256, "SHA256"))

	info, ok := r.Lookup("2.16.840.1.101.3.4.2.1")
	require.True(t, ok)
	assert.Equal(t, "OpenGost.Security.Cryptography.SHA256", info.FullName)
	assert.Equal(t, KindHash, info.Kind)

	names := r.Names()
	require.Len(t, names, 2)
	assert.Equal(t, "SHA256", names[0].Name)
	assert.Equal(t, "Signer", names[1].Name)
	assert.Equal(t, "SHA256", names[1].Digest)

	h, err := r.Hash("sha256")
	require.NoError(t, err)
	assert.Equal(t, sha256.Size, h.Size())
}

// countingBlock counts the blocks a wrapped cipher encrypts.
type countingBlock struct {
	cipher.Block
	n *int
}

func (c countingBlock) Encrypt(dst, src []byte) {
	*c.n++
	c.Block.Encrypt(dst, src)
}

func TestCMACUsesRegisteredCipher(t *testing.T) {
	key, _ := hex.DecodeString("ffeeddccbbaa99887766554433221100f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	msg, _ := hex.DecodeString("92def06b3c130a59db54c704f8189d204a98fb2e67a8024c8912409b17b57e41")

	var blocks int
	r := New()
	require.NoError(t, r.RegisterCipher(Magma, "", func(key []byte) (cipher.Block, error) {
		b, err := magma.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return countingBlock{b, &blocks}, nil
	}))
	require.NoError(t, r.RegisterCMAC(CMACMagma, "", Magma))

	info, ok := r.Lookup(CMACMagma)
	require.True(t, ok)
	assert.Equal(t, KindMAC, info.Kind)
	assert.Equal(t, Magma, info.Cipher)

	m, err := r.MAC(CMACMagma, key)
	require.NoError(t, err)
	m.Write(msg)
	assert.Equal(t, "154e72102030c5bb", hex.EncodeToString(m.Sum(nil)))
	assert.Positive(t, blocks, "CMAC ran over the registered provider")

	newCipher, err := r.CipherFunc("magma")
	require.NoError(t, err)
	_, err = newCipher(key)
	require.NoError(t, err)

	// A CMAC whose cipher is missing fails at use.
	require.NoError(t, r.RegisterCMAC("CMACMissing", "", "NoSuchCipher"))
	_, err = r.MAC("CMACMissing", key)
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
	_, err = r.CipherFunc(CMACMagma)
	assert.True(t, errors.Is(err, ErrWrongKind))
}

func TestNamesOrder(t *testing.T) {
	names := Default().Names()
	require.Len(t, names, 10)
	for i := 1; i < len(names); i++ {
		prev, cur := names[i-1], names[i]
		assert.True(t, prev.Kind < cur.Kind || (prev.Kind == cur.Kind && prev.Name < cur.Name))
	}
	text, err := KindSigner.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "signer", string(text))
}
