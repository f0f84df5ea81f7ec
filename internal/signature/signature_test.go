package signature

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/streebog"
)

func newKey(t *testing.T, size gostecdsa.Size, c *gostecdsa.Curve) *gostecdsa.Engine {
	t.Helper()
	e, err := gostecdsa.New(size)
	require.NoError(t, err)
	require.NoError(t, e.GenerateKey(c))
	return e
}

func TestDescriptions(t *testing.T) {
	d := Description512()
	assert.Equal(t, "OpenGost.Security.Cryptography.GostECDsa512", d.KeyAlgorithm)
	assert.Equal(t, "OpenGost.Security.Cryptography.Streebog512", d.DigestAlgorithm)
	assert.Equal(t, "OpenGost.Security.Cryptography.GostECDsa512SignatureFormatter", d.FormatterAlgorithm)
	assert.Equal(t, "OpenGost.Security.Cryptography.GostECDsa512SignatureDeformatter", d.DeformatterAlgorithm)

	d, err := ForSize(gostecdsa.Size256)
	require.NoError(t, err)
	assert.Equal(t, Description256(), d)
	_, err = ForSize(gostecdsa.Size(1024))
	assert.Equal(t, gostecdsa.ErrUnsupportedKeySize, err)

	reg := registry.Default()
	h, err := Description256().CreateDigest(reg)
	require.NoError(t, err)
	assert.Equal(t, streebog.Size256, h.Size())
}

func TestSignVerifyMessage(t *testing.T) {
	reg := registry.Default()
	for _, tc := range []struct {
		desc  Description
		curve *gostecdsa.Curve
	}{
		{Description256(), gostecdsa.CurveCryptoProA()},
		{Description512(), gostecdsa.CurveTC26512A()},
	} {
		t.Run(tc.desc.KeyAlgorithm, func(t *testing.T) {
			key := newKey(t, tc.desc.Size, tc.curve)
			f, err := tc.desc.CreateFormatter(reg, key)
			require.NoError(t, err)
			v, err := tc.desc.CreateDeformatter(reg, key)
			require.NoError(t, err)

			msg := []byte("The quick brown fox jumps over the lazy dog")
			sig, err := f.SignMessage(msg)
			require.NoError(t, err)

			ok, err := v.VerifyMessage(msg, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = v.VerifyMessage(append(msg, '.'), sig)
			require.NoError(t, err)
			assert.False(t, ok)

			// The hash path agrees with the message path.
			h, err := tc.desc.CreateDigest(reg)
			require.NoError(t, err)
			h.Write(msg)
			ok, err = v.VerifySignature(h.Sum(nil), sig)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSetHashAlgorithm(t *testing.T) {
	reg := registry.Default()
	f := NewFormatter(reg, Description256())
	for _, name := range []string{
		"Streebog256",
		"OpenGost.Security.Cryptography.Streebog256",
		"1.2.643.7.1.1.2.2",
	} {
		assert.NoError(t, f.SetHashAlgorithm(name), name)
	}
	for _, name := range []string{"Streebog512", "SHA256", ""} {
		assert.True(t, errors.Is(f.SetHashAlgorithm(name), ErrHashAlgorithm), name)
	}

	v := NewDeformatter(reg, Description512())
	assert.NoError(t, v.SetHashAlgorithm("streebog512"))
	assert.True(t, errors.Is(v.SetHashAlgorithm("Streebog256"), ErrHashAlgorithm))

	// Without the paired digest registered nothing is accepted.
	empty := NewFormatter(registry.New(), Description256())
	for _, name := range []string{"Streebog256", "SHA256", ""} {
		assert.True(t, errors.Is(empty.SetHashAlgorithm(name), ErrHashAlgorithm), name)
	}
}

func TestMissingKey(t *testing.T) {
	reg := registry.Default()
	f := NewFormatter(reg, Description256())
	v := NewDeformatter(reg, Description256())

	_, err := f.CreateSignature(make([]byte, 32))
	assert.Equal(t, ErrMissingKey, err)
	_, err = f.SignMessage([]byte("x"))
	assert.Equal(t, ErrMissingKey, err)
	_, err = v.VerifySignature(make([]byte, 32), make([]byte, 64))
	assert.Equal(t, ErrMissingKey, err)
	_, err = v.VerifyMessage([]byte("x"), make([]byte, 64))
	assert.Equal(t, ErrMissingKey, err)

	_, err = f.CreateSignature(nil)
	assert.Equal(t, gostecdsa.ErrNilHash, err)
	_, err = v.VerifySignature(make([]byte, 32), nil)
	assert.Equal(t, gostecdsa.ErrNilSignature, err)

	assert.Equal(t, ErrMissingKey, f.SetKey(nil))
	_, err = Description256().CreateFormatter(reg, nil)
	assert.Equal(t, ErrMissingKey, err)
}

func TestKeySizeMismatch(t *testing.T) {
	reg := registry.Default()
	key := newKey(t, gostecdsa.Size256, gostecdsa.CurveTest256())

	_, err := Description512().CreateDeformatter(reg, key)
	assert.True(t, errors.Is(err, ErrKeySize))
}

func TestPublicOnlyDeformatter(t *testing.T) {
	reg := registry.Default()
	signer := newKey(t, gostecdsa.Size256, gostecdsa.CurveTest256())
	pub, err := signer.ExportParameters(false)
	require.NoError(t, err)
	verifier, err := gostecdsa.New(gostecdsa.Size256)
	require.NoError(t, err)
	require.NoError(t, verifier.ImportParameters(pub))

	f, err := Description256().CreateFormatter(reg, signer)
	require.NoError(t, err)
	v, err := Description256().CreateDeformatter(reg, verifier)
	require.NoError(t, err)

	sig, err := f.SignMessage([]byte("payload"))
	require.NoError(t, err)
	ok, err := v.VerifyMessage([]byte("payload"), sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// A public-only key cannot sign.
	f2, err := Description256().CreateFormatter(reg, verifier)
	require.NoError(t, err)
	_, err = f2.SignMessage([]byte("payload"))
	assert.Equal(t, gostecdsa.ErrMissingPrivateKey, err)
}
