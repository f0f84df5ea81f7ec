package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondandelion/opengost/internal/gostecdsa"
)

func writeKey(t *testing.T, curve *gostecdsa.Curve, size gostecdsa.Size) (string, gostecdsa.Parameters) {
	e, err := gostecdsa.New(size)
	require.NoError(t, err)
	require.NoError(t, e.GenerateKey(curve))
	p, err := e.ExportParameters(true)
	require.NoError(t, err)
	b, err := curve.EncodeScalar(p.D)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sign.key")
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path, p
}

func TestLoadSignKey(t *testing.T) {
	for name, tc := range map[string]struct {
		curve *gostecdsa.Curve
		size  gostecdsa.Size
	}{
		"cryptopro-a": {gostecdsa.CurveCryptoProA(), gostecdsa.Size256},
		"tc26-512-b":  {gostecdsa.CurveTC26512B(), gostecdsa.Size512},
	} {
		path, want := writeKey(t, tc.curve, tc.size)
		e, err := loadSignKey(path, name)
		require.NoError(t, err, name)
		assert.Equal(t, int(tc.size), e.KeySize())
		got, err := e.ExportParameters(false)
		require.NoError(t, err)
		assert.Equal(t, 0, got.X.Cmp(want.X), name)
		assert.Equal(t, 0, got.Y.Cmp(want.Y), name)
	}
}

func TestLoadSignKeyErrors(t *testing.T) {
	path, _ := writeKey(t, gostecdsa.CurveCryptoProA(), gostecdsa.Size256)

	_, err := loadSignKey(path, "tc26-512-a")
	assert.ErrorIs(t, err, gostecdsa.ErrInvalidPrivateKey, "a 256-bit scalar is the wrong length for a 512-bit curve")
	_, err = loadSignKey(path, "secp256k1")
	assert.ErrorIs(t, err, gostecdsa.ErrUnknownCurve)
	_, err = loadSignKey(filepath.Join(t.TempDir(), "missing"), "cryptopro-a")
	assert.Error(t, err)

	zero := filepath.Join(t.TempDir(), "zero.key")
	require.NoError(t, os.WriteFile(zero, make([]byte, 32), 0o600))
	_, err = loadSignKey(zero, "cryptopro-a")
	assert.ErrorIs(t, err, gostecdsa.ErrInvalidPrivateKey)
}

func TestLoadSealKey(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "seal.key")
	require.NoError(t, os.WriteFile(good, make([]byte, 32), 0o600))
	b, err := loadSealKey(good)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	short := filepath.Join(dir, "short.key")
	require.NoError(t, os.WriteFile(short, make([]byte, 16), 0o600))
	_, err = loadSealKey(short)
	assert.Error(t, err)
}
