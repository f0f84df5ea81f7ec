package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liondandelion/opengost/internal/selftest"
	"github.com/liondandelion/opengost/internal/streebog"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--verbosity", "0"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSelftest(t *testing.T) {
	out, err := run(t, "", "selftest")
	require.NoError(t, err, out)
	for _, c := range selftest.Checks() {
		assert.Contains(t, out, c.Name)
	}
	assert.NotContains(t, out, "FAILED")
}

func TestDigest(t *testing.T) {
	out, err := run(t, "hello", "digest")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(streebog.Sum256([]byte("hello")))+"\n", out)

	out, err = run(t, "hello", "digest", "--alg", "Streebog512", "-")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(streebog.Sum512([]byte("hello")))+"\n", out)

	_, err = run(t, "", "digest", "--alg", "Magma")
	assert.Error(t, err)
	_, err = run(t, "", "digest", "/does/not/exist")
	assert.Error(t, err)
}

func TestMAC(t *testing.T) {
	msg, _ := hex.DecodeString("92def06b3c130a59db54c704f8189d204a98fb2e67a8024c8912409b17b57e41")
	out, err := run(t, string(msg), "mac", "--alg", "CMACMagma",
		"--key", "ffeeddccbbaa99887766554433221100f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	require.NoError(t, err)
	assert.Equal(t, "154e72102030c5bb\n", out)

	_, err = run(t, "", "mac", "--key", "zz")
	assert.Error(t, err)
	_, err = run(t, "", "mac")
	assert.Error(t, err, "--key is required")
}

func TestAlgorithms(t *testing.T) {
	out, err := run(t, "", "algorithms")
	require.NoError(t, err)
	assert.Contains(t, out, "GostECDsa512")
	assert.Contains(t, out, "1.2.643.7.1.1.5.2")
}

func TestBench(t *testing.T) {
	out, err := run(t, "", "bench", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "magma encrypt")

	out, err = run(t, "", "bench", "--duration", "1ms", "--only", "magma encrypt")
	require.NoError(t, err)
	assert.Contains(t, out, "magma encrypt")
	assert.Contains(t, out, "MIB/S")
}
