package streebog

import (
	"bytes"
	"crypto/hmac"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizes(t *testing.T) {
	h256, h512 := New256(), New512()
	assert.Equal(t, Size256, h256.Size())
	assert.Equal(t, Size512, h512.Size())
	assert.Equal(t, BlockSize, h256.BlockSize())
	assert.Equal(t, BlockSize, h512.BlockSize())

	assert.Len(t, Sum256(nil), Size256)
	assert.Len(t, Sum512([]byte("abc")), Size512)
}

func TestStreaming(t *testing.T) {
	msg := bytes.Repeat([]byte("0123456789"), 30)

	h := New512()
	for i := 0; i < len(msg); i += 7 {
		end := i + 7
		if end > len(msg) {
			end = len(msg)
		}
		h.Write(msg[i:end])
	}
	assert.Equal(t, Sum512(msg), h.Sum(nil))

	h.Reset()
	h.Write(msg)
	assert.Equal(t, Sum512(msg), h.Sum(nil))
}

func TestVariantsDiffer(t *testing.T) {
	msg := []byte("streebog")
	assert.NotEqual(t, Sum256(msg), Sum512(msg)[:Size256])
	assert.NotEqual(t, Sum256(msg), Sum256([]byte("streebof")))
}

func TestNew(t *testing.T) {
	require.NotNil(t, New(Size256))
	require.NotNil(t, New(Size512))
	assert.Nil(t, New(48))
	assert.Equal(t, Size512, New(Size512)().Size())
}

func TestHMAC(t *testing.T) {
	data := []byte("message to authenticate")

	// Keys up to the block size are used as given.
	key := make([]byte, BlockSize)
	for i := range key {
		key[i] = byte(i)
	}
	m := NewHMAC256(key)
	m.Write(data)
	tag := m.Sum(nil)
	assert.Len(t, tag, Size256)

	again := NewHMAC256(key)
	again.Write(data)
	assert.True(t, hmac.Equal(tag, again.Sum(nil)))

	// Longer keys are hashed first.
	long := make([]byte, BlockSize+1)
	short := Sum512(long)
	a, b := NewHMAC512(long), NewHMAC512(short)
	a.Write(data)
	b.Write(data)
	assert.Equal(t, b.Sum(nil), a.Sum(nil))
}
