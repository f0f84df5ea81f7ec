package selftest

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/gosthp"
	"github.com/liondandelion/opengost/internal/registry"
)

// Measurement is the throughput of one benchmark.
type Measurement struct {
	Name    string
	Ops     int
	Bytes   int64
	Elapsed time.Duration
}

// MBps is the throughput in MiB per second; zero for operation-only benchmarks.
func (m Measurement) MBps() float64 {
	if m.Elapsed <= 0 || m.Bytes == 0 {
		return 0
	}
	return float64(m.Bytes) / m.Elapsed.Seconds() / (1 << 20)
}

// OpsPerSec is the operation rate.
func (m Measurement) OpsPerSec() float64 {
	if m.Elapsed <= 0 {
		return 0
	}
	return float64(m.Ops) / m.Elapsed.Seconds()
}

// Benchmark repeats one operation; each call reports the bytes it processed.
type Benchmark struct {
	Name  string
	Setup func(reg *registry.Registry) (func() int, error)
}

// loop runs op until d has passed or ctx is done.
func loop(ctx context.Context, name string, d time.Duration, op func() int) Measurement {
	m := Measurement{Name: name}
	start := time.Now()
	deadline := start.Add(d)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		// Check the clock every few operations only.
		for i := 0; i < 16; i++ {
			m.Bytes += int64(op())
			m.Ops++
		}
	}
	m.Elapsed = time.Since(start)
	return m
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// Benchmarks lists the throughput measurements gostrun can run.
func Benchmarks() []Benchmark {
	return []Benchmark{
		{"grasshopper DoEncrypt", func(*registry.Registry) (func() int, error) {
			var key [gosthp.KeySize]uint8
			var block [gosthp.BlockSize]uint8
			copy(key[:], randomBytes(gosthp.KeySize))
			copy(block[:], randomBytes(gosthp.BlockSize))
			rkeys := gosthp.StretchKey(key)
			return func() int {
				block = gosthp.DoEncrypt(block, rkeys)
				return gosthp.BlockSize
			}, nil
		}},
		{"grasshopper DoDecrypt", func(*registry.Registry) (func() int, error) {
			var key [gosthp.KeySize]uint8
			var block [gosthp.BlockSize]uint8
			copy(key[:], randomBytes(gosthp.KeySize))
			copy(block[:], randomBytes(gosthp.BlockSize))
			rkeys := gosthp.GetDecryptRoundKeys(gosthp.StretchKey(key))
			return func() int {
				block = gosthp.DoDecrypt(block, rkeys)
				return gosthp.BlockSize
			}, nil
		}},
		{"magma encrypt", blockBench(registry.Magma)},
		{"grasshopper-gcm 1MiB", func(reg *registry.Registry) (func() int, error) {
			block, err := reg.Cipher(registry.Grasshopper, randomBytes(32))
			if err != nil {
				return nil, err
			}
			aead, err := cipher.NewGCM(block)
			if err != nil {
				return nil, err
			}
			buf := randomBytes(1 << 20)
			nonce := randomBytes(aead.NonceSize())
			ad := []byte("TO: Seaport, agent Zorka")
			return func() int {
				sealed := aead.Seal(nil, nonce, buf, ad)
				if _, err := aead.Open(nil, nonce, sealed, ad); err != nil {
					panic(err)
				}
				return 2 * len(buf)
			}, nil
		}},
		{"streebog-256 64KiB", hashBench(registry.Streebog256)},
		{"streebog-512 64KiB", hashBench(registry.Streebog512)},
		{"cmac-magma 64KiB", macBench(registry.CMACMagma)},
		{"cmac-grasshopper 64KiB", macBench(registry.CMACGrasshopper)},
		{"gost r 34.10-2012 256-bit sign", signBench(gostecdsa.CurveCryptoProA)},
	}
}

func blockBench(name string) func(*registry.Registry) (func() int, error) {
	return func(reg *registry.Registry) (func() int, error) {
		block, err := reg.Cipher(name, randomBytes(32))
		if err != nil {
			return nil, err
		}
		buf := randomBytes(block.BlockSize())
		return func() int {
			block.Encrypt(buf, buf)
			return len(buf)
		}, nil
	}
}

func hashBench(name string) func(*registry.Registry) (func() int, error) {
	return func(reg *registry.Registry) (func() int, error) {
		h, err := reg.Hash(name)
		if err != nil {
			return nil, err
		}
		buf := randomBytes(64 << 10)
		return func() int {
			h.Reset()
			h.Write(buf)
			h.Sum(nil)
			return len(buf)
		}, nil
	}
}

func macBench(name string) func(*registry.Registry) (func() int, error) {
	return func(reg *registry.Registry) (func() int, error) {
		m, err := reg.MAC(name, randomBytes(32))
		if err != nil {
			return nil, err
		}
		buf := randomBytes(64 << 10)
		return func() int {
			m.Reset()
			m.Write(buf)
			m.Sum(nil)
			return len(buf)
		}, nil
	}
}

func signBench(curve func() *gostecdsa.Curve) func(*registry.Registry) (func() int, error) {
	return func(reg *registry.Registry) (func() int, error) {
		e, err := reg.Signer(registry.GostECDsa256)
		if err != nil {
			return nil, err
		}
		if err := e.GenerateKey(curve()); err != nil {
			return nil, err
		}
		hash := randomBytes(32)
		return func() int {
			if _, err := e.SignHash(hash); err != nil {
				panic(err)
			}
			return 0
		}, nil
	}
}

// Bench runs the benchmarks whose name is in only (all when only is empty)
// for d each.
func Bench(ctx context.Context, reg *registry.Registry, d time.Duration, only ...string) ([]Measurement, error) {
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}
	var out []Measurement
	for _, b := range Benchmarks() {
		if len(want) > 0 && !want[b.Name] {
			continue
		}
		op, err := b.Setup(reg)
		if err != nil {
			return out, errors.Wrap(err, b.Name)
		}
		out = append(out, loop(ctx, b.Name, d, op))
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
