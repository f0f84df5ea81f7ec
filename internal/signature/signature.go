// Package signature pairs GOST R 34.10-2012 keys with their Streebog digest:
// descriptions of the pairing, and formatters and deformatters that sign and
// verify hashes through a signature engine.
package signature

import (
	"hash"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/registry"
)

var (
	ErrMissingKey    = errors.New("signature: missing key")
	ErrKeySize       = errors.New("signature: key size does not match formatter")
	ErrHashAlgorithm = errors.New("signature: hash algorithm does not match key")
)

// Description names the algorithms that make up one signature scheme.
type Description struct {
	Size                 gostecdsa.Size
	KeyAlgorithm         string
	DigestAlgorithm      string
	FormatterAlgorithm   string
	DeformatterAlgorithm string
}

func describe(size gostecdsa.Size, key, digest string) Description {
	return Description{
		Size:                 size,
		KeyAlgorithm:         registry.FullNamePrefix + key,
		DigestAlgorithm:      registry.FullNamePrefix + digest,
		FormatterAlgorithm:   registry.FullNamePrefix + key + "SignatureFormatter",
		DeformatterAlgorithm: registry.FullNamePrefix + key + "SignatureDeformatter",
	}
}

// Description256 describes 256-bit signatures over Streebog-256.
func Description256() Description {
	return describe(gostecdsa.Size256, registry.GostECDsa256, registry.Streebog256)
}

// Description512 describes 512-bit signatures over Streebog-512.
func Description512() Description {
	return describe(gostecdsa.Size512, registry.GostECDsa512, registry.Streebog512)
}

// ForSize returns the description for a key size.
func ForSize(size gostecdsa.Size) (Description, error) {
	switch size {
	case gostecdsa.Size256:
		return Description256(), nil
	case gostecdsa.Size512:
		return Description512(), nil
	}
	return Description{}, gostecdsa.ErrUnsupportedKeySize
}

// CreateDigest returns a fresh instance of the paired hash.
func (d Description) CreateDigest(reg *registry.Registry) (hash.Hash, error) {
	return reg.Hash(d.DigestAlgorithm)
}

// CreateFormatter returns a Formatter bound to key.
func (d Description) CreateFormatter(reg *registry.Registry, key *gostecdsa.Engine) (*Formatter, error) {
	f := NewFormatter(reg, d)
	if err := f.SetKey(key); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateDeformatter returns a Deformatter bound to key.
func (d Description) CreateDeformatter(reg *registry.Registry, key *gostecdsa.Engine) (*Deformatter, error) {
	v := NewDeformatter(reg, d)
	if err := v.SetKey(key); err != nil {
		return nil, err
	}
	return v, nil
}

// binding is the state formatters and deformatters share.
type binding struct {
	reg  *registry.Registry
	desc Description
	oid  string
	key  *gostecdsa.Engine
}

func newBinding(reg *registry.Registry, d Description) binding {
	return binding{reg: reg, desc: d, oid: reg.MapNameToOID(d.DigestAlgorithm)}
}

func (b *binding) SetKey(key *gostecdsa.Engine) error {
	if key == nil {
		return ErrMissingKey
	}
	if key.KeySize() != int(b.desc.Size) {
		return errors.Wrapf(ErrKeySize, "%d-bit key, want %d", key.KeySize(), b.desc.Size)
	}
	b.key = key
	return nil
}

// SetHashAlgorithm accepts only names that map to the paired digest's OID.
func (b *binding) SetHashAlgorithm(name string) error {
	if b.oid == "" || b.reg.MapNameToOID(name) != b.oid {
		return errors.Wrapf(ErrHashAlgorithm, "%q", name)
	}
	return nil
}

func (b *binding) digest(msg []byte) ([]byte, error) {
	h, err := b.desc.CreateDigest(b.reg)
	if err != nil {
		return nil, err
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// Formatter creates signatures.
type Formatter struct {
	binding
}

func NewFormatter(reg *registry.Registry, d Description) *Formatter {
	return &Formatter{newBinding(reg, d)}
}

// CreateSignature signs a pre-computed hash.
func (f *Formatter) CreateSignature(h []byte) ([]byte, error) {
	if h == nil {
		return nil, gostecdsa.ErrNilHash
	}
	if f.key == nil {
		return nil, ErrMissingKey
	}
	return f.key.SignHash(h)
}

// SignMessage hashes msg with the paired digest and signs the result.
func (f *Formatter) SignMessage(msg []byte) ([]byte, error) {
	if f.key == nil {
		return nil, ErrMissingKey
	}
	h, err := f.digest(msg)
	if err != nil {
		return nil, err
	}
	return f.key.SignHash(h)
}

// Deformatter verifies signatures.
type Deformatter struct {
	binding
}

func NewDeformatter(reg *registry.Registry, d Description) *Deformatter {
	return &Deformatter{newBinding(reg, d)}
}

// VerifySignature checks a signature over a pre-computed hash.
func (v *Deformatter) VerifySignature(h, sig []byte) (bool, error) {
	if h == nil {
		return false, gostecdsa.ErrNilHash
	}
	if sig == nil {
		return false, gostecdsa.ErrNilSignature
	}
	if v.key == nil {
		return false, ErrMissingKey
	}
	return v.key.VerifyHash(h, sig)
}

// VerifyMessage hashes msg with the paired digest and checks sig against it.
func (v *Deformatter) VerifyMessage(msg, sig []byte) (bool, error) {
	if v.key == nil {
		return false, ErrMissingKey
	}
	h, err := v.digest(msg)
	if err != nil {
		return false, err
	}
	return v.key.VerifyHash(h, sig)
}
