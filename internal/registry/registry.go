// Package registry maps algorithm names and OIDs to constructors.
//
// A Registry is built once at start-up and handed to whatever needs name
// lookups; there is no package-level instance. Lookups are case-insensitive
// and accept the short name, the full name (FullNamePrefix + short name) or
// the OID.
package registry

import (
	"crypto/cipher"
	"hash"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/cmac"
	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/gosthp"
	"github.com/liondandelion/opengost/internal/magma"
	"github.com/liondandelion/opengost/internal/streebog"
)

// FullNamePrefix qualifies short names into full algorithm names.
const FullNamePrefix = "OpenGost.Security.Cryptography."

// Short names of the algorithms in Default.
const (
	Streebog256     = "Streebog256"
	Streebog512     = "Streebog512"
	HMACStreebog256 = "HMACStreebog256"
	HMACStreebog512 = "HMACStreebog512"
	Magma           = "Magma"
	Grasshopper     = "Grasshopper"
	CMACMagma       = "CMACMagma"
	CMACGrasshopper = "CMACGrasshopper"
	GostECDsa256    = "GostECDsa256"
	GostECDsa512    = "GostECDsa512"
)

var (
	ErrUnknownAlgorithm = errors.New("registry: unknown algorithm")
	ErrWrongKind        = errors.New("registry: algorithm is of another kind")
	ErrDuplicate        = errors.New("registry: name or oid already registered")
)

// Kind classifies a registered algorithm.
type Kind int

const (
	KindHash Kind = iota
	KindCipher
	KindMAC
	KindSigner
)

func (k Kind) String() string {
	switch k {
	case KindHash:
		return "hash"
	case KindCipher:
		return "cipher"
	case KindMAC:
		return "mac"
	case KindSigner:
		return "signer"
	}
	return "unknown"
}

// MarshalText lets Kind appear by name in JSON.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MACFunc builds a keyed hash.
type MACFunc func(key []byte) (hash.Hash, error)

// Info describes one registered algorithm.
type Info struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	OID      string `json:"oid,omitempty"`
	Kind     Kind   `json:"kind"`
	// Digest names the paired hash of a signer.
	Digest string `json:"digest,omitempty"`
	// Cipher names the block cipher a CMAC runs over.
	Cipher string `json:"cipher,omitempty"`
}

type entry struct {
	Info
	hash   func() hash.Hash
	cipher cmac.CipherFunc
	mac    MACFunc
	size   gostecdsa.Size
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]*entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[string]*entry)}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) add(e *entry) error {
	keys := []string{normalize(e.Name), normalize(FullNamePrefix + e.Name)}
	if e.OID != "" {
		keys = append(keys, e.OID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		if _, ok := r.index[k]; ok {
			return errors.Wrapf(ErrDuplicate, "%q", k)
		}
	}
	e.FullName = FullNamePrefix + e.Name
	for _, k := range keys {
		r.index[k] = e
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *Registry) RegisterHash(name, oid string, fn func() hash.Hash) error {
	return r.add(&entry{Info: Info{Name: name, OID: oid, Kind: KindHash}, hash: fn})
}

func (r *Registry) RegisterCipher(name, oid string, fn cmac.CipherFunc) error {
	return r.add(&entry{Info: Info{Name: name, OID: oid, Kind: KindCipher}, cipher: fn})
}

func (r *Registry) RegisterMAC(name, oid string, fn MACFunc) error {
	return r.add(&entry{Info: Info{Name: name, OID: oid, Kind: KindMAC}, mac: fn})
}

// RegisterCMAC adds a CMAC over the cipher registered as cipherName. The
// cipher is resolved on every MAC call, so it follows that registration.
func (r *Registry) RegisterCMAC(name, oid, cipherName string) error {
	return r.add(&entry{Info: Info{Name: name, OID: oid, Kind: KindMAC, Cipher: cipherName}})
}

// RegisterSigner adds a GOST R 34.10-2012 signer of the given key size,
// paired with the hash registered as digest.
func (r *Registry) RegisterSigner(name, oid string, size gostecdsa.Size, digest string) error {
	return r.add(&entry{Info: Info{Name: name, OID: oid, Kind: KindSigner, Digest: digest}, size: size})
}

func (r *Registry) lookup(name string, kind Kind) (*entry, error) {
	r.mu.RLock()
	e, ok := r.index[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
	}
	if e.Kind != kind {
		return nil, errors.Wrapf(ErrWrongKind, "%s is a %s, not a %s", e.Name, e.Kind, kind)
	}
	return e, nil
}

// Hash returns a new instance of the named hash.
func (r *Registry) Hash(name string) (hash.Hash, error) {
	e, err := r.lookup(name, KindHash)
	if err != nil {
		return nil, err
	}
	return e.hash(), nil
}

// Cipher returns the named block cipher keyed with key.
func (r *Registry) Cipher(name string, key []byte) (cipher.Block, error) {
	e, err := r.lookup(name, KindCipher)
	if err != nil {
		return nil, err
	}
	return e.cipher(key)
}

// CipherFunc returns the constructor of the named block cipher.
func (r *Registry) CipherFunc(name string) (cmac.CipherFunc, error) {
	e, err := r.lookup(name, KindCipher)
	if err != nil {
		return nil, err
	}
	return e.cipher, nil
}

// MAC returns the named keyed hash.
func (r *Registry) MAC(name string, key []byte) (hash.Hash, error) {
	e, err := r.lookup(name, KindMAC)
	if err != nil {
		return nil, err
	}
	if e.mac != nil {
		return e.mac(key)
	}
	newCipher, err := r.CipherFunc(e.Cipher)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", e.Name)
	}
	m, err := cmac.NewWithCipher(newCipher, key)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Signer returns an unkeyed signature engine of the named size.
func (r *Registry) Signer(name string, opts ...gostecdsa.Option) (*gostecdsa.Engine, error) {
	e, err := r.lookup(name, KindSigner)
	if err != nil {
		return nil, err
	}
	return gostecdsa.New(e.size, opts...)
}

// SignerDigest returns the name of the hash paired with the named signer.
func (r *Registry) SignerDigest(name string) (string, error) {
	e, err := r.lookup(name, KindSigner)
	if err != nil {
		return "", err
	}
	return e.Digest, nil
}

// MapNameToOID returns the OID registered for name, or "" if there is none.
func (r *Registry) MapNameToOID(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.index[normalize(name)]; ok {
		return e.OID
	}
	return ""
}

// Lookup returns the description of a registered algorithm.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[normalize(name)]
	if !ok {
		return Info{}, false
	}
	return e.Info, true
}

// Names lists every registered algorithm sorted by kind, then name.
func (r *Registry) Names() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Default returns a Registry holding every algorithm of the kit.
func Default() *Registry {
	r := New()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.RegisterHash(Streebog256, "1.2.643.7.1.1.2.2", streebog.New256))
	must(r.RegisterHash(Streebog512, "1.2.643.7.1.1.2.3", streebog.New512))
	must(r.RegisterMAC(HMACStreebog256, "1.2.643.7.1.1.4.1", func(key []byte) (hash.Hash, error) {
		return streebog.NewHMAC256(key), nil
	}))
	must(r.RegisterMAC(HMACStreebog512, "1.2.643.7.1.1.4.2", func(key []byte) (hash.Hash, error) {
		return streebog.NewHMAC512(key), nil
	}))
	must(r.RegisterCipher(Magma, "1.2.643.7.1.1.5.1", magma.NewCipher))
	must(r.RegisterCipher(Grasshopper, "1.2.643.7.1.1.5.2", gosthp.NewCipher))
	must(r.RegisterCMAC(CMACMagma, "", Magma))
	must(r.RegisterCMAC(CMACGrasshopper, "", Grasshopper))
	must(r.RegisterSigner(GostECDsa256, "1.2.643.7.1.1.1.1", gostecdsa.Size256, Streebog256))
	must(r.RegisterSigner(GostECDsa512, "1.2.643.7.1.1.1.2", gostecdsa.Size512, Streebog512))
	return r
}
