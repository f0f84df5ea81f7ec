package http

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/signature"
)

// ServiceKey is the private key operators sign with. Signing is serialised
// because an Engine is not safe for concurrent use.
type ServiceKey struct {
	mu        sync.Mutex
	desc      signature.Description
	formatter *signature.Formatter
	reg       *registry.Registry
	curve     string
	public    []byte
}

func NewServiceKey(reg *registry.Registry, engine *gostecdsa.Engine) (*ServiceKey, error) {
	if !engine.HasPrivateKey() {
		return nil, gostecdsa.ErrMissingPrivateKey
	}
	desc, err := signature.ForSize(gostecdsa.Size(engine.KeySize()))
	if err != nil {
		return nil, err
	}
	formatter, err := desc.CreateFormatter(reg, engine)
	if err != nil {
		return nil, err
	}
	p, err := engine.ExportParameters(false)
	if err != nil {
		return nil, err
	}
	public, err := p.Curve.EncodePoint(p.X, p.Y)
	if err != nil {
		return nil, err
	}
	return &ServiceKey{desc: desc, formatter: formatter, reg: reg, curve: p.Curve.Name, public: public}, nil
}

// Algorithm is the registry name of the key's signature algorithm.
func (k *ServiceKey) Algorithm() string { return k.desc.KeyAlgorithm }

func (k *ServiceKey) Curve() string { return k.curve }

// PublicKey returns x || y, little-endian.
func (k *ServiceKey) PublicKey() []byte { return append([]byte(nil), k.public...) }

// Digest hashes msg with the key's paired Streebog.
func (k *ServiceKey) Digest(msg []byte) ([]byte, error) {
	h, err := k.desc.CreateDigest(k.reg)
	if err != nil {
		return nil, err
	}
	h.Write(msg)
	return h.Sum(nil), nil
}

// Sign signs a pre-computed hash.
func (k *ServiceKey) Sign(hash []byte) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	sig, err := k.formatter.CreateSignature(hash)
	return sig, errors.Wrap(err, "service key")
}
