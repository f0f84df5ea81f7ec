package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/gostecdsa"
)

// loadSignKey reads a private scalar written by genkey and binds it on the
// named curve.
func loadSignKey(path, curveName string) (*gostecdsa.Engine, error) {
	curve, err := gostecdsa.CurveByName(curveName)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "sign key")
	}
	d, err := curve.DecodeScalar(b)
	if err != nil {
		return nil, errors.Wrapf(err, "sign key %s", path)
	}

	size := gostecdsa.Size256
	if curve.PointSize() == gostecdsa.Size512.Bytes() {
		size = gostecdsa.Size512
	}
	e, err := gostecdsa.New(size)
	if err != nil {
		return nil, err
	}
	if err := e.ImportParameters(gostecdsa.Parameters{Curve: curve, D: d}); err != nil {
		return nil, errors.Wrapf(err, "sign key %s", path)
	}
	return e, nil
}

func loadSealKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "seal key")
	}
	if len(b) != 32 {
		return nil, errors.Errorf("seal key %s: %d bytes, want 32", path, len(b))
	}
	return b, nil
}
