package main

import (
	"crypto/rand"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/utils"
)

const sealKeySize = 32

// generate returns the key file contents: a private scalar on curveName, or
// a Grasshopper sealing key when seal is set.
func generate(rnd io.Reader, curveName string, seal bool) ([]byte, error) {
	if seal {
		key := make([]byte, sealKeySize)
		if _, err := io.ReadFull(rnd, key); err != nil {
			return nil, errors.Wrap(err, "seal key")
		}
		return key, nil
	}

	curve, err := gostecdsa.CurveByName(curveName)
	if err != nil {
		return nil, err
	}
	size := gostecdsa.Size256
	if curve.PointSize() == gostecdsa.Size512.Bytes() {
		size = gostecdsa.Size512
	}
	e, err := gostecdsa.New(size, gostecdsa.WithRand(rnd))
	if err != nil {
		return nil, err
	}
	defer e.Close()
	if err := e.GenerateKey(curve); err != nil {
		return nil, err
	}
	p, err := e.ExportParameters(true)
	if err != nil {
		return nil, err
	}
	return curve.EncodeScalar(p.D)
}

func main() {
	curveName := pflag.String("curve", "cryptopro-a", "curve of the signing key")
	seal := pflag.Bool("seal", false, "write a 32-byte OTP sealing key instead")
	force := pflag.Bool("force", false, "overwrite an existing file")
	pflag.Parse()

	log := utils.Logger()
	if pflag.NArg() != 1 {
		log.Fatal().Msg("Specify filepath for the key")
	}
	path := pflag.Arg(0)

	key, err := generate(rand.Reader, *curveName, *seal)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate key")
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if *force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create key file")
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		log.Fatal().Err(err).Msg("failed to write key")
	}
	if err := f.Close(); err != nil {
		log.Fatal().Err(err).Msg("failed to write key")
	}

	event := log.Info().Str("path", path).Int("bytes", len(key))
	if !*seal {
		event = event.Str("curve", *curveName)
	}
	event.Msg("key written")
}
