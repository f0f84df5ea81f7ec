package http

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/db"
	"github.com/liondandelion/opengost/internal/gostecdsa"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/signature"
	"github.com/liondandelion/opengost/internal/utils"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

type digestResponse struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

type macRequest struct {
	Key  string `json:"key"`
	Data string `json:"data"`
}

type macResponse struct {
	Algorithm string `json:"algorithm"`
	MAC       string `json:"mac"`
}

// hashOrMessage carries either a pre-computed hash or a message to hash
// with the paired Streebog, both hex. An empty message is a valid message.
type hashOrMessage struct {
	Hash    *string `json:"hash,omitempty"`
	Message *string `json:"message,omitempty"`
}

func (h hashOrMessage) check(where string) *APIError {
	if (h.Hash == nil) == (h.Message == nil) {
		return &APIError{where, "exactly one of hash or message is required", nil, http.StatusBadRequest}
	}
	return nil
}

type verifyRequest struct {
	hashOrMessage
	Curve     string `json:"curve"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

type signResponse struct {
	ID        int64  `json:"id"`
	Algorithm string `json:"algorithm"`
	Curve     string `json:"curve"`
	PublicKey string `json:"public_key"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
}

type keyResponse struct {
	Algorithm string `json:"algorithm"`
	Curve     string `json:"curve"`
	PublicKey string `json:"public_key"`
}

type signatureView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Algorithm string    `json:"algorithm"`
	Curve     string    `json:"curve"`
	Hash      string    `json:"hash"`
	Signature string    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

func Algorithms(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		WriteJSON(w, http.StatusOK, d.Registry.Names())
		return nil
	})
}

func Digest(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		alg := chi.URLParam(r, "alg")
		h, err := d.Registry.Hash(alg)
		if err != nil {
			return lookupError("Digest", alg, err)
		}
		body, apiErr := readBody(w, r, "Digest")
		if apiErr != nil {
			return apiErr
		}
		h.Write(body)
		info, _ := d.Registry.Lookup(alg)
		WriteJSON(w, http.StatusOK, digestResponse{info.FullName, hex.EncodeToString(h.Sum(nil))})
		return nil
	})
}

func MAC(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		alg := chi.URLParam(r, "alg")
		info, ok := d.Registry.Lookup(alg)
		if !ok {
			return lookupError("MAC", alg, registry.ErrUnknownAlgorithm)
		}
		if info.Kind != registry.KindMAC {
			return lookupError("MAC", alg, registry.ErrWrongKind)
		}

		var req macRequest
		if err := readJSON(w, r, "MAC", &req); err != nil {
			return err
		}
		key, apiErr := decodeHex("MAC", "key", req.Key)
		if apiErr != nil {
			return apiErr
		}
		data, apiErr := decodeHex("MAC", "data", req.Data)
		if apiErr != nil {
			return apiErr
		}

		m, err := d.Registry.MAC(alg, key)
		if err != nil {
			return &APIError{"MAC", "invalid key for " + info.Name, err, http.StatusBadRequest}
		}
		m.Write(data)
		WriteJSON(w, http.StatusOK, macResponse{info.FullName, hex.EncodeToString(m.Sum(nil))})
		return nil
	})
}

// Verify checks a signature under a caller-supplied public key. Input that
// parses but does not verify is a 200 with valid false.
func Verify(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		alg := chi.URLParam(r, "alg")
		engine, err := d.Registry.Signer(alg)
		if err != nil {
			return lookupError("Verify", alg, err)
		}
		defer engine.Close()

		var req verifyRequest
		if apiErr := readJSON(w, r, "Verify", &req); apiErr != nil {
			return apiErr
		}
		if apiErr := req.check("Verify"); apiErr != nil {
			return apiErr
		}

		curve, err := gostecdsa.CurveByName(req.Curve)
		if err != nil {
			return &APIError{"Verify", "unknown curve " + req.Curve, err, http.StatusBadRequest}
		}
		pub, apiErr := decodeHex("Verify", "public_key", req.PublicKey)
		if apiErr != nil {
			return apiErr
		}
		x, y, err := curve.DecodePoint(pub)
		if err != nil {
			return &APIError{"Verify", "invalid public key", err, http.StatusBadRequest}
		}
		if err := engine.ImportParameters(gostecdsa.Parameters{Curve: curve, X: x, Y: y}); err != nil {
			return &APIError{"Verify", "invalid public key for " + alg, err, http.StatusBadRequest}
		}
		sig, apiErr := decodeHex("Verify", "signature", req.Signature)
		if apiErr != nil {
			return apiErr
		}

		desc, err := signature.ForSize(gostecdsa.Size(engine.KeySize()))
		if err != nil {
			return &APIError{"Verify", "no description for key", err, http.StatusInternalServerError}
		}
		v, err := desc.CreateDeformatter(d.Registry, engine)
		if err != nil {
			return &APIError{"Verify", "failed to create deformatter", err, http.StatusInternalServerError}
		}

		var valid bool
		if req.Message != nil {
			msg, apiErr := decodeHex("Verify", "message", *req.Message)
			if apiErr != nil {
				return apiErr
			}
			valid, err = v.VerifyMessage(msg, sig)
		} else {
			hash, apiErr := decodeHex("Verify", "hash", *req.Hash)
			if apiErr != nil {
				return apiErr
			}
			valid, err = v.VerifySignature(hash, sig)
		}
		if err != nil {
			return &APIError{"Verify", "malformed hash or signature", err, http.StatusBadRequest}
		}

		WriteJSON(w, http.StatusOK, verifyResponse{valid})
		return nil
	})
}

func ServiceKeyInfo(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		WriteJSON(w, http.StatusOK, keyResponse{
			Algorithm: d.Key.Algorithm(),
			Curve:     d.Key.Curve(),
			PublicKey: hex.EncodeToString(d.Key.PublicKey()),
		})
		return nil
	})
}

// Sign signs with the service key and journals the signature.
func Sign(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		alg := chi.URLParam(r, "alg")
		info, ok := d.Registry.Lookup(alg)
		if !ok {
			return lookupError("Sign", alg, registry.ErrUnknownAlgorithm)
		}
		if info.Kind != registry.KindSigner {
			return lookupError("Sign", alg, registry.ErrWrongKind)
		}
		if info.FullName != d.Key.Algorithm() {
			return &APIError{"Sign", "the service key is " + d.Key.Algorithm(), nil, http.StatusBadRequest}
		}

		var req hashOrMessage
		if apiErr := readJSON(w, r, "Sign", &req); apiErr != nil {
			return apiErr
		}
		if apiErr := req.check("Sign"); apiErr != nil {
			return apiErr
		}

		var hash []byte
		if req.Message != nil {
			msg, apiErr := decodeHex("Sign", "message", *req.Message)
			if apiErr != nil {
				return apiErr
			}
			var err error
			if hash, err = d.Key.Digest(msg); err != nil {
				return &APIError{"Sign", "failed to hash message", err, http.StatusInternalServerError}
			}
		} else {
			var apiErr *APIError
			if hash, apiErr = decodeHex("Sign", "hash", *req.Hash); apiErr != nil {
				return apiErr
			}
		}

		sig, err := d.Key.Sign(hash)
		if errors.Is(err, gostecdsa.ErrInvalidHashSize) {
			return &APIError{"Sign", "hash has the wrong length", err, http.StatusBadRequest}
		}
		if err != nil {
			return &APIError{"Sign", "failed to sign", err, http.StatusInternalServerError}
		}

		user := d.Sessions.UserDataGet(r.Context())
		rec := db.SignatureRecord{
			Username:  user.Username,
			Algorithm: d.Key.Algorithm(),
			Curve:     d.Key.Curve(),
			Hash:      hash,
			Signature: sig,
		}
		id, err := d.Store.SignatureInsert(r.Context(), rec)
		if err != nil {
			return &APIError{"Sign", "failed to journal signature", err, http.StatusInternalServerError}
		}

		utils.Logger().Info().Int64("id", id).Str("username", user.Username).Str("algorithm", rec.Algorithm).Msg("signed")
		WriteJSON(w, http.StatusOK, signResponse{
			ID:        id,
			Algorithm: rec.Algorithm,
			Curve:     rec.Curve,
			PublicKey: hex.EncodeToString(d.Key.PublicKey()),
			Hash:      hex.EncodeToString(hash),
			Signature: hex.EncodeToString(sig),
		})
		return nil
	})
}

func Signatures(d Deps) http.Handler {
	return APIHandler(func(w http.ResponseWriter, r *http.Request) *APIError {
		limit := defaultJournalLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxJournalLimit {
				return &APIError{"Signatures", "limit must be between 1 and " + strconv.Itoa(maxJournalLimit), err, http.StatusBadRequest}
			}
			limit = n
		}

		recs, err := d.Store.SignatureList(r.Context(), limit)
		if err != nil {
			return &APIError{"Signatures", "failed to collect rows", err, http.StatusInternalServerError}
		}
		views := make([]signatureView, len(recs))
		for i, rec := range recs {
			views[i] = signatureView{
				ID:        rec.ID,
				Username:  rec.Username,
				Algorithm: rec.Algorithm,
				Curve:     rec.Curve,
				Hash:      hex.EncodeToString(rec.Hash),
				Signature: hex.EncodeToString(rec.Signature),
				CreatedAt: rec.CreatedAt,
			}
		}
		WriteJSON(w, http.StatusOK, views)
		return nil
	})
}
