// Package http holds the JSON handlers of the opengost service.
package http

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/liondandelion/opengost/internal/config"
	"github.com/liondandelion/opengost/internal/db"
	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/utils"
)

// maxBodySize caps every request body.
const maxBodySize = 16 << 20

// Deps is everything the handlers share.
type Deps struct {
	Store    db.Store
	Sessions db.Sessions
	Sealer   *Sealer
	Registry *registry.Registry
	Key      *ServiceKey
	Config   config.Config
}

type APIError struct {
	Where  string
	What   string
	Err    error
	Status int
}

type APIHandler func(http.ResponseWriter, *http.Request) *APIError

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Where, e.What, e.Err)
}

func (fn APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := fn(w, r)
	if err == nil {
		return
	}

	log := utils.Logger()
	event := log.Warn()
	if err.Status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Str("where", err.Where).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", err.Status).
		Err(err.Err).
		Msg(err.What)

	// Internal failures are not described to the client.
	message := err.What
	if err.Status >= http.StatusInternalServerError {
		message = http.StatusText(err.Status)
	}
	WriteJSON(w, err.Status, ErrorResponse{Error: message})
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Logger().Warn().Err(err).Msg("failed to write response")
	}
}

// readJSON decodes a bounded request body into v, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, where string, v any) *APIError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &APIError{where, "malformed json body", err, http.StatusBadRequest}
	}
	if dec.More() {
		return &APIError{where, "malformed json body", errors.New("trailing data"), http.StatusBadRequest}
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request, where string) ([]byte, *APIError) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, &APIError{where, "failed to read body", err, http.StatusRequestEntityTooLarge}
	}
	return body, nil
}

// decodeHex decodes a hex field; field names the value in the error.
func decodeHex(where, field, s string) ([]byte, *APIError) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, &APIError{where, field + " is not valid hex", err, http.StatusBadRequest}
	}
	return b, nil
}

// lookupError maps a registry lookup failure to a status.
func lookupError(where, name string, err error) *APIError {
	if errors.Is(err, registry.ErrUnknownAlgorithm) {
		return &APIError{where, "unknown algorithm " + name, err, http.StatusNotFound}
	}
	return &APIError{where, "algorithm " + name + " cannot be used here", err, http.StatusBadRequest}
}
