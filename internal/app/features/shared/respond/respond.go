// Package respond writes the JSON envelope every API handler answers with:
//
//	{ "success": true,  "data": ... }
//	{ "success": false, "error": { "kind": "...", "subKind": "...", "message": "..." } }
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/limits"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	SubKind string `json:"subKind,omitempty"`
	Message string `json:"message"`
}

// Message is the data of responses that carry only a confirmation.
type Message struct {
	Message string `json:"message"`
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes 200 with data.
func OK(w http.ResponseWriter, data any) {
	write(w, http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(w http.ResponseWriter, data any) {
	write(w, http.StatusCreated, envelope{Success: true, Data: data})
}

// Done writes 200 with a confirmation message.
func Done(w http.ResponseWriter, msg string) {
	OK(w, Message{Message: msg})
}

// Error writes err with the status its kind maps to. Errors without a kind
// are logged and reported as a generic 500; their text never reaches the
// client.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	e, ok := apperr.As(err)
	if !ok {
		if log != nil {
			log.Error("unhandled error", zap.Error(err))
		}
		write(w, status, envelope{Error: &errorBody{Kind: "Internal", Message: "Server error"}})
		return
	}
	write(w, status, envelope{Error: &errorBody{Kind: string(e.Kind), SubKind: string(e.Sub), Message: e.Message}})
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
// Malformed JSON, unknown fields and oversized bodies are InvalidInput.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperr.Invalidf("Request body is too large.")
	}
	return apperr.Invalidf("Request body is not valid JSON: %v", err)
}

// TooManyRequests writes 429. The kind is Unavailable so clients treat it
// as retryable.
func TooManyRequests(w http.ResponseWriter, msg string) {
	write(w, http.StatusTooManyRequests, envelope{Error: &errorBody{Kind: string(apperr.Unavailable), Message: msg}})
}
