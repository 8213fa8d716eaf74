package api

import (
	"encoding/json"
	"net/http"
)

// Kind classifies an AppError for HTTP status mapping.
type Kind int

const (
	KindBadRequest Kind = iota
	KindNotFound
	KindExecution
	KindInternal
	KindUnauthorized
)

// AppError is the single error type every handler returns up the call
// stack; writeError maps Kind to an HTTP status.
type AppError struct {
	Kind    Kind
	Message string
}

func (e *AppError) Error() string { return e.Message }

func badRequest(msg string) *AppError  { return &AppError{Kind: KindBadRequest, Message: msg} }
func notFound(msg string) *AppError    { return &AppError{Kind: KindNotFound, Message: msg} }
func execution(msg string) *AppError   { return &AppError{Kind: KindExecution, Message: msg} }
func internal(msg string) *AppError    { return &AppError{Kind: KindInternal, Message: msg} }

func statusFor(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExecution:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to the right HTTP status and writes the standard
// {"ok":false,"error":message} body. Non-AppError values are treated as
// Internal.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = internal(err.Error())
	}
	writeJSON(w, statusFor(appErr.Kind), map[string]any{"ok": false, "error": appErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
