// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/issue"
	"github.com/toeirei/certmaster/internal/signer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: msg})
}

// mapError translates the issuance taxonomy to HTTP statuses. Unknown or
// inactive users get 403 (matching the shape existing clients expect), and
// signing failures keep the tool's diagnostic output in the message.
func mapError(w http.ResponseWriter, err error) {
	var sigErr *signer.Error
	switch {
	case errors.Is(err, issue.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, issue.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, issue.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, issue.ErrIssuanceConflict):
		writeError(w, http.StatusConflict, "issuance_conflict", err.Error())
	case errors.Is(err, issue.ErrAllocatorExhausted):
		writeError(w, http.StatusInternalServerError, "allocator_exhausted", err.Error())
	case errors.As(err, &sigErr):
		writeError(w, http.StatusInternalServerError, "signing_failed", sigErr.Error())
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
