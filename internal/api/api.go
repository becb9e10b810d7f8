// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package api exposes the issuance and login-gate HTTP surface. The
// authorization endpoints render line-oriented text for direct consumption
// by sshd's AuthorizedPrincipalsCommand and RevokedKeys machinery; the
// issuance and revocation endpoints speak JSON.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/issue"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	store  db.Store
	issuer *issue.Issuer
}

// New creates a new API instance.
func New(store db.Store, issuer *issue.Issuer) *API {
	return &API{store: store, issuer: issuer}
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/authorized-principals", a.AuthorizedPrincipals)
	r.Post("/sign", a.Sign)
	r.Post("/revoke", a.Revoke)
	r.Get("/revoked_keys", a.RevokedKeys)

	return r
}

// Health is mounted outside the /api/v1 prefix by the server command.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
