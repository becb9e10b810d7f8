// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/toeirei/certmaster/internal/authz"
	"github.com/toeirei/certmaster/internal/issue"
	"github.com/toeirei/certmaster/internal/logging"
)

// AuthorizedPrincipals renders the login-gate allow-list: one principal per
// line, lexicographically sorted, newline-terminated. Unknown users or hosts
// produce an empty 200 body; the login gate treats empty as deny-all, and a
// noisy error here would itself be an availability risk.
func (a *API) AuthorizedPrincipals(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	host := r.URL.Query().Get("host")

	allowed, err := authz.AuthorizedPrincipals(a.store, user, host)
	if err != nil {
		logging.Errorf("api: authorized-principals query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "query failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, p := range allowed {
		fmt.Fprintf(w, "%s\n", p)
	}
}

// Sign issues a certificate for the requested principals.
func (a *API) Sign(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	res, err := a.issuer.Issue(r.Context(), issue.Request{
		Username:   req.Username,
		Principals: req.Principals,
		PublicKey:  req.Pubkey,
		TTL:        req.TTL,
		KeyID:      req.KeyID,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SignResponse{KeyID: res.KeyID, Serial: res.Serial, Cert: res.Certificate})
}

// Revoke marks an issued certificate revoked by serial. Revoking an
// already-revoked serial succeeds.
func (a *API) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := a.store.RevokeSerial(req.Serial); err != nil {
		mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RevokeResponse{Status: "revoked", Serial: req.Serial})
}

// RevokedKeys renders the revocation feed in the format sshd's RevokedKeys
// trust-store machinery consumes: "@revoked serial:<n>", ascending.
func (a *API) RevokedKeys(w http.ResponseWriter, r *http.Request) {
	serials, err := a.store.RevokedSerials()
	if err != nil {
		logging.Errorf("api: revoked_keys query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "query failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, s := range serials {
		fmt.Fprintf(w, "@revoked serial:%d\n", s)
	}
}
