// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package api

// SignRequest is the issuance API payload.
type SignRequest struct {
	Username   string   `json:"username"`
	Principals []string `json:"principals"`
	Pubkey     string   `json:"pubkey"`
	TTL        string   `json:"ttl,omitempty"`
	KeyID      string   `json:"key_id,omitempty"`
}

// SignResponse is returned on successful issuance.
type SignResponse struct {
	KeyID  string `json:"key_id"`
	Serial int64  `json:"serial"`
	Cert   string `json:"cert"`
}

// RevokeRequest identifies the certificate to revoke by serial.
type RevokeRequest struct {
	Serial int64 `json:"serial"`
}

// RevokeResponse acknowledges a revocation.
type RevokeResponse struct {
	Status string `json:"status"`
	Serial int64  `json:"serial"`
}

// ErrorResponse carries a machine-readable error code and a human message.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
