// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package signer

import (
	"context"
	"errors"
)

// Fake is a Signer for tests. It records every request and either returns
// Cert or fails with the configured diagnostic.
type Fake struct {
	Cert       string
	Fail       bool
	Diagnostic string
	Requests   []Request
}

// Sign implements Signer.
func (f *Fake) Sign(_ context.Context, req Request) (string, error) {
	f.Requests = append(f.Requests, req)
	if f.Fail {
		return "", &Error{Diagnostic: f.Diagnostic, Err: errors.New("exit status 1")}
	}
	if f.Cert != "" {
		return f.Cert, nil
	}
	return "ssh-ed25519-cert-v01@openssh.com AAAAfake", nil
}
