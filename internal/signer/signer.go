// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package signer wraps the external ssh-keygen process that turns a validated
// public key into a signed user certificate.
package signer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Request carries the validated parameters for one signing operation.
// Principals are passed in the order the issuer validated them; the signer
// never reorders or filters.
type Request struct {
	KeyID      string
	Principals []string
	Validity   string // relative validity, e.g. "+16h"
	Serial     int64
	PublicKey  string // normalized authorized_keys line, newline-terminated
}

// Signer signs a public key into a certificate.
type Signer interface {
	Sign(ctx context.Context, req Request) (cert string, err error)
}

// Error is returned when the signing tool fails. Diagnostic carries the
// tool's combined output so operators can see what ssh-keygen complained
// about.
type Error struct {
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("signing failed: %v: %s", e.Err, strings.TrimSpace(e.Diagnostic))
	}
	return fmt.Sprintf("signing failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// restrictionFlags disable agent/X11/port forwarding, pty allocation and
// user-rc execution on every certificate. This is a fixed security posture,
// not configurable per request.
var restrictionFlags = []string{
	"-O", "no-agent-forwarding",
	"-O", "no-pty",
	"-O", "no-user-rc",
	"-O", "no-x11-forwarding",
	"-O", "no-port-forwarding",
}

// DefaultTimeout bounds one ssh-keygen invocation.
const DefaultTimeout = 10 * time.Second

// KeygenSigner invokes ssh-keygen with the operator's CA key.
type KeygenSigner struct {
	CAKeyPath string
	Binary    string        // defaults to "ssh-keygen"
	Timeout   time.Duration // defaults to DefaultTimeout
}

// Sign materializes the public key into an exclusively-owned temporary
// directory, runs ssh-keygen and reads back the produced certificate. The
// temporary artifacts are removed on every exit path.
func (s *KeygenSigner) Sign(ctx context.Context, req Request) (string, error) {
	dir, err := os.MkdirTemp("", "certmaster-sign-")
	if err != nil {
		return "", fmt.Errorf("failed to create signing workspace: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	pubPath := filepath.Join(dir, "key.pub")
	if err := os.WriteFile(pubPath, []byte(req.PublicKey), 0o600); err != nil {
		return "", fmt.Errorf("failed to write public key: %w", err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := s.Binary
	if binary == "" {
		binary = "ssh-keygen"
	}

	args := []string{
		"-s", s.CAKeyPath,
		"-I", req.KeyID,
		"-n", strings.Join(req.Principals, ","),
		"-V", req.Validity,
		"-z", strconv.FormatInt(req.Serial, 10),
	}
	args = append(args, restrictionFlags...)
	args = append(args, pubPath)

	cmd := exec.CommandContext(ctx, binary, args...)
	// Without a wait delay, descendants of the tool can hold the output pipes
	// open and keep CombinedOutput blocked long after the context killed the
	// direct child. The deadline must bound the whole call.
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &Error{Diagnostic: string(out), Err: err}
	}

	cert, err := os.ReadFile(pubPath + "-cert.pub")
	if err != nil {
		return "", &Error{Diagnostic: string(out), Err: fmt.Errorf("certificate file not produced: %w", err)}
	}
	return strings.TrimSpace(string(cert)), nil
}
