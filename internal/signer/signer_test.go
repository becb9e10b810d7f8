// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package signer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeStub drops an executable shell script standing in for ssh-keygen.
func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-keygen")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}
	return path
}

func TestKeygenSignerSign(t *testing.T) {
	argsOut := filepath.Join(t.TempDir(), "args.txt")
	t.Setenv("SIGNER_TEST_ARGS", argsOut)

	// The public key path is the final argument; the tool writes the
	// certificate next to it.
	stub := writeStub(t, `printf '%s\n' "$@" > "$SIGNER_TEST_ARGS"
for arg in "$@"; do last="$arg"; done
echo "ssh-ed25519-cert-v01@openssh.com AAAAtest" > "${last}-cert.pub"
`)

	s := &KeygenSigner{CAKeyPath: "/keys/ssh_user_ca", Binary: stub}
	cert, err := s.Sign(context.Background(), Request{
		KeyID:      "alice-1748800000",
		Principals: []string{"web", "db"},
		Validity:   "+16h",
		Serial:     42,
		PublicKey:  "ssh-ed25519 AAAA alice@box\n",
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if cert != "ssh-ed25519-cert-v01@openssh.com AAAAtest" {
		t.Errorf("unexpected certificate: %q", cert)
	}

	raw, err := os.ReadFile(argsOut)
	if err != nil {
		t.Fatalf("stub did not record args: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")

	want := []string{
		"-s", "/keys/ssh_user_ca",
		"-I", "alice-1748800000",
		"-n", "web,db",
		"-V", "+16h",
		"-z", "42",
		"-O", "no-agent-forwarding",
		"-O", "no-pty",
		"-O", "no-user-rc",
		"-O", "no-x11-forwarding",
		"-O", "no-port-forwarding",
	}
	if len(args) != len(want)+1 {
		t.Fatalf("got %d args, want %d: %v", len(args), len(want)+1, args)
	}
	for i, w := range want {
		if args[i] != w {
			t.Errorf("arg %d = %q, want %q", i, args[i], w)
		}
	}
	if !strings.HasSuffix(args[len(args)-1], "key.pub") {
		t.Errorf("last arg should be the public key path, got %q", args[len(args)-1])
	}
}

func TestKeygenSignerFailureCarriesDiagnostic(t *testing.T) {
	stub := writeStub(t, `echo "Load key \"/keys/ssh_user_ca\": No such file or directory" >&2
exit 1
`)
	s := &KeygenSigner{CAKeyPath: "/keys/ssh_user_ca", Binary: stub}
	_, err := s.Sign(context.Background(), Request{
		KeyID:      "k",
		Principals: []string{"web"},
		Validity:   "+1h",
		Serial:     1,
		PublicKey:  "ssh-ed25519 AAAA\n",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var sigErr *Error
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !strings.Contains(sigErr.Diagnostic, "No such file or directory") {
		t.Errorf("diagnostic missing tool output: %q", sigErr.Diagnostic)
	}
}

func TestKeygenSignerMissingCertFile(t *testing.T) {
	// Tool exits zero but produces nothing.
	stub := writeStub(t, "exit 0\n")
	s := &KeygenSigner{CAKeyPath: "/keys/ca", Binary: stub}
	_, err := s.Sign(context.Background(), Request{
		KeyID: "k", Principals: []string{"web"}, Validity: "+1h", Serial: 1,
		PublicKey: "ssh-ed25519 AAAA\n",
	})
	var sigErr *Error
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestKeygenSignerTimeout(t *testing.T) {
	// The background sleep outlives the killed shell and keeps the output
	// pipes open; the deadline must still bound the whole Sign call.
	stub := writeStub(t, "sleep 5 &\nwait\n")
	s := &KeygenSigner{CAKeyPath: "/keys/ca", Binary: stub, Timeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := s.Sign(context.Background(), Request{
		KeyID: "k", Principals: []string{"web"}, Validity: "+1h", Serial: 1,
		PublicKey: "ssh-ed25519 AAAA\n",
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout not enforced, Sign took %s", elapsed)
	}
}
