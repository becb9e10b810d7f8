// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package ssh

import (
	"encoding/pem"
	"strings"
	"testing"

	xssh "golang.org/x/crypto/ssh"
)

func TestGenerateAndMarshalEd25519Key(t *testing.T) {
	pub, priv, err := GenerateAndMarshalEd25519Key("certmaster-ca")
	if err != nil {
		t.Fatalf("GenerateAndMarshalEd25519Key failed: %v", err)
	}
	if !strings.HasPrefix(pub, "ssh-ed25519 ") {
		t.Errorf("unexpected public key format: %q", pub)
	}
	if !strings.HasSuffix(pub, "\n") {
		t.Error("public key should be newline-terminated")
	}

	pk, comment, _, _, err := xssh.ParseAuthorizedKey([]byte(pub))
	if err != nil {
		t.Fatalf("ParseAuthorizedKey failed: %v", err)
	}
	if pk == nil {
		t.Fatal("parsed public key is nil")
	}
	if comment != "certmaster-ca" {
		t.Errorf("unexpected comment: got %q want %q", comment, "certmaster-ca")
	}

	block, _ := pem.Decode([]byte(priv))
	if block == nil {
		t.Fatal("private key is not valid PEM")
	}
	signer, err := xssh.ParsePrivateKey([]byte(priv))
	if err != nil {
		t.Fatalf("ParsePrivateKey failed: %v", err)
	}
	if signer.PublicKey().Type() != "ssh-ed25519" {
		t.Errorf("unexpected key type: %s", signer.PublicKey().Type())
	}
}

func TestGenerateAndMarshalEd25519KeyNoComment(t *testing.T) {
	pub, _, err := GenerateAndMarshalEd25519Key("")
	if err != nil {
		t.Fatalf("GenerateAndMarshalEd25519Key failed: %v", err)
	}
	if _, _, _, _, err := xssh.ParseAuthorizedKey([]byte(pub)); err != nil {
		t.Fatalf("ParseAuthorizedKey failed: %v", err)
	}
}
