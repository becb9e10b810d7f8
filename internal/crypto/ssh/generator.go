// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ssh generates and formats the ed25519 keypair used as the
// certificate authority key handed to ssh-keygen.
package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"strings"
)

// GenerateAndMarshalEd25519Key creates a fresh ed25519 keypair and returns
// the public key in authorized_keys format and the private key as an
// OpenSSH PEM block. The comment ends up in both halves.
func GenerateAndMarshalEd25519Key(comment string) (pubkey string, privkey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	sshPub, err := NewPublicKey(pub)
	if err != nil {
		return "", "", fmt.Errorf("failed to convert public key: %w", err)
	}
	pubLine := strings.TrimRight(string(MarshalAuthorizedKey(sshPub)), "\n")
	if comment != "" {
		pubLine = pubLine + " " + comment
	}

	block, err := MarshalEd25519PrivateKey(priv, comment)
	if err != nil {
		return "", "", err
	}

	return pubLine + "\n", string(pem.EncodeToMemory(block)), nil
}
