// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cryptossh "github.com/toeirei/certmaster/internal/crypto/ssh"
	"github.com/toeirei/certmaster/internal/db"
)

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Manage the certificate authority key",
}

// caKeygenCmd writes a fresh ed25519 CA keypair to the configured
// signer.ca_key path. Refuses to overwrite an existing key.
var caKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new ed25519 CA keypair",
	Run: func(cmd *cobra.Command, args []string) {
		keyPath := viper.GetString("signer.ca_key")
		if p, _ := cmd.Flags().GetString("out"); p != "" {
			keyPath = p
		}
		if _, err := os.Stat(keyPath); err == nil {
			log.Fatalf("Refusing to overwrite existing CA key at %s", keyPath)
		}

		comment, _ := cmd.Flags().GetString("comment")
		pub, priv, err := cryptossh.GenerateAndMarshalEd25519Key(comment)
		if err != nil {
			log.Fatalf("Error generating CA key: %v", err)
		}
		if err := os.WriteFile(keyPath, []byte(priv), 0600); err != nil {
			log.Fatalf("Error writing CA private key: %v", err)
		}
		if err := os.WriteFile(keyPath+".pub", []byte(pub), 0644); err != nil {
			log.Fatalf("Error writing CA public key: %v", err)
		}
		_ = db.LogAction("CA_KEYGEN", fmt.Sprintf("path=%s", keyPath))
		fmt.Printf("CA keypair written to %s and %s.pub\n", keyPath, keyPath)
	},
}

func init() {
	caKeygenCmd.Flags().String("out", "", "Destination path for the private key (defaults to signer.ca_key)")
	caKeygenCmd.Flags().String("comment", "certmaster-ca", "Comment embedded in the keypair")
	caCmd.AddCommand(caKeygenCmd)
}
