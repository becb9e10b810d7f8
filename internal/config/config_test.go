// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig[Config](nil, Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("database.type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Cert.DefaultTTL != "16h" {
		t.Errorf("cert.default_ttl = %q, want 16h", cfg.Cert.DefaultTTL)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `database:
  type: postgres
  dsn: postgres://cert:secret@db/certmaster
signer:
  ca_key: /opt/ca/key
`
	if err := os.WriteFile(filepath.Join(dir, "certmaster.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)

	cfg, err := LoadConfig[Config](nil, Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Type != "postgres" {
		t.Errorf("database.type = %q, want postgres", cfg.Database.Type)
	}
	if cfg.Signer.CAKey != "/opt/ca/key" {
		t.Errorf("signer.ca_key = %q, want /opt/ca/key", cfg.Signer.CAKey)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Language)
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("language: de\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig[Config](nil, Defaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Language != "de" {
		t.Errorf("language = %q, want de", cfg.Language)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CERTMASTER_DATABASE_TYPE", "mysql")

	cfg, err := LoadConfig[Config](nil, Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Database.Type != "mysql" {
		t.Errorf("database.type = %q, want mysql (from env)", cfg.Database.Type)
	}
}
