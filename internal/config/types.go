// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package config

// Config is the full Certmaster configuration tree.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Language string         `yaml:"language" mapstructure:"language"`
	Debug    bool           `yaml:"debug" mapstructure:"debug"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Signer   SignerConfig   `yaml:"signer" mapstructure:"signer"`
	Cert     CertConfig     `yaml:"cert" mapstructure:"cert"`
}

// DatabaseConfig selects the backing store.
type DatabaseConfig struct {
	Type string `yaml:"type" mapstructure:"type"`
	DSN  string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// SignerConfig configures the external signing tool.
type SignerConfig struct {
	CAKey   string `yaml:"ca_key" mapstructure:"ca_key"`
	Binary  string `yaml:"binary" mapstructure:"binary"`
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// CertConfig holds issuance policy knobs.
type CertConfig struct {
	DefaultTTL string `yaml:"default_ttl" mapstructure:"default_ttl"`
}

// Defaults returns the default configuration as the flat viper key map
// LoadConfig expects.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":    "sqlite",
		"database.dsn":     "./certmaster.db",
		"language":         "en",
		"debug":            false,
		"server.addr":      ":8080",
		"signer.ca_key":    "/keys/ssh_user_ca",
		"signer.binary":    "ssh-keygen",
		"signer.timeout":   "10s",
		"cert.default_ttl": "16h",
	}
}

// DefaultConfig returns the defaults as a typed Config, for writing a
// starter config file.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Type: "sqlite", DSN: "./certmaster.db"},
		Language: "en",
		Server:   ServerConfig{Addr: ":8080"},
		Signer:   SignerConfig{CAKey: "/keys/ssh_user_ca", Binary: "ssh-keygen", Timeout: "10s"},
		Cert:     CertConfig{DefaultTTL: "16h"},
	}
}
