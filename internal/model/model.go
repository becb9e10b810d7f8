// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// package model defines the core data structures for Certmaster.
package model // import "github.com/toeirei/certmaster/internal/model"

import (
	"fmt"
	"strings"
	"time"
)

// User is a person (or automation identity) that may request certificates.
// Users are managed externally; the issuance engine only reads them.
type User struct {
	ID       int
	Username string
	IsActive bool
}

// Host is a login target that recognizes a set of principals.
type Host struct {
	ID       int
	Hostname string
}

// Principal is a named login identity (e.g. "deploy", "readonly") shared
// between user grants and host grants.
type Principal struct {
	ID   int
	Name string
}

// CertificateIssuance is the immutable record of one signing event. Only the
// Revoked flag may change after the row is written.
type CertificateIssuance struct {
	ID          int
	KeyID       string
	Serial      int64
	Principals  string // comma-joined, in the order they were signed
	Fingerprint string
	NotAfter    time.Time
	Revoked     bool
	CreatedAt   time.Time
}

// PrincipalList splits the comma-joined principal string back into a slice.
func (c CertificateIssuance) PrincipalList() []string {
	if c.Principals == "" {
		return nil
	}
	return strings.Split(c.Principals, ",")
}

// String returns a short identifier for log and audit output.
func (c CertificateIssuance) String() string {
	return fmt.Sprintf("%s (serial %d)", c.KeyID, c.Serial)
}

// AuditLogEntry represents a single audit trail event.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Action    string
	Details   string
}

// BackupData aggregates every table for export.
type BackupData struct {
	Users      []User                `yaml:"users"`
	Hosts      []Host                `yaml:"hosts"`
	Principals []Principal           `yaml:"principals"`
	UserGrants []UserGrant           `yaml:"user_grants"`
	HostGrants []HostGrant           `yaml:"host_grants"`
	Issuances  []CertificateIssuance `yaml:"issuances"`
}

// UserGrant is the membership edge authorizing a user to request a principal.
type UserGrant struct {
	Username  string `yaml:"username"`
	Principal string `yaml:"principal"`
}

// HostGrant is the membership edge marking a principal as recognized by a host.
type HostGrant struct {
	Hostname  string `yaml:"hostname"`
	Principal string `yaml:"principal"`
}
