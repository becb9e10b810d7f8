// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Certmaster.
// This file contains the SQLite implementation of the database store.
package db // import "github.com/toeirei/certmaster/internal/db"

import (
	"fmt"

	"github.com/toeirei/certmaster/internal/model"
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface.
type SqliteStore struct {
	bun *bun.DB
}

// AddUser adds a new active user.
func (s *SqliteStore) AddUser(username string) (int, error) {
	id, err := AddUserBun(s.bun, username)
	if err == nil {
		_ = s.LogAction("ADD_USER", fmt.Sprintf("user: %s", username))
	}
	return id, err
}

// GetUserByName retrieves a user by username.
func (s *SqliteStore) GetUserByName(username string) (*model.User, error) {
	return GetUserByNameBun(s.bun, username)
}

// GetAllUsers retrieves all users.
func (s *SqliteStore) GetAllUsers() ([]model.User, error) {
	return GetAllUsersBun(s.bun)
}

// SetUserActive flips the active flag for a user.
func (s *SqliteStore) SetUserActive(username string, active bool) error {
	err := SetUserActiveBun(s.bun, username, active)
	if err == nil {
		_ = s.LogAction("SET_USER_ACTIVE", fmt.Sprintf("user: %s, active: %t", username, active))
	}
	return err
}

// AddHost adds a new host.
func (s *SqliteStore) AddHost(hostname string) (int, error) {
	id, err := AddHostBun(s.bun, hostname)
	if err == nil {
		_ = s.LogAction("ADD_HOST", fmt.Sprintf("host: %s", hostname))
	}
	return id, err
}

// GetHostByName retrieves a host by hostname.
func (s *SqliteStore) GetHostByName(hostname string) (*model.Host, error) {
	return GetHostByNameBun(s.bun, hostname)
}

// GetAllHosts retrieves all hosts.
func (s *SqliteStore) GetAllHosts() ([]model.Host, error) {
	return GetAllHostsBun(s.bun)
}

// AddPrincipal registers a principal name.
func (s *SqliteStore) AddPrincipal(name string) (int, error) {
	id, err := AddPrincipalBun(s.bun, name)
	if err == nil {
		_ = s.LogAction("ADD_PRINCIPAL", fmt.Sprintf("principal: %s", name))
	}
	return id, err
}

// GetAllPrincipals retrieves all principals.
func (s *SqliteStore) GetAllPrincipals() ([]model.Principal, error) {
	return GetAllPrincipalsBun(s.bun)
}

// GrantUserPrincipal authorizes a user to request a principal.
func (s *SqliteStore) GrantUserPrincipal(username, principal string) error {
	err := GrantUserPrincipalBun(s.bun, username, principal)
	if err == nil {
		_ = s.LogAction("GRANT_USER_PRINCIPAL", fmt.Sprintf("user: %s, principal: %s", username, principal))
	}
	return err
}

// RevokeUserPrincipal removes a user's grant for a principal.
func (s *SqliteStore) RevokeUserPrincipal(username, principal string) error {
	err := RevokeUserPrincipalBun(s.bun, username, principal)
	if err == nil {
		_ = s.LogAction("REVOKE_USER_PRINCIPAL", fmt.Sprintf("user: %s, principal: %s", username, principal))
	}
	return err
}

// GrantHostPrincipal marks a principal as recognized by a host.
func (s *SqliteStore) GrantHostPrincipal(hostname, principal string) error {
	err := GrantHostPrincipalBun(s.bun, hostname, principal)
	if err == nil {
		_ = s.LogAction("GRANT_HOST_PRINCIPAL", fmt.Sprintf("host: %s, principal: %s", hostname, principal))
	}
	return err
}

// RevokeHostPrincipal removes a host's recognition of a principal.
func (s *SqliteStore) RevokeHostPrincipal(hostname, principal string) error {
	err := RevokeHostPrincipalBun(s.bun, hostname, principal)
	if err == nil {
		_ = s.LogAction("REVOKE_HOST_PRINCIPAL", fmt.Sprintf("host: %s, principal: %s", hostname, principal))
	}
	return err
}

// GrantedPrincipalsForUser returns the principals granted to an active user.
func (s *SqliteStore) GrantedPrincipalsForUser(username string) ([]string, error) {
	return GrantedPrincipalsForUserBun(s.bun, username)
}

// GrantedPrincipalsForHost returns the principals recognized by a host.
func (s *SqliteStore) GrantedPrincipalsForHost(hostname string) ([]string, error) {
	return GrantedPrincipalsForHostBun(s.bun, hostname)
}

// NextSerial allocates the next certificate serial. SQLite serializes all
// writers, so the increment-and-read transaction is naturally linearizable.
func (s *SqliteStore) NextSerial() (int64, error) {
	return NextSerialBun(s.bun)
}

// RecordIssuance persists one certificate issuance record.
func (s *SqliteStore) RecordIssuance(iss model.CertificateIssuance) error {
	err := RecordIssuanceBun(s.bun, iss)
	if err == nil {
		_ = s.LogAction("ISSUE_CERTIFICATE", fmt.Sprintf("key_id: %s, serial: %d, principals: %s", iss.KeyID, iss.Serial, iss.Principals))
	}
	return err
}

// GetIssuanceBySerial retrieves one issuance record by serial.
func (s *SqliteStore) GetIssuanceBySerial(serial int64) (*model.CertificateIssuance, error) {
	return GetIssuanceBySerialBun(s.bun, serial)
}

// GetAllIssuances retrieves all issuance records.
func (s *SqliteStore) GetAllIssuances() ([]model.CertificateIssuance, error) {
	return GetAllIssuancesBun(s.bun)
}

// RevokeSerial marks an issuance revoked.
func (s *SqliteStore) RevokeSerial(serial int64) error {
	err := RevokeSerialBun(s.bun, serial)
	if err == nil {
		_ = s.LogAction("REVOKE_CERTIFICATE", fmt.Sprintf("serial: %d", serial))
	}
	return err
}

// RevokedSerials returns all revoked serials in ascending order.
func (s *SqliteStore) RevokedSerials() ([]int64, error) {
	return RevokedSerialsBun(s.bun)
}

// GetAllAuditLogEntries retrieves the audit log, most recent first.
func (s *SqliteStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

// LogAction records an audit trail event.
func (s *SqliteStore) LogAction(action, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
func (s *SqliteStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}
