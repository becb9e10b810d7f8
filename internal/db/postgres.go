// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Certmaster.
// This file contains the PostgreSQL implementation of the database store.
package db // import "github.com/toeirei/certmaster/internal/db"

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/toeirei/certmaster/internal/model"
	"github.com/uptrace/bun"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
// All queries go through the shared Bun helpers; only driver registration and
// serial-allocation locking semantics differ from SQLite.
type PostgresStore struct {
	bun *bun.DB
}

func (s *PostgresStore) AddUser(username string) (int, error) {
	id, err := AddUserBun(s.bun, username)
	if err == nil {
		_ = s.LogAction("ADD_USER", fmt.Sprintf("user: %s", username))
	}
	return id, err
}

func (s *PostgresStore) GetUserByName(username string) (*model.User, error) {
	return GetUserByNameBun(s.bun, username)
}

func (s *PostgresStore) GetAllUsers() ([]model.User, error) {
	return GetAllUsersBun(s.bun)
}

func (s *PostgresStore) SetUserActive(username string, active bool) error {
	err := SetUserActiveBun(s.bun, username, active)
	if err == nil {
		_ = s.LogAction("SET_USER_ACTIVE", fmt.Sprintf("user: %s, active: %t", username, active))
	}
	return err
}

func (s *PostgresStore) AddHost(hostname string) (int, error) {
	id, err := AddHostBun(s.bun, hostname)
	if err == nil {
		_ = s.LogAction("ADD_HOST", fmt.Sprintf("host: %s", hostname))
	}
	return id, err
}

func (s *PostgresStore) GetHostByName(hostname string) (*model.Host, error) {
	return GetHostByNameBun(s.bun, hostname)
}

func (s *PostgresStore) GetAllHosts() ([]model.Host, error) {
	return GetAllHostsBun(s.bun)
}

func (s *PostgresStore) AddPrincipal(name string) (int, error) {
	id, err := AddPrincipalBun(s.bun, name)
	if err == nil {
		_ = s.LogAction("ADD_PRINCIPAL", fmt.Sprintf("principal: %s", name))
	}
	return id, err
}

func (s *PostgresStore) GetAllPrincipals() ([]model.Principal, error) {
	return GetAllPrincipalsBun(s.bun)
}

func (s *PostgresStore) GrantUserPrincipal(username, principal string) error {
	err := GrantUserPrincipalBun(s.bun, username, principal)
	if err == nil {
		_ = s.LogAction("GRANT_USER_PRINCIPAL", fmt.Sprintf("user: %s, principal: %s", username, principal))
	}
	return err
}

func (s *PostgresStore) RevokeUserPrincipal(username, principal string) error {
	err := RevokeUserPrincipalBun(s.bun, username, principal)
	if err == nil {
		_ = s.LogAction("REVOKE_USER_PRINCIPAL", fmt.Sprintf("user: %s, principal: %s", username, principal))
	}
	return err
}

func (s *PostgresStore) GrantHostPrincipal(hostname, principal string) error {
	err := GrantHostPrincipalBun(s.bun, hostname, principal)
	if err == nil {
		_ = s.LogAction("GRANT_HOST_PRINCIPAL", fmt.Sprintf("host: %s, principal: %s", hostname, principal))
	}
	return err
}

func (s *PostgresStore) RevokeHostPrincipal(hostname, principal string) error {
	err := RevokeHostPrincipalBun(s.bun, hostname, principal)
	if err == nil {
		_ = s.LogAction("REVOKE_HOST_PRINCIPAL", fmt.Sprintf("host: %s, principal: %s", hostname, principal))
	}
	return err
}

func (s *PostgresStore) GrantedPrincipalsForUser(username string) ([]string, error) {
	return GrantedPrincipalsForUserBun(s.bun, username)
}

func (s *PostgresStore) GrantedPrincipalsForHost(hostname string) ([]string, error) {
	return GrantedPrincipalsForHostBun(s.bun, hostname)
}

// NextSerial allocates the next certificate serial. The UPDATE takes a row
// lock on the counter row, so concurrent transactions serialize here.
func (s *PostgresStore) NextSerial() (int64, error) {
	return NextSerialBun(s.bun)
}

func (s *PostgresStore) RecordIssuance(iss model.CertificateIssuance) error {
	err := RecordIssuanceBun(s.bun, iss)
	if err == nil {
		_ = s.LogAction("ISSUE_CERTIFICATE", fmt.Sprintf("key_id: %s, serial: %d, principals: %s", iss.KeyID, iss.Serial, iss.Principals))
	}
	return err
}

func (s *PostgresStore) GetIssuanceBySerial(serial int64) (*model.CertificateIssuance, error) {
	return GetIssuanceBySerialBun(s.bun, serial)
}

func (s *PostgresStore) GetAllIssuances() ([]model.CertificateIssuance, error) {
	return GetAllIssuancesBun(s.bun)
}

func (s *PostgresStore) RevokeSerial(serial int64) error {
	err := RevokeSerialBun(s.bun, serial)
	if err == nil {
		_ = s.LogAction("REVOKE_CERTIFICATE", fmt.Sprintf("serial: %d", serial))
	}
	return err
}

func (s *PostgresStore) RevokedSerials() ([]int64, error) {
	return RevokedSerialsBun(s.bun)
}

func (s *PostgresStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

func (s *PostgresStore) LogAction(action, details string) error {
	return LogActionBun(s.bun, action, details)
}

func (s *PostgresStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}
