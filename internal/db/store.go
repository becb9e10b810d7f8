// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/toeirei/certmaster/internal/model"
)

// Store defines the interface for all database operations in Certmaster.
// This allows for multiple database backends to be implemented.
type Store interface {
	// User methods
	AddUser(username string) (int, error)
	GetUserByName(username string) (*model.User, error)
	GetAllUsers() ([]model.User, error)
	SetUserActive(username string, active bool) error

	// Host methods
	AddHost(hostname string) (int, error)
	GetHostByName(hostname string) (*model.Host, error)
	GetAllHosts() ([]model.Host, error)

	// Principal methods
	AddPrincipal(name string) (int, error)
	GetAllPrincipals() ([]model.Principal, error)

	// Grant methods. The granted-principal queries return an empty slice (not
	// an error) when the user/host is unknown or the user is inactive.
	GrantUserPrincipal(username, principal string) error
	RevokeUserPrincipal(username, principal string) error
	GrantHostPrincipal(hostname, principal string) error
	RevokeHostPrincipal(hostname, principal string) error
	GrantedPrincipalsForUser(username string) ([]string, error)
	GrantedPrincipalsForHost(hostname string) ([]string, error)

	// Serial allocation. NextSerial is linearizable: no two callers ever
	// observe the same value, across processes and restarts.
	NextSerial() (int64, error)

	// Issuance methods. RecordIssuance returns ErrDuplicate on a serial
	// collision; rows are insert-only apart from the revoked flag.
	RecordIssuance(iss model.CertificateIssuance) error
	GetIssuanceBySerial(serial int64) (*model.CertificateIssuance, error)
	GetAllIssuances() ([]model.CertificateIssuance, error)
	RevokeSerial(serial int64) error
	RevokedSerials() ([]int64, error)

	// Audit Log methods
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup
	ExportDataForBackup() (*model.BackupData, error)
}
