// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/toeirei/certmaster/internal/model"
	"github.com/uptrace/bun"
)

// UserModel maps the `users` table for Bun queries.
type UserModel struct {
	bun.BaseModel `bun:"table:users"`
	ID            int    `bun:"id,pk,autoincrement"`
	Username      string `bun:"username"`
	IsActive      bool   `bun:"is_active"`
}

// HostModel maps the `hosts` table.
type HostModel struct {
	bun.BaseModel `bun:"table:hosts"`
	ID            int    `bun:"id,pk,autoincrement"`
	Hostname      string `bun:"hostname"`
}

// PrincipalModel maps the `principals` table.
type PrincipalModel struct {
	bun.BaseModel `bun:"table:principals"`
	ID            int    `bun:"id,pk,autoincrement"`
	Name          string `bun:"name"`
}

// UserGrantModel maps the `user_grants` edge table.
type UserGrantModel struct {
	bun.BaseModel `bun:"table:user_grants"`
	UserID        int `bun:"user_id"`
	PrincipalID   int `bun:"principal_id"`
}

// HostGrantModel maps the `host_grants` edge table.
type HostGrantModel struct {
	bun.BaseModel `bun:"table:host_grants"`
	HostID        int `bun:"host_id"`
	PrincipalID   int `bun:"principal_id"`
}

// CertIssuanceModel maps the `cert_issuances` table. The serial column
// carries a UNIQUE constraint; inserts that violate it surface as ErrDuplicate.
type CertIssuanceModel struct {
	bun.BaseModel `bun:"table:cert_issuances"`
	ID            int       `bun:"id,pk,autoincrement"`
	KeyID         string    `bun:"key_id"`
	Serial        int64     `bun:"serial"`
	Principals    string    `bun:"principals"`
	Fingerprint   string    `bun:"fingerprint"`
	NotAfter      time.Time `bun:"not_after"`
	Revoked       bool      `bun:"revoked"`
	CreatedAt     time.Time `bun:"created_at"`
}

// SerialCounterModel maps the single-row `serial_counter` table backing
// monotonic serial allocation.
type SerialCounterModel struct {
	bun.BaseModel `bun:"table:serial_counter"`
	ID            int   `bun:"id,pk"`
	Value         int64 `bun:"value"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// --- Mapping helpers (centralized conversions) ---

func userModelToModel(u UserModel) model.User {
	return model.User{ID: u.ID, Username: u.Username, IsActive: u.IsActive}
}

func issuanceModelToModel(c CertIssuanceModel) model.CertificateIssuance {
	return model.CertificateIssuance{
		ID:          c.ID,
		KeyID:       c.KeyID,
		Serial:      c.Serial,
		Principals:  c.Principals,
		Fingerprint: c.Fingerprint,
		NotAfter:    c.NotAfter,
		Revoked:     c.Revoked,
		CreatedAt:   c.CreatedAt,
	}
}

// --- User helpers ---

// AddUserBun inserts a new active user and returns its ID.
func AddUserBun(bdb *bun.DB, username string) (int, error) {
	ctx := context.Background()
	um := &UserModel{Username: username, IsActive: true}
	if _, err := bdb.NewInsert().Model(um).Column("username", "is_active").Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return um.ID, nil
}

// GetUserByNameBun returns the user with the given username, or nil when unknown.
func GetUserByNameBun(bdb *bun.DB, username string) (*model.User, error) {
	ctx := context.Background()
	var um UserModel
	err := bdb.NewSelect().Model(&um).Where("username = ?", username).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := userModelToModel(um)
	return &m, nil
}

// GetAllUsersBun returns all users ordered by username.
func GetAllUsersBun(bdb *bun.DB) ([]model.User, error) {
	ctx := context.Background()
	var ums []UserModel
	if err := bdb.NewSelect().Model(&ums).OrderExpr("username").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(ums))
	for _, u := range ums {
		out = append(out, userModelToModel(u))
	}
	return out, nil
}

// SetUserActiveBun sets the active flag for a user by username.
func SetUserActiveBun(bdb *bun.DB, username string, active bool) error {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*UserModel)(nil)).
		Set("is_active = ?", active).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Host helpers ---

// AddHostBun inserts a new host and returns its ID.
func AddHostBun(bdb *bun.DB, hostname string) (int, error) {
	ctx := context.Background()
	hm := &HostModel{Hostname: hostname}
	if _, err := bdb.NewInsert().Model(hm).Column("hostname").Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return hm.ID, nil
}

// GetHostByNameBun returns the host with the given hostname, or nil when unknown.
func GetHostByNameBun(bdb *bun.DB, hostname string) (*model.Host, error) {
	ctx := context.Background()
	var hm HostModel
	err := bdb.NewSelect().Model(&hm).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &model.Host{ID: hm.ID, Hostname: hm.Hostname}, nil
}

// GetAllHostsBun returns all hosts ordered by hostname.
func GetAllHostsBun(bdb *bun.DB) ([]model.Host, error) {
	ctx := context.Background()
	var hms []HostModel
	if err := bdb.NewSelect().Model(&hms).OrderExpr("hostname").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Host, 0, len(hms))
	for _, h := range hms {
		out = append(out, model.Host{ID: h.ID, Hostname: h.Hostname})
	}
	return out, nil
}

// --- Principal helpers ---

// AddPrincipalBun registers a principal name and returns its ID.
func AddPrincipalBun(bdb *bun.DB, name string) (int, error) {
	ctx := context.Background()
	pm := &PrincipalModel{Name: name}
	if _, err := bdb.NewInsert().Model(pm).Column("name").Returning("id").Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return pm.ID, nil
}

// GetAllPrincipalsBun returns all principals ordered by name.
func GetAllPrincipalsBun(bdb *bun.DB) ([]model.Principal, error) {
	ctx := context.Background()
	var pms []PrincipalModel
	if err := bdb.NewSelect().Model(&pms).OrderExpr("name").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Principal, 0, len(pms))
	for _, p := range pms {
		out = append(out, model.Principal{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func principalIDByName(ctx context.Context, bdb *bun.DB, name string) (int, error) {
	var pm PrincipalModel
	err := bdb.NewSelect().Model(&pm).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return pm.ID, nil
}

// --- Grant helpers ---

// GrantUserPrincipalBun creates a (user, principal) grant edge. Unknown user
// or principal names yield ErrNotFound; an existing edge yields ErrDuplicate.
func GrantUserPrincipalBun(bdb *bun.DB, username, principal string) error {
	ctx := context.Background()
	var um UserModel
	if err := bdb.NewSelect().Model(&um).Where("username = ?", username).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	pid, err := principalIDByName(ctx, bdb, principal)
	if err != nil {
		return err
	}
	if _, err := bdb.NewInsert().Model(&UserGrantModel{UserID: um.ID, PrincipalID: pid}).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// RevokeUserPrincipalBun removes a (user, principal) grant edge.
func RevokeUserPrincipalBun(bdb *bun.DB, username, principal string) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, bdb,
		`DELETE FROM user_grants WHERE user_id = (SELECT id FROM users WHERE username = ?) AND principal_id = (SELECT id FROM principals WHERE name = ?)`,
		username, principal)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantHostPrincipalBun creates a (host, principal) grant edge.
func GrantHostPrincipalBun(bdb *bun.DB, hostname, principal string) error {
	ctx := context.Background()
	var hm HostModel
	if err := bdb.NewSelect().Model(&hm).Where("hostname = ?", hostname).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	pid, err := principalIDByName(ctx, bdb, principal)
	if err != nil {
		return err
	}
	if _, err := bdb.NewInsert().Model(&HostGrantModel{HostID: hm.ID, PrincipalID: pid}).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// RevokeHostPrincipalBun removes a (host, principal) grant edge.
func RevokeHostPrincipalBun(bdb *bun.DB, hostname, principal string) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, bdb,
		`DELETE FROM host_grants WHERE host_id = (SELECT id FROM hosts WHERE hostname = ?) AND principal_id = (SELECT id FROM principals WHERE name = ?)`,
		hostname, principal)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GrantedPrincipalsForUserBun returns the principal names granted to a user.
// Unknown or inactive users produce an empty result, not an error; callers
// treat the empty set as deny-all.
func GrantedPrincipalsForUserBun(bdb *bun.DB, username string) ([]string, error) {
	ctx := context.Background()
	var names []string
	err := bdb.NewSelect().
		ColumnExpr("p.name").
		TableExpr("principals AS p").
		Join("JOIN user_grants AS ug ON ug.principal_id = p.id").
		Join("JOIN users AS u ON u.id = ug.user_id").
		Where("u.username = ?", username).
		Where("u.is_active = ?", true).
		Scan(ctx, &names)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GrantedPrincipalsForHostBun returns the principal names a host recognizes.
// Unknown hosts produce an empty result.
func GrantedPrincipalsForHostBun(bdb *bun.DB, hostname string) ([]string, error) {
	ctx := context.Background()
	var names []string
	err := bdb.NewSelect().
		ColumnExpr("p.name").
		TableExpr("principals AS p").
		Join("JOIN host_grants AS hg ON hg.principal_id = p.id").
		Join("JOIN hosts AS h ON h.id = hg.host_id").
		Where("h.hostname = ?", hostname).
		Scan(ctx, &names)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// --- Serial allocation ---

// NextSerialBun atomically increments the durable serial counter and returns
// the new value. The increment and read-back happen inside one transaction so
// concurrent callers serialize on the counter row; no two callers ever see the
// same serial.
func NextSerialBun(bdb *bun.DB) (int64, error) {
	ctx := context.Background()
	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := ExecRaw(ctx, tx, "UPDATE serial_counter SET value = value + 1 WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to advance serial counter: %w", err)
	}
	var serial int64
	if err := QueryRawInto(ctx, tx, &serial, "SELECT value FROM serial_counter WHERE id = 1"); err != nil {
		return 0, fmt.Errorf("failed to read serial counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return serial, nil
}

// --- Issuance helpers ---

// RecordIssuanceBun inserts one issuance row. A serial collision surfaces as
// ErrDuplicate via the UNIQUE constraint on cert_issuances.serial.
func RecordIssuanceBun(bdb *bun.DB, iss model.CertificateIssuance) error {
	ctx := context.Background()
	cm := &CertIssuanceModel{
		KeyID:       iss.KeyID,
		Serial:      iss.Serial,
		Principals:  iss.Principals,
		Fingerprint: iss.Fingerprint,
		NotAfter:    iss.NotAfter,
		Revoked:     iss.Revoked,
		CreatedAt:   iss.CreatedAt,
	}
	if _, err := bdb.NewInsert().Model(cm).
		Column("key_id", "serial", "principals", "fingerprint", "not_after", "revoked", "created_at").
		Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// GetIssuanceBySerialBun returns the issuance with the given serial, or nil.
func GetIssuanceBySerialBun(bdb *bun.DB, serial int64) (*model.CertificateIssuance, error) {
	ctx := context.Background()
	var cm CertIssuanceModel
	err := bdb.NewSelect().Model(&cm).Where("serial = ?", serial).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := issuanceModelToModel(cm)
	return &m, nil
}

// GetAllIssuancesBun returns all issuances, most recent first.
func GetAllIssuancesBun(bdb *bun.DB) ([]model.CertificateIssuance, error) {
	ctx := context.Background()
	var cms []CertIssuanceModel
	if err := bdb.NewSelect().Model(&cms).OrderExpr("serial DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.CertificateIssuance, 0, len(cms))
	for _, c := range cms {
		out = append(out, issuanceModelToModel(c))
	}
	return out, nil
}

// RevokeSerialBun sets revoked on the matching row. Revoking an
// already-revoked serial is a no-op success; an unknown serial is ErrNotFound.
func RevokeSerialBun(bdb *bun.DB, serial int64) error {
	ctx := context.Background()
	exists, err := bdb.NewSelect().Model((*CertIssuanceModel)(nil)).Where("serial = ?", serial).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	_, err = bdb.NewUpdate().Model((*CertIssuanceModel)(nil)).
		Set("revoked = ?", true).
		Where("serial = ?", serial).
		Exec(ctx)
	return err
}

// RevokedSerialsBun returns all revoked serials in ascending order.
func RevokedSerialsBun(bdb *bun.DB) ([]int64, error) {
	ctx := context.Background()
	var serials []int64
	err := bdb.NewSelect().
		ColumnExpr("serial").
		TableExpr("cert_issuances").
		Where("revoked = ?", true).
		OrderExpr("serial ASC").
		Scan(ctx, &serials)
	if err != nil {
		return nil, err
	}
	return serials, nil
}

// --- Audit log helpers ---

// LogActionBun records an audit trail event with a UTC timestamp.
func LogActionBun(bdb *bun.DB, action, details string) error {
	ctx := context.Background()
	am := &AuditLogModel{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    action,
		Details:   details,
	}
	_, err := bdb.NewInsert().Model(am).Column("timestamp", "action", "details").Exec(ctx)
	return err
}

// GetAllAuditLogEntriesBun returns the audit log, most recent first.
func GetAllAuditLogEntriesBun(bdb *bun.DB) ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var ams []AuditLogModel
	if err := bdb.NewSelect().Model(&ams).OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(ams))
	for _, a := range ams {
		out = append(out, model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Action: a.Action, Details: a.Details})
	}
	return out, nil
}

// --- Backup ---

// ExportDataForBackupBun collects every table into a BackupData snapshot.
func ExportDataForBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	ctx := context.Background()
	backup := &model.BackupData{}

	users, err := GetAllUsersBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	backup.Users = users

	hosts, err := GetAllHostsBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export hosts: %w", err)
	}
	backup.Hosts = hosts

	principals, err := GetAllPrincipalsBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export principals: %w", err)
	}
	backup.Principals = principals

	err = bdb.NewSelect().
		ColumnExpr("u.username AS username, p.name AS principal").
		TableExpr("user_grants AS ug").
		Join("JOIN users AS u ON u.id = ug.user_id").
		Join("JOIN principals AS p ON p.id = ug.principal_id").
		OrderExpr("u.username, p.name").
		Scan(ctx, &backup.UserGrants)
	if err != nil {
		return nil, fmt.Errorf("failed to export user grants: %w", err)
	}

	err = bdb.NewSelect().
		ColumnExpr("h.hostname AS hostname, p.name AS principal").
		TableExpr("host_grants AS hg").
		Join("JOIN hosts AS h ON h.id = hg.host_id").
		Join("JOIN principals AS p ON p.id = hg.principal_id").
		OrderExpr("h.hostname, p.name").
		Scan(ctx, &backup.HostGrants)
	if err != nil {
		return nil, fmt.Errorf("failed to export host grants: %w", err)
	}

	issuances, err := GetAllIssuancesBun(bdb)
	if err != nil {
		return nil, fmt.Errorf("failed to export issuances: %w", err)
	}
	backup.Issuances = issuances

	return backup, nil
}
