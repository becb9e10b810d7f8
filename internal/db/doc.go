// Package db contains the data-access layer for Certmaster.
//
// The package exposes a Store interface with SQLite, PostgreSQL and MySQL
// implementations, all backed by a shared set of Bun query helpers in
// bun_adapter.go. A package-level store (set via InitDB) backs thin
// convenience wrappers so callers don't have to thread a Store through
// every call site; tests that need real DB semantics should use
// `db.InitDB("sqlite", ":memory:")` or the WithTestStore helper.
//
// Correctness notes
//   - NextSerial is the only allocation path for certificate serials. The
//     increment and read-back run inside one transaction against the
//     single-row serial_counter table, which makes allocation linearizable
//     on every supported engine.
//   - cert_issuances.serial carries a UNIQUE constraint as a backstop; a
//     violated insert is mapped to ErrDuplicate by MapDBError.
//   - The granted-principal queries deliberately fold "unknown user",
//     "inactive user" and "no grants" into the same empty result. Callers
//     treat the empty set as deny-all.
package db
