// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package authz computes which principals a user may assume. It is a pure
// read-side evaluator over the grant store: it never mutates state, and it
// fails closed by returning empty sets for unknown or inactive identities.
package authz

import (
	"sort"
)

// UserGrantReader is the user-side slice of the grant store, enough for
// issuance-time checks that never look at hosts.
type UserGrantReader interface {
	GrantedPrincipalsForUser(username string) ([]string, error)
}

// GrantReader is the full read-side contract of the grant store. The db.Store
// interface satisfies it; tests inject fakes.
type GrantReader interface {
	UserGrantReader
	GrantedPrincipalsForHost(hostname string) ([]string, error)
}

// AuthorizedPrincipals returns the sorted intersection of the principals
// granted to the user and those recognized by the host. An unknown user,
// inactive user or unknown host yields an empty slice, never an error:
// callers must not be able to distinguish "no such user" from "no access".
func AuthorizedPrincipals(grants GrantReader, username, hostname string) ([]string, error) {
	userSet, err := UserPrincipalSet(grants, username)
	if err != nil {
		return nil, err
	}
	hostPrincipals, err := grants.GrantedPrincipalsForHost(hostname)
	if err != nil {
		return nil, err
	}

	allowed := make([]string, 0, len(hostPrincipals))
	for _, p := range hostPrincipals {
		if userSet[p] {
			allowed = append(allowed, p)
		}
	}
	sort.Strings(allowed)
	return allowed, nil
}

// UserPrincipalSet returns the user's global granted-principal set as a
// lookup map. Issuance-time validation checks requested principals against
// this set; the host intersection happens later, at login-gate query time.
func UserPrincipalSet(grants UserGrantReader, username string) (map[string]bool, error) {
	principals, err := grants.GrantedPrincipalsForUser(username)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(principals))
	for _, p := range principals {
		set[p] = true
	}
	return set, nil
}
