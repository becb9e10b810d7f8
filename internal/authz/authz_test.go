// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package authz

import (
	"errors"
	"reflect"
	"testing"
)

// fakeGrants is an in-memory GrantReader. Missing names return empty slices,
// mirroring the store's fail-closed contract.
type fakeGrants struct {
	users map[string][]string
	hosts map[string][]string
	err   error
}

func (f *fakeGrants) GrantedPrincipalsForUser(username string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func (f *fakeGrants) GrantedPrincipalsForHost(hostname string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hosts[hostname], nil
}

func TestAuthorizedPrincipalsIntersection(t *testing.T) {
	g := &fakeGrants{
		users: map[string][]string{"alice": {"web", "db", "admin"}},
		hosts: map[string][]string{"prod1": {"web", "db"}},
	}
	got, err := AuthorizedPrincipals(g, "alice", "prod1")
	if err != nil {
		t.Fatalf("AuthorizedPrincipals failed: %v", err)
	}
	if want := []string{"db", "web"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAuthorizedPrincipalsSorted(t *testing.T) {
	g := &fakeGrants{
		users: map[string][]string{"alice": {"zeta", "alpha", "mid"}},
		hosts: map[string][]string{"prod1": {"zeta", "mid", "alpha"}},
	}
	got, err := AuthorizedPrincipals(g, "alice", "prod1")
	if err != nil {
		t.Fatalf("AuthorizedPrincipals failed: %v", err)
	}
	if want := []string{"alpha", "mid", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAuthorizedPrincipalsUnknownIdentities(t *testing.T) {
	g := &fakeGrants{
		users: map[string][]string{"alice": {"web"}},
		hosts: map[string][]string{"prod1": {"web"}},
	}
	for _, tc := range []struct{ user, host string }{
		{"nobody", "prod1"},
		{"alice", "nohost"},
		{"nobody", "nohost"},
	} {
		got, err := AuthorizedPrincipals(g, tc.user, tc.host)
		if err != nil {
			t.Fatalf("AuthorizedPrincipals(%s, %s) failed: %v", tc.user, tc.host, err)
		}
		if len(got) != 0 {
			t.Errorf("AuthorizedPrincipals(%s, %s) = %v, want empty", tc.user, tc.host, got)
		}
	}
}

func TestAuthorizedPrincipalsPropagatesErrors(t *testing.T) {
	wantErr := errors.New("db down")
	g := &fakeGrants{err: wantErr}
	if _, err := AuthorizedPrincipals(g, "alice", "prod1"); !errors.Is(err, wantErr) {
		t.Errorf("expected store error to propagate, got %v", err)
	}
}

// userOnlyGrants implements just UserGrantReader, the slice the issuance
// path depends on.
type userOnlyGrants struct{ grants []string }

func (u userOnlyGrants) GrantedPrincipalsForUser(string) ([]string, error) {
	return u.grants, nil
}

func TestUserPrincipalSetAcceptsUserOnlyReader(t *testing.T) {
	set, err := UserPrincipalSet(userOnlyGrants{grants: []string{"web"}}, "alice")
	if err != nil {
		t.Fatalf("UserPrincipalSet failed: %v", err)
	}
	if !set["web"] || len(set) != 1 {
		t.Errorf("unexpected set: %v", set)
	}
}

func TestUserPrincipalSet(t *testing.T) {
	g := &fakeGrants{users: map[string][]string{"alice": {"web", "db"}}}
	set, err := UserPrincipalSet(g, "alice")
	if err != nil {
		t.Fatalf("UserPrincipalSet failed: %v", err)
	}
	if !set["web"] || !set["db"] || set["admin"] {
		t.Errorf("unexpected set: %v", set)
	}
	empty, err := UserPrincipalSet(g, "nobody")
	if err != nil {
		t.Fatalf("UserPrincipalSet failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty set for unknown user, got %v", empty)
	}
}
