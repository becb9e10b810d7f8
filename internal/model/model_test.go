// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"reflect"
	"testing"
)

func TestPrincipalList(t *testing.T) {
	c := CertificateIssuance{Principals: "web,db,admin"}
	if got, want := c.PrincipalList(), []string{"web", "db", "admin"}; !reflect.DeepEqual(got, want) {
		t.Errorf("PrincipalList = %v, want %v", got, want)
	}
	if got := (CertificateIssuance{}).PrincipalList(); got != nil {
		t.Errorf("empty principals should yield nil, got %v", got)
	}
}

func TestIssuanceString(t *testing.T) {
	c := CertificateIssuance{KeyID: "alice-1748800000", Serial: 42}
	if got := c.String(); got != "alice-1748800000 (serial 42)" {
		t.Errorf("String = %q", got)
	}
}
