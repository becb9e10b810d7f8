// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cryptossh "github.com/toeirei/certmaster/internal/crypto/ssh"
	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/issue"
	"github.com/toeirei/certmaster/internal/model"
	"github.com/toeirei/certmaster/internal/signer"
	"github.com/toeirei/certmaster/internal/testutil"
)

func newTestServer(t *testing.T, sgn signer.Signer) (*httptest.Server, db.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	a := New(store, issue.New(store, sgn))
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func seedGrants(t *testing.T, store db.Store) {
	t.Helper()
	if _, err := store.AddUser("alice"); err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	if _, err := store.AddHost("prod1"); err != nil {
		t.Fatalf("AddHost failed: %v", err)
	}
	for _, p := range []string{"web", "db", "admin"} {
		if _, err := store.AddPrincipal(p); err != nil {
			t.Fatalf("AddPrincipal failed: %v", err)
		}
	}
	for _, p := range []string{"web", "db"} {
		if err := store.GrantUserPrincipal("alice", p); err != nil {
			t.Fatalf("GrantUserPrincipal failed: %v", err)
		}
	}
	for _, p := range []string{"web", "db", "admin"} {
		if err := store.GrantHostPrincipal("prod1", p); err != nil {
			t.Fatalf("GrantHostPrincipal failed: %v", err)
		}
	}
}

func testPubkey(t *testing.T) string {
	t.Helper()
	pub, _, err := cryptossh.GenerateAndMarshalEd25519Key("alice@box")
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	return pub
}

func TestAuthorizedPrincipalsEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{})
	seedGrants(t, store)

	resp, err := http.Get(srv.URL + "/authorized-principals?user=alice&host=prod1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q, want text/plain", ct)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if got := buf.String(); got != "db\nweb\n" {
		t.Errorf("body = %q, want \"db\\nweb\\n\"", got)
	}
}

func TestAuthorizedPrincipalsUnknownUserIsEmpty(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{})
	seedGrants(t, store)

	resp, err := http.Get(srv.URL + "/authorized-principals?user=ghost&host=prod1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if buf.Len() != 0 {
		t.Errorf("body = %q, want empty", buf.String())
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	return resp
}

func TestSignEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{Cert: "ssh-ed25519-cert-v01@openssh.com AAAAcert"})
	seedGrants(t, store)

	resp := postJSON(t, srv.URL+"/sign", SignRequest{
		Username:   "alice",
		Principals: []string{"web", "db"},
		Pubkey:     testPubkey(t),
		TTL:        "8h",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var sr SignResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sr.Cert != "ssh-ed25519-cert-v01@openssh.com AAAAcert" {
		t.Errorf("cert = %q", sr.Cert)
	}
	if sr.Serial < 1 {
		t.Errorf("serial = %d, want >= 1", sr.Serial)
	}
	if !strings.HasPrefix(sr.KeyID, "alice-") {
		t.Errorf("key id = %q, want alice-<ts>", sr.KeyID)
	}

	// Second issuance gets a strictly larger serial.
	resp2 := postJSON(t, srv.URL+"/sign", SignRequest{
		Username:   "alice",
		Principals: []string{"web"},
		Pubkey:     testPubkey(t),
	})
	defer resp2.Body.Close()
	var sr2 SignResponse
	if err := json.NewDecoder(resp2.Body).Decode(&sr2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sr2.Serial <= sr.Serial {
		t.Errorf("second serial %d not greater than first %d", sr2.Serial, sr.Serial)
	}
}

func TestSignErrorStatuses(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{})
	seedGrants(t, store)
	pub := testPubkey(t)

	cases := []struct {
		name   string
		req    SignRequest
		status int
		code   string
	}{
		{"empty principals", SignRequest{Username: "alice", Pubkey: pub}, http.StatusBadRequest, "invalid_request"},
		{"garbage pubkey", SignRequest{Username: "alice", Principals: []string{"web"}, Pubkey: "junk"}, http.StatusBadRequest, "invalid_request"},
		{"unknown user", SignRequest{Username: "ghost", Principals: []string{"web"}, Pubkey: pub}, http.StatusForbidden, "unauthorized"},
		{"ungranted principal", SignRequest{Username: "alice", Principals: []string{"admin"}, Pubkey: pub}, http.StatusForbidden, "forbidden"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/sign", c.req)
			defer resp.Body.Close()
			if resp.StatusCode != c.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, c.status)
			}
			var er ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if er.Code != c.code {
				t.Errorf("code = %q, want %q", er.Code, c.code)
			}
		})
	}
}

func TestSignSignerFailure(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{Fail: true, Diagnostic: "Load key: no such file"})
	seedGrants(t, store)

	resp := postJSON(t, srv.URL+"/sign", SignRequest{
		Username:   "alice",
		Principals: []string{"web"},
		Pubkey:     testPubkey(t),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var er ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Code != "signing_failed" {
		t.Errorf("code = %q, want signing_failed", er.Code)
	}
	if !strings.Contains(er.Error, "no such file") {
		t.Errorf("error %q should carry the tool diagnostic", er.Error)
	}
}

func TestRevokeAndFeed(t *testing.T) {
	srv, store := newTestServer(t, &signer.Fake{})

	// Unknown serial.
	resp := postJSON(t, srv.URL+"/revoke", RevokeRequest{Serial: 99})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	now := time.Now().UTC()
	for _, serial := range []int64{9, 2} {
		if err := store.RecordIssuance(model.CertificateIssuance{
			KeyID: "k", Serial: serial, Principals: "web",
			NotAfter: now.Add(time.Hour), CreatedAt: now,
		}); err != nil {
			t.Fatalf("RecordIssuance failed: %v", err)
		}
		resp := postJSON(t, srv.URL+"/revoke", RevokeRequest{Serial: serial})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("revoke status = %d, want 200", resp.StatusCode)
		}
		var rr RevokeResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()
		if rr.Status != "revoked" || rr.Serial != serial {
			t.Errorf("unexpected response: %+v", rr)
		}
	}

	feed, err := http.Get(srv.URL + "/revoked_keys")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer feed.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(feed.Body)
	if got := buf.String(); got != "@revoked serial:2\n@revoked serial:9\n" {
		t.Errorf("feed = %q", got)
	}
}

func TestMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, &signer.Fake{})
	resp, err := http.Post(srv.URL+"/sign", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
