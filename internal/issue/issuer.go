// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package issue orchestrates certificate issuance: request validation,
// authorization against the grant store, serial allocation, invocation of the
// external signer and durable recording of the result. An issuance either
// fully succeeds (row recorded, certificate returned) or fully fails; there
// is no signed-but-unrecorded success path.
package issue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/toeirei/certmaster/internal/authz"
	"github.com/toeirei/certmaster/internal/db"
	"github.com/toeirei/certmaster/internal/logging"
	"github.com/toeirei/certmaster/internal/model"
	"github.com/toeirei/certmaster/internal/signer"
	"github.com/toeirei/certmaster/internal/sshkey"
	"github.com/toeirei/certmaster/internal/ttl"
)

// Store is the slice of the data layer the issuer needs. db.Store satisfies it.
type Store interface {
	GetUserByName(username string) (*model.User, error)
	GrantedPrincipalsForUser(username string) ([]string, error)
	NextSerial() (int64, error)
	RecordIssuance(iss model.CertificateIssuance) error
}

// Request is one certificate issuance request. There is deliberately no
// hostname here: issuance validates principals against the user's global
// grant set, and per-host narrowing happens later at the login gate.
type Request struct {
	Username   string
	Principals []string
	PublicKey  string
	TTL        string // optional; falls back to the configured default
	KeyID      string // optional; defaults to "<username>-<unixSeconds>"
}

// Result is a successfully issued certificate.
type Result struct {
	KeyID       string
	Serial      int64
	Certificate string
}

// serialAttempts bounds how often a failing allocator is retried before the
// request is surfaced as ErrAllocatorExhausted.
const serialAttempts = 3

// Issuer coordinates one issuance at a time per request; it holds no mutable
// state of its own and is safe for concurrent use.
type Issuer struct {
	store      Store
	signer     signer.Signer
	defaultTTL string
	clock      Clock
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithDefaultTTL sets the TTL applied when a request carries none.
func WithDefaultTTL(t string) Option {
	return func(i *Issuer) { i.defaultTTL = t }
}

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(i *Issuer) { i.clock = c }
}

// New creates an Issuer backed by the given store and signer.
func New(store Store, sgn signer.Signer, opts ...Option) *Issuer {
	i := &Issuer{
		store:      store,
		signer:     sgn,
		defaultTTL: "16h",
		clock:      systemClock{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue runs the full issuance pipeline. All validation and authorization
// failures are detected before the signer runs or any row is written.
func (i *Issuer) Issue(ctx context.Context, req Request) (*Result, error) {
	if len(req.Principals) == 0 {
		return nil, fmt.Errorf("%w: principals[] must not be empty", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.PublicKey) == "" {
		return nil, fmt.Errorf("%w: pubkey must not be blank", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(req.Principals))
	for _, p := range req.Principals {
		if p == "" || strings.Contains(p, ",") {
			return nil, fmt.Errorf("%w: invalid principal name %q", ErrInvalidRequest, p)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate principal %q", ErrInvalidRequest, p)
		}
		seen[p] = true
	}

	fingerprint, err := sshkey.Validate(req.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	user, err := i.store.GetUserByName(req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, req.Username)
	}

	granted, err := authz.UserPrincipalSet(i.store, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	for _, p := range req.Principals {
		if !granted[p] {
			return nil, fmt.Errorf("%w: %s", ErrForbidden, p)
		}
	}

	now := i.clock.Now()
	keyID := req.KeyID
	if keyID == "" {
		keyID = fmt.Sprintf("%s-%d", req.Username, now.Unix())
	}
	ttlStr := req.TTL
	if ttlStr == "" {
		ttlStr = i.defaultTTL
	}
	if ttl.Parse(ttlStr) == 0 {
		// Permissive-parse compatibility: a garbled TTL signs a certificate
		// that is already expired rather than failing the request.
		logging.Infof("issue: TTL %q parsed to zero duration for key_id %s", ttlStr, keyID)
	}

	serial, err := i.allocateSerial()
	if err != nil {
		return nil, err
	}

	// The signer runs outside any store transaction so a slow ssh-keygen
	// never blocks unrelated requests.
	cert, err := i.signer.Sign(ctx, signer.Request{
		KeyID:      keyID,
		Principals: req.Principals,
		Validity:   ttl.Format(ttlStr),
		Serial:     serial,
		PublicKey:  sshkey.Normalize(req.PublicKey),
	})
	if err != nil {
		return nil, err
	}

	err = i.store.RecordIssuance(model.CertificateIssuance{
		KeyID:       keyID,
		Serial:      serial,
		Principals:  strings.Join(req.Principals, ","),
		Fingerprint: fingerprint,
		NotAfter:    ttl.NotAfter(ttlStr, now).UTC(),
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, fmt.Errorf("%w: serial %d", ErrIssuanceConflict, serial)
		}
		return nil, fmt.Errorf("failed to record issuance: %w", err)
	}

	return &Result{KeyID: keyID, Serial: serial, Certificate: cert}, nil
}

// allocateSerial wraps the store allocator with a small bounded retry for
// transient failures (e.g. a busy SQLite database under burst load).
func (i *Issuer) allocateSerial() (int64, error) {
	var lastErr error
	for attempt := 0; attempt < serialAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
		}
		serial, err := i.store.NextSerial()
		if err == nil {
			return serial, nil
		}
		lastErr = err
		logging.Debugf("issue: serial allocation attempt %d failed: %v", attempt+1, err)
	}
	return 0, fmt.Errorf("%w: %v", ErrAllocatorExhausted, lastErr)
}
