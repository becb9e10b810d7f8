// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package issue

import "errors"

// Sentinel errors forming the issuance failure taxonomy. Everything in this
// list is decided before any row is written; the engine never rolls back a
// partial write.
var (
	// ErrInvalidRequest covers malformed input: no principals, a blank or
	// unparseable public key, or a principal name the certificate encoding
	// cannot carry.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized is returned for unknown or inactive users.
	ErrUnauthorized = errors.New("unknown or inactive user")

	// ErrForbidden is returned when the requested principals exceed the
	// user's global grant set.
	ErrForbidden = errors.New("requested principals not allowed for this user")

	// ErrIssuanceConflict is returned when the issuance row collides on the
	// serial. The allocator guarantees uniqueness, so this signals a bug,
	// not a retryable condition.
	ErrIssuanceConflict = errors.New("issuance serial conflict")

	// ErrAllocatorExhausted is returned when serial allocation keeps failing
	// past the retry budget.
	ErrAllocatorExhausted = errors.New("serial allocation retries exhausted")
)
