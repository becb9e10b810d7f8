// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ttl converts between the human-readable validity strings used on
// the wire (e.g. "16h", "1d12h") and absolute expiry times. The accepted
// units are s, m, h and d.
package ttl

import (
	"regexp"
	"strconv"
	"time"
)

var tokenRe = regexp.MustCompile(`(\d+)([smhd])`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// Parse sums all <integer><unit> tokens found in s into a Duration.
// Characters that don't form a token are ignored, and an input with no
// recognizable tokens parses to zero. This permissive behavior is relied on
// by existing clients; callers that consider a zero TTL suspicious must
// reject it themselves.
func Parse(s string) time.Duration {
	var total int64
	for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			// Out-of-range digit runs are skipped like any other noise.
			continue
		}
		total += v * unitSeconds[m[2]]
	}
	return time.Duration(total) * time.Second
}

// Format renders the relative-validity argument the signer expects for a
// given TTL string, e.g. "16h" becomes "+16h".
func Format(s string) string {
	return "+" + s
}

// NotAfter returns the absolute expiry for a certificate issued at issuedAt
// with the given TTL string.
func NotAfter(s string, issuedAt time.Time) time.Time {
	return issuedAt.Add(Parse(s))
}
