// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package ttl

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"16h", 16 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1d12h", 36 * time.Hour},
		{"90s", 90 * time.Second},
		{"10m", 10 * time.Minute},
		{"", 0},
		{"garbage", 0},
		{"h", 0},
		{"5", 0},
		// Noise between tokens is ignored; the tokens still count.
		{"1h bogus 30m", 90 * time.Minute},
		{"+16h", 16 * time.Hour},
	}
	for _, c := range cases {
		if got := Parse(c.in); got != c.want {
			t.Errorf("Parse(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format("16h"); got != "+16h" {
		t.Errorf("Format(\"16h\") = %q, want \"+16h\"", got)
	}
	if got := Format("1d12h"); got != "+1d12h" {
		t.Errorf("Format(\"1d12h\") = %q, want \"+1d12h\"", got)
	}
}

func TestNotAfter(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := NotAfter("16h", issued)
	want := issued.Add(16 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("NotAfter(\"16h\") = %v, want %v", got, want)
	}
	// A zero TTL yields an already-expired certificate, not an error.
	if got := NotAfter("bogus", issued); !got.Equal(issued) {
		t.Errorf("NotAfter(\"bogus\") = %v, want %v", got, issued)
	}
}
