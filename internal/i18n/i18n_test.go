// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import "testing"

func TestTranslationsByLanguage(t *testing.T) {
	Init("en")
	if got := T("cli.issue_success"); got != "certificate issued" {
		t.Errorf("en: got %q", got)
	}

	SetLang("de")
	if got := T("cli.issue_success"); got != "Zertifikat ausgestellt" {
		t.Errorf("de: got %q", got)
	}

	// Unknown languages fall back to English.
	SetLang("fr")
	if got := T("cli.issue_success"); got != "certificate issued" {
		t.Errorf("fallback: got %q", got)
	}
}

func TestUnknownMessageIDFallsBackToID(t *testing.T) {
	Init("en")
	if got := T("cli.no_such_message"); got != "cli.no_such_message" {
		t.Errorf("got %q, want the message ID back", got)
	}
}
