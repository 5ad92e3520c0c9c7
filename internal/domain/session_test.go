package domain

import "testing"

func TestParseChallengeStatus(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  ChallengeStatus
		known bool
	}{
		{"canonical", "Succeeded", ChallengeStatusSucceeded, true},
		{"lowercase", "bypassed", ChallengeStatusByPassed, true},
		{"uppercase", "TIMEDOUT", ChallengeStatusTimedOut, true},
		{"unknown name", "Garbage", ChallengeStatusUnknown, false},
		{"empty", "", ChallengeStatusUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := ParseChallengeStatus(tt.in)
			if known != tt.known {
				t.Fatalf("ParseChallengeStatus(%q) known = %v, want %v", tt.in, known, tt.known)
			}
			if got != tt.want {
				t.Errorf("ParseChallengeStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStoredPaymentSession_HasExposedFlag(t *testing.T) {
	s := &StoredPaymentSession{ExposedFlags: []string{"PXPSD2SkipFingerprint", "pxpsd2prodintegration"}}

	if !s.HasExposedFlag("PXPSD2SkipFingerprint") {
		t.Error("exact-case flag not found")
	}
	if !s.HasExposedFlag("pxpsd2skipfingerprint") {
		t.Error("flag lookup must be case-insensitive")
	}
	if !s.HasExposedFlag("PXPSD2ProdIntegration") {
		t.Error("stored flag casing must not matter")
	}
	if s.HasExposedFlag("PXPSD2SomethingElse") {
		t.Error("unexposed flag reported as present")
	}
}
