package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

func TestStatusMapper_Map_LiteralWinsOverWildcard(t *testing.T) {
	// The all-literal candidate is generated first, so an exact rule
	// shadows a wildcard rule covering the same context.
	m := NewStatusMapper([]string{
		"X-N-A-B-Succeeded",
		"X-N-_-B-Cancelled",
	})

	status, ok := m.Map("X", domain.TransactionStatusDeclined, []string{"A", "B"}, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusSucceeded, status)
}

func TestStatusMapper_Map_WildcardOnlyWhenNoExactRule(t *testing.T) {
	m := NewStatusMapper([]string{
		"X-N-A-B-Succeeded",
		"X-N-_-B-Cancelled",
	})

	// Context "C" misses the literal rule, so the wildcard resolves it.
	status, ok := m.Map("X", domain.TransactionStatusDeclined, []string{"C", "B"}, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusCancelled, status)
}

func TestStatusMapper_Map_AllWildcardLast(t *testing.T) {
	m := NewStatusMapper([]string{
		"X-N-_-_-Cancelled",
		"X-N-A-B-Succeeded",
	})

	status, ok := m.Map("X", domain.TransactionStatusDeclined, []string{"A", "B"}, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusSucceeded, status)
}

func TestStatusMapper_Map_UnknownOutcomeSuffixIgnored(t *testing.T) {
	// A rule whose outcome segment is not a recognized status must not
	// invent a new terminal state; the lookup falls through.
	m := NewStatusMapper([]string{
		"PXPSD2Comp-N-_-_-Garbage",
	})

	status, ok := m.Map(CompletionStatusPrefix, domain.TransactionStatusDeclined, []string{"", ""}, nil)
	assert.False(t, ok)
	assert.Equal(t, domain.ChallengeStatusUnknown, status)
}

func TestStatusMapper_Map_OutcomeSuffixCanonicalized(t *testing.T) {
	m := NewStatusMapper([]string{
		"PXPSD2Comp-N-_-_-bypassed",
	})

	status, ok := m.Map(CompletionStatusPrefix, domain.TransactionStatusDeclined, []string{"", ""}, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusByPassed, status)
}

func TestStatusMapper_Map_NoMatch(t *testing.T) {
	m := NewStatusMapper(DefaultStatusRules)

	status, ok := m.Map(AuthStatusPrefix, domain.TransactionStatusApproved, []string{"TSR99"}, nil)
	assert.False(t, ok)
	assert.Equal(t, domain.ChallengeStatusUnknown, status)
}

func TestStatusMapper_Map_CaseInsensitive(t *testing.T) {
	m := NewStatusMapper([]string{
		"pxpsd2auth-u-_-ByPassed",
	})

	status, ok := m.Map(AuthStatusPrefix, domain.TransactionStatusUnavailable, []string{"TSR01"}, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusByPassed, status)
}

func TestStatusMapper_Map_EmptyContext(t *testing.T) {
	m := NewStatusMapper([]string{
		"PXPSD2Auth-R-Failed",
	})

	status, ok := m.Map(AuthStatusPrefix, domain.TransactionStatusRejected, nil, nil)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusFailed, status)
}

func TestMapAuthenticationStatus(t *testing.T) {
	m := NewStatusMapper(DefaultStatusRules)

	tests := []struct {
		name   string
		raw    domain.TransactionStatus
		isMOTO bool
		reason string
		want   domain.ChallengeStatus
	}{
		{"challenge keeps session open", domain.TransactionStatusChallenge, false, "", domain.ChallengeStatusUnknown},
		{"rejected fails", domain.TransactionStatusRejected, false, "", domain.ChallengeStatusFailed},
		{"approved succeeds", domain.TransactionStatusApproved, false, "", domain.ChallengeStatusSucceeded},
		{"approved on moto bypasses", domain.TransactionStatusApproved, true, "", domain.ChallengeStatusByPassed},
		{"frictionless rejected always fails", domain.TransactionStatusFrictionlessRejected, false, "", domain.ChallengeStatusFailed},
		{"rule table maps unavailable to bypassed", domain.TransactionStatusUnavailable, false, "TSR01", domain.ChallengeStatusByPassed},
		{"rule table maps declined TSR01 to failed", domain.TransactionStatusDeclined, false, "TSR01", domain.ChallengeStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.MapAuthenticationStatus(tt.raw, tt.isMOTO, []string{tt.reason}, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapAuthenticationStatus_FROverridesRuleTable(t *testing.T) {
	// Even a rule that maps FR to success must not survive the
	// frictionless-rejected override.
	m := NewStatusMapper([]string{
		"PXPSD2Auth-FR-_-Succeeded",
	})
	got := m.MapAuthenticationStatus(domain.TransactionStatusFrictionlessRejected, false, []string{""}, nil)
	assert.Equal(t, domain.ChallengeStatusFailed, got)
}

func TestFallbackCompletionStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    domain.TransactionStatus
		reason string
		cancel string
		want   domain.ChallengeStatus
	}{
		{"rejected", domain.TransactionStatusRejected, "", "", domain.ChallengeStatusFailed},
		{"frictionless rejected", domain.TransactionStatusFrictionlessRejected, "", "", domain.ChallengeStatusFailed},
		{"creq timeout", domain.TransactionStatusDeclined, "", domain.TransactionCReqTimedOut, domain.ChallengeStatusTimedOut},
		{"transaction timeout", domain.TransactionStatusDeclined, "", domain.TransactionTimedOut, domain.ChallengeStatusTimedOut},
		{"cancelled by card holder", domain.TransactionStatusDeclined, "", domain.CancelledByCardHolder, domain.ChallengeStatusCancelled},
		{"cancelled by requestor", domain.TransactionStatusDeclined, "", domain.CancelledByRequestor, domain.ChallengeStatusCancelled},
		{"abandoned", domain.TransactionStatusDeclined, "", domain.TransactionAbandoned, domain.ChallengeStatusCancelled},
		{"acs timeout reason", domain.TransactionStatusDeclined, domain.TransactionStatusReasonTimeout, "", domain.ChallengeStatusTimedOut},
		{"plain decline completes the challenge", domain.TransactionStatusDeclined, "TSR05", "", domain.ChallengeStatusSucceeded},
		{"bare decline completes the challenge", domain.TransactionStatusDeclined, "", "", domain.ChallengeStatusSucceeded},
		{"timeout reason ignored when indicator set", domain.TransactionStatusDeclined, domain.TransactionStatusReasonTimeout, "99", domain.ChallengeStatusSucceeded},
		{"approved", domain.TransactionStatusApproved, "", "", domain.ChallengeStatusSucceeded},
		{"attempted", domain.TransactionStatusAttempted, "", "", domain.ChallengeStatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackCompletionStatus(tt.raw, tt.reason, tt.cancel)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusMapper_Map_SessionFlagsOverrideTable(t *testing.T) {
	// A mapping flighted onto the session wins over the configured
	// table for the same candidate.
	m := NewStatusMapper([]string{
		"PXPSD2Auth-U-_-ByPassed",
	})

	flags := []string{"SomeOtherFlight", "PXPSD2Auth-U-_-Failed"}
	status, ok := m.Map(AuthStatusPrefix, domain.TransactionStatusUnavailable, []string{"TSR01"}, flags)
	assert.True(t, ok)
	assert.Equal(t, domain.ChallengeStatusFailed, status)
}

func TestMapCompletionStatus_SessionFlagsConsulted(t *testing.T) {
	m := NewStatusMapper(nil)

	flags := []string{"PXPSD2Comp-N-_-_-Cancelled"}
	got := m.MapCompletionStatus(domain.TransactionStatusDeclined, "", "", flags)
	assert.Equal(t, domain.ChallengeStatusCancelled, got)
}

func TestMapCompletionStatus_RuleTableTimeout(t *testing.T) {
	m := NewStatusMapper(DefaultStatusRules)
	got := m.MapCompletionStatus(domain.TransactionStatusDeclined, domain.TransactionStatusReasonTimeout, "", nil)
	assert.Equal(t, domain.ChallengeStatusTimedOut, got)
}
