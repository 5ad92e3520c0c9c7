package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

func TestNegotiateSettingsVersion(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  string
	}{
		{"no flags falls back to default", nil, DefaultSettingsVersion},
		{"single version flag", []string{"PXPSD2SettingVersionV14"}, "V14"},
		{"highest version wins", []string{"PXPSD2SettingVersionV12", "PXPSD2SettingVersionV15", "PXPSD2SettingVersionV13"}, "V15"},
		{"unrelated flags ignored", []string{FlagSkipFingerprint, "PXPSD2SettingVersionV12"}, "V12"},
		{"surrounding whitespace tolerated", []string{"  PXPSD2SettingVersionV16  "}, "V16"},
		{"malformed version ignored", []string{"PXPSD2SettingVersionV12345", "PXPSD2SettingVersionVabc"}, DefaultSettingsVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NegotiateSettingsVersion(tt.flags))
		})
	}
}

func TestValidateSettingsVersion(t *testing.T) {
	flags := []string{"PXPSD2SettingVersionV12"}

	t.Run("matching version passes", func(t *testing.T) {
		err := ValidateSettingsVersion(&domain.ClientAuthenticationRequest{
			SettingsVersion:         "V12",
			SettingsVersionTryCount: 1,
		}, flags)
		assert.NoError(t, err)
	})

	t.Run("mismatch on first try is rejected", func(t *testing.T) {
		err := ValidateSettingsVersion(&domain.ClientAuthenticationRequest{
			SettingsVersion:         "V10",
			SettingsVersionTryCount: 1,
		}, flags)
		require.Error(t, err)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSettingsVersionMismatch))
	})

	t.Run("mismatch on retry is tolerated", func(t *testing.T) {
		err := ValidateSettingsVersion(&domain.ClientAuthenticationRequest{
			SettingsVersion:         "V10",
			SettingsVersionTryCount: 2,
		}, flags)
		assert.NoError(t, err)
	})
}

func TestChallengeRedirectURL(t *testing.T) {
	t.Run("verified outcome lands on success url", func(t *testing.T) {
		ps := &domain.PaymentSession{
			PaymentSessionData: domain.PaymentSessionData{PaymentInstrumentID: "pi-001"},
			ID:                 "sess-001",
			ChallengeStatus:    domain.ChallengeStatusSucceeded,
			SuccessURL:         "https://partner.example/done",
			FailureURL:         "https://partner.example/failed",
		}
		u, err := ChallengeRedirectURL(ps)
		require.NoError(t, err)
		assert.Equal(t, "partner.example", u.Host)
		assert.Equal(t, "/done", u.Path)
		q := u.Query()
		assert.Equal(t, "Succeeded", q.Get("challengeStatus"))
		assert.Equal(t, "sess-001", q.Get("sessionId"))
		assert.Equal(t, "pi-001", q.Get("piid"))
	})

	t.Run("failed outcome lands on failure url with error code", func(t *testing.T) {
		ps := &domain.PaymentSession{
			ID:                 "sess-001",
			ChallengeStatus:    domain.ChallengeStatusTimedOut,
			SuccessURL:         "https://partner.example/done",
			FailureURL:         "https://partner.example/failed",
			UserDisplayMessage: "the bank did not respond",
		}
		u, err := ChallengeRedirectURL(ps)
		require.NoError(t, err)
		assert.Equal(t, "/failed", u.Path)
		q := u.Query()
		assert.Equal(t, "TimedOut", q.Get("errorCode"))
		assert.Equal(t, "the bank did not respond", q.Get("errorMessage"))
	})

	t.Run("missing redirect url is an invalid session", func(t *testing.T) {
		ps := &domain.PaymentSession{ID: "sess-001", ChallengeStatus: domain.ChallengeStatusFailed}
		_, err := ChallengeRedirectURL(ps)
		require.Error(t, err)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeSessionInvalid))
	})
}
