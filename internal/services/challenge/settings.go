package challenge

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// DefaultSettingsVersion is the SDK settings version assumed when no
// version flag is exposed.
const DefaultSettingsVersion = "V11"

var settingsVersionPattern = regexp.MustCompile(`^\s*PXPSD2SettingVersionV(\d{1,4})\s*$`)

// NegotiateSettingsVersion returns the highest settings version exposed
// through version flags, or the default when none are present.
func NegotiateSettingsVersion(flags []string) string {
	max := -1
	for _, f := range flags {
		m := settingsVersionPattern.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}
	if max < 0 {
		return DefaultSettingsVersion
	}
	return fmt.Sprintf("V%d", max)
}

// ValidateSettingsVersion checks the SDK's settings version against the
// negotiated one. A mismatch is only rejected on the first attempt;
// the SDK retries with the corrected version and must not be bounced
// again (some SDK builds cannot update settings mid-flight).
func ValidateSettingsVersion(req *domain.ClientAuthenticationRequest, flags []string) error {
	expected := NegotiateSettingsVersion(flags)
	if req.SettingsVersion == expected {
		return nil
	}
	if req.SettingsVersionTryCount == 1 {
		return domain.NewDomainError(domain.ErrorCodeSettingsVersionMismatch,
			fmt.Sprintf("settings version %s does not match expected %s", req.SettingsVersion, expected)).
			WithDetail("expected_version", expected)
	}
	return nil
}

// ChallengeRedirectURL builds the browser redirect for a finished
// 3DS1 redirection flow. Verified outcomes land on the success URL
// with the session identifiers; everything else lands on the failure
// URL with an error code.
func ChallengeRedirectURL(ps *domain.PaymentSession) (*url.URL, error) {
	var base string
	if ps.ChallengeStatus.IsAuthenticationVerified() {
		base = ps.SuccessURL
	} else {
		base = ps.FailureURL
	}
	if base == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeSessionInvalid,
			"session has no redirect URL for its outcome")
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeSessionInvalid, "redirect URL is malformed", err)
	}

	q := u.Query()
	q.Set("challengeStatus", string(ps.ChallengeStatus))
	if ps.ChallengeStatus.IsAuthenticationVerified() {
		q.Set("sessionId", ps.ID)
		q.Set("piid", ps.PaymentInstrumentID)
	} else {
		q.Set("errorCode", string(ps.ChallengeStatus))
		if ps.UserDisplayMessage != "" {
			q.Set("errorMessage", ps.UserDisplayMessage)
		}
	}
	u.RawQuery = q.Encode()
	return u, nil
}
