package challenge

import (
	"strings"

	"github.com/commercepay/payment-challenge-service/internal/domain"
)

// Rule prefixes for the two legs that consult the mapping table.
const (
	AuthStatusPrefix       = "PXPSD2Auth"
	CompletionStatusPrefix = "PXPSD2Comp"
)

// Wildcard is the rule segment that matches any context value.
const Wildcard = "_"

// StatusMapper resolves raw backend transaction statuses into challenge
// outcomes using an ordered table of dash-delimited rule strings.
//
// A rule has the shape
//
//	{prefix}-{rawStatus}-{ctx0}-{ctx1}-...-{Outcome}
//
// where any context segment may be the wildcard marker. The table is
// reloadable configuration in production, which is why matching is
// string-prefix based rather than parsed into a structure.
type StatusMapper struct {
	rules []string
}

// NewStatusMapper builds a mapper over the given rule table. The slice
// is scanned in order on every lookup; first match wins.
func NewStatusMapper(rules []string) *StatusMapper {
	return &StatusMapper{rules: rules}
}

// DefaultStatusRules is the rule table shipped when no override is
// configured. The completion rules resolve the documented ACS reason
// codes; everything else falls through to the hardcoded defaults.
var DefaultStatusRules = []string{
	"PXPSD2Auth-N-TSR01-" + string(domain.ChallengeStatusFailed),
	"PXPSD2Auth-N-TSR11-" + string(domain.ChallengeStatusFailed),
	"PXPSD2Auth-U-_-" + string(domain.ChallengeStatusByPassed),
	"PXPSD2Auth-A-_-" + string(domain.ChallengeStatusSucceeded),
	"PXPSD2Comp-N-TSR14-_-" + string(domain.ChallengeStatusTimedOut),
	"PXPSD2Comp-U-_-_-" + string(domain.ChallengeStatusFailed),
	"PXPSD2Comp-A-_-_-" + string(domain.ChallengeStatusSucceeded),
}

// Map resolves (prefix, rawStatus, context) against the session's
// exposed flag list and then the configured rule table. The bool result
// reports whether any rule matched. Flags exposed on an individual
// session override the shipped table, which is how status mappings are
// flighted per partner.
//
// Candidate prefixes are generated for all 2^N wildcard combinations of
// the N context strings: combination index bit j clear means the
// literal value of context[j] is used (a nil/missing value contributes
// an empty segment), bit j set means it is replaced by the wildcard.
// Indexes are tried in ascending order, so the all-literal candidate is
// tried first and the all-wildcard candidate last: the most specific
// rule wins. Rule tables rely on this precedence; do not reorder.
func (m *StatusMapper) Map(prefix string, raw domain.TransactionStatus, context, sessionFlags []string) (status domain.ChallengeStatus, ok bool) {
	// A malformed rule table must degrade to "no mapping", never fail
	// the request.
	defer func() {
		if r := recover(); r != nil {
			status, ok = domain.ChallengeStatusUnknown, false
		}
	}()

	n := len(context)
	for i := 0; i < 1<<n; i++ {
		var b strings.Builder
		b.WriteString(prefix)
		b.WriteByte('-')
		b.WriteString(string(raw))
		b.WriteByte('-')
		for j := 0; j < n; j++ {
			if i&(1<<j) == 0 {
				b.WriteString(context[j])
			} else {
				b.WriteString(Wildcard)
			}
			b.WriteByte('-')
		}
		candidate := b.String()
		if parsed, matched := matchRule(sessionFlags, candidate); matched {
			return parsed, true
		}
		if parsed, matched := matchRule(m.rules, candidate); matched {
			return parsed, true
		}
	}
	return domain.ChallengeStatusUnknown, false
}

// matchRule scans a rule list for the candidate prefix. A rule whose
// outcome segment is not a known status is treated as absent, not as a
// new terminal state.
func matchRule(rules []string, candidate string) (domain.ChallengeStatus, bool) {
	for _, rule := range rules {
		if len(rule) < len(candidate) || !strings.EqualFold(rule[:len(candidate)], candidate) {
			continue
		}
		if parsed, known := domain.ParseChallengeStatus(rule[len(candidate):]); known {
			return parsed, true
		}
	}
	return domain.ChallengeStatusUnknown, false
}

// MapAuthenticationStatus resolves the authenticate-leg outcome,
// applying the hardcoded defaults when no rule matches and the FR
// override afterwards. FR (frictionless rejected) always fails the
// challenge no matter what the table says.
func (m *StatusMapper) MapAuthenticationStatus(raw domain.TransactionStatus, isMOTO bool, context, sessionFlags []string) domain.ChallengeStatus {
	status, ok := m.Map(AuthStatusPrefix, raw, context, sessionFlags)
	if !ok {
		status = FallbackAuthenticationStatus(raw, isMOTO)
	}
	if raw == domain.TransactionStatusFrictionlessRejected {
		status = domain.ChallengeStatusFailed
	}
	return status
}

// MapCompletionStatus resolves the completion-leg outcome, applying the
// hardcoded completion defaults when no rule matches.
func (m *StatusMapper) MapCompletionStatus(raw domain.TransactionStatus, reason, cancelIndicator string, sessionFlags []string) domain.ChallengeStatus {
	status, ok := m.Map(CompletionStatusPrefix, raw, []string{reason, cancelIndicator}, sessionFlags)
	if !ok {
		status = FallbackCompletionStatus(raw, reason, cancelIndicator)
	}
	return status
}

// FallbackAuthenticationStatus is the default authenticate-leg outcome
// when the rule table has no opinion: C keeps the session open for the
// ACS challenge, R fails it, everything else passes (bypassed when the
// transaction is MOTO).
func FallbackAuthenticationStatus(raw domain.TransactionStatus, isMOTO bool) domain.ChallengeStatus {
	switch raw {
	case domain.TransactionStatusChallenge:
		return domain.ChallengeStatusUnknown
	case domain.TransactionStatusRejected:
		return domain.ChallengeStatusFailed
	default:
		if isMOTO {
			return domain.ChallengeStatusByPassed
		}
		return domain.ChallengeStatusSucceeded
	}
}

// FallbackCompletionStatus is the default completion-leg outcome when
// the rule table has no opinion.
func FallbackCompletionStatus(raw domain.TransactionStatus, reason, cancelIndicator string) domain.ChallengeStatus {
	switch raw {
	case domain.TransactionStatusRejected, domain.TransactionStatusFrictionlessRejected:
		return domain.ChallengeStatusFailed
	case domain.TransactionStatusDeclined:
		// The TSR14 reason is only consulted when the ACS sent no
		// cancel indicator at all; an unrecognized indicator still
		// counts as a completed challenge.
		switch cancelIndicator {
		case domain.TransactionCReqTimedOut, domain.TransactionTimedOut:
			return domain.ChallengeStatusTimedOut
		case domain.CancelledByCardHolder, domain.CancelledByRequestor, domain.TransactionAbandoned:
			return domain.ChallengeStatusCancelled
		case "":
			if reason == domain.TransactionStatusReasonTimeout {
				return domain.ChallengeStatusTimedOut
			}
		}
		return domain.ChallengeStatusSucceeded
	default:
		return domain.ChallengeStatusSucceeded
	}
}
