package challenge

import (
	"context"
	"errors"
	"fmt"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
)

// Safety-net exclusion flag formats. Formatted with the backend status
// code and error code of a failure; when the resulting flag is present
// in the session's exposed flags, that failure is re-raised instead of
// suppressed.
const (
	SafetyNetGetExtendedPIFormat      = "PSD2SafetyNet-GetPIExt-%v-%v"
	SafetyNetCreateSessionFormat      = "PSD2SafetyNet-CreatePS-%v-%v"
	SafetyNetMotoAuthFormat           = "PSD2SafetyNet-MotoAuthN-%v-%v"
	SafetyNetWebAuthFormat            = "PSD2SafetyNet-WebAuthN-%v-%v"
	SafetyNetAppAuthFormat            = "PSD2SafetyNet-AppAuthN-%v-%v"
	SafetyNetCompletionFormat         = "PSD2SafetyNet-Completion-%v-%v"
	SafetyNetValidateInstrumentFormat = "PSD2SafetyNet-ValidatePI-%v-%v"
	SafetyNetLinkSessionFormat        = "PSD2SafetyNet-LinkSessionToPI-%v-%v"
	SafetyNetUpdateSessionFormat      = "PSD2SafetyNet-UpdateSessionResourceData-%v-%v"
	SafetyNetStoreSessionFormat       = "PSD2SafetyNet-CreateSessionFromData-%v-%v"
)

// SafetyNet executes backend calls and contains their failures so a
// transient backend outage degrades to a bypassed challenge instead of
// a blocked checkout. Every suppressed failure is logged with the
// operation name and trace id for offline investigation, since the
// caller will hand the user a substitute success.
type SafetyNet struct {
	logger  ports.Logger
	metrics *observability.Metrics
}

// NewSafetyNet creates a safety net that reports through the given
// logger and metrics registry.
func NewSafetyNet(logger ports.Logger, metrics *observability.Metrics) *SafetyNet {
	return &SafetyNet{logger: logger, metrics: metrics}
}

// SafetyNetOptions controls per-call opt-out behavior.
type SafetyNetOptions struct {
	// ExposedFlags are the feature flags exposed to the session.
	ExposedFlags []string
	// ExclusionFlagFormat, when non-empty, is formatted with the
	// failure's status code and error code; if the resulting flag is
	// exposed, the failure is re-raised instead of suppressed.
	ExclusionFlagFormat string
}

// Execute runs op and reports whether it failed. A nil error returns
// (false, nil). A failure normally returns (true, nil) after logging;
// it returns (true, err) only when the failure matches an exclusion
// flag the caller opted into.
func (sn *SafetyNet) Execute(ctx context.Context, operation, traceID string, op func(context.Context) error, opts SafetyNetOptions) (bool, error) {
	err := op(ctx)
	if err == nil {
		return false, nil
	}

	if opts.ExclusionFlagFormat != "" {
		var svcErr *pkgerrors.ServiceError
		if errors.As(err, &svcErr) {
			flag := fmt.Sprintf(opts.ExclusionFlagFormat, svcErr.StatusCode, svcErr.Code)
			if hasFlag(opts.ExposedFlags, flag) {
				sn.logger.Warn("safety net exclusion matched, re-raising backend failure",
					ports.String("operation", operation),
					ports.String("trace_id", traceID),
					ports.String("exclusion_flag", flag),
					ports.Err(err))
				return true, err
			}
		}
	}

	sn.logger.Error("safety net suppressed backend failure",
		ports.String("operation", operation),
		ports.String("trace_id", traceID),
		ports.String("error_code", string(domain.GetErrorCode(err))),
		ports.Err(err))
	if sn.metrics != nil {
		sn.metrics.SafetyNetSuppressions.WithLabelValues(operation).Inc()
	}
	return true, nil
}
