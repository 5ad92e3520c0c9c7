package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines timeout values for the application's timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//
//	HTTP Handler (45s)
//	  ↓
//	Service Layer (40s)
//	  ↓
//	Payer Auth Backend (35s - challenge legs block on the ACS)
//	  ↓
//	Instrument / Transaction Data (10s)
//
// Each layer completes before its parent times out, so a slow ACS
// surfaces as a backend failure the safety net can absorb rather than
// a severed client connection.
type TimeoutConfig struct {
	// Handler layer timeouts
	HTTPHandler time.Duration // Overall request timeout (default: 45s)

	// Service layer timeouts
	Service         time.Duration // Service operation timeout (default: 40s)
	ServiceCritical time.Duration // Authenticate/complete legs (default: 38s)

	// External API timeouts (adapters)
	PayerAuth   time.Duration // Payer auth backend calls (default: 35s)
	Instruments time.Duration // Instrument and transaction data calls (default: 10s)
	SingleRetry time.Duration // Individual retry attempt (default: 5s)
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		// Handler layer
		HTTPHandler: 45 * time.Second,

		// Service layer (must be < HTTPHandler)
		Service:         40 * time.Second,
		ServiceCritical: 38 * time.Second,

		// External APIs
		PayerAuth:   35 * time.Second,
		Instruments: 10 * time.Second,
		SingleRetry: 5 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:     5 * time.Second,
		Service:         4 * time.Second,
		ServiceCritical: 3 * time.Second,
		PayerAuth:       2 * time.Second,
		Instruments:     1 * time.Second,
		SingleRetry:     500 * time.Millisecond,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// CriticalPathContext creates a context for the authenticate and
// complete legs, which block on the ACS
func (tc *TimeoutConfig) CriticalPathContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ServiceCritical)
}

// PayerAuthContext creates a context for payer auth backend calls
func (tc *TimeoutConfig) PayerAuthContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.PayerAuth)
}

// RetryAttemptContext creates a context for a single retry attempt
func (tc *TimeoutConfig) RetryAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleRetry)
}
