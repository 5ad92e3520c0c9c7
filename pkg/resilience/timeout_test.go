package resilience

import (
	"context"
	"testing"
	"time"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	config := DefaultTimeoutConfig()

	// Verify timeout hierarchy is correctly ordered
	if config.HTTPHandler <= config.Service {
		t.Errorf("HTTPHandler (%v) must be > Service (%v)", config.HTTPHandler, config.Service)
	}

	if config.Service <= config.ServiceCritical {
		t.Errorf("Service (%v) must be > ServiceCritical (%v)", config.Service, config.ServiceCritical)
	}

	if config.ServiceCritical <= config.PayerAuth {
		t.Errorf("ServiceCritical (%v) must be > PayerAuth (%v)", config.ServiceCritical, config.PayerAuth)
	}

	if config.PayerAuth <= config.Instruments {
		t.Errorf("PayerAuth (%v) must be > Instruments (%v)", config.PayerAuth, config.Instruments)
	}

	// Verify production values
	if config.HTTPHandler != 45*time.Second {
		t.Errorf("Expected HTTPHandler = 45s, got %v", config.HTTPHandler)
	}

	if config.Service != 40*time.Second {
		t.Errorf("Expected Service = 40s, got %v", config.Service)
	}

	if config.PayerAuth != 35*time.Second {
		t.Errorf("Expected PayerAuth = 35s, got %v", config.PayerAuth)
	}
}

func TestTestTimeoutConfig(t *testing.T) {
	config := TestTimeoutConfig()

	// Verify test timeouts are shorter
	if config.HTTPHandler >= 10*time.Second {
		t.Errorf("Test timeouts should be < 10s, got %v", config.HTTPHandler)
	}

	// Verify hierarchy is still preserved in test config
	if config.HTTPHandler <= config.Service {
		t.Errorf("HTTPHandler (%v) must be > Service (%v)", config.HTTPHandler, config.Service)
	}

	if config.Service <= config.PayerAuth {
		t.Errorf("Service (%v) must be > PayerAuth (%v)", config.Service, config.PayerAuth)
	}
}

func TestHandlerContext(t *testing.T) {
	config := DefaultTimeoutConfig()
	parent := context.Background()

	ctx, cancel := config.HandlerContext(parent)
	defer cancel()

	// Verify context has deadline
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("HandlerContext should have deadline")
	}

	// Verify deadline is approximately HTTPHandler duration from now
	expectedDeadline := time.Now().Add(config.HTTPHandler)
	diff := deadline.Sub(expectedDeadline).Abs()
	if diff > 100*time.Millisecond {
		t.Errorf("Deadline diff too large: %v", diff)
	}
}

func TestTimeoutHierarchyPreservation(t *testing.T) {
	// Verify that child contexts respect parent deadlines
	config := DefaultTimeoutConfig()

	// Create parent context with 5 second timeout
	parent, parentCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer parentCancel()

	// Try to create child with longer timeout
	child, childCancel := config.HandlerContext(parent)
	defer childCancel()

	// Child should inherit parent's shorter deadline
	parentDeadline, _ := parent.Deadline()
	childDeadline, _ := child.Deadline()

	// Child deadline should be same or earlier than parent
	if childDeadline.After(parentDeadline) {
		t.Errorf("Child deadline (%v) should not be after parent deadline (%v)",
			childDeadline, parentDeadline)
	}
}

func TestContextCancellationPropagation(t *testing.T) {
	config := DefaultTimeoutConfig()
	parent := context.Background()

	ctx, cancel := config.ServiceContext(parent)

	// Cancel context
	cancel()

	// Verify context is cancelled
	select {
	case <-ctx.Done():
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Error("Context should be cancelled immediately")
	}

	// Verify error is context.Canceled
	if ctx.Err() != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", ctx.Err())
	}
}

func TestContextTimeout(t *testing.T) {
	// Use test config for faster tests
	config := TestTimeoutConfig()
	parent := context.Background()

	// Create context with 100ms timeout
	config.Service = 100 * time.Millisecond
	ctx, cancel := config.ServiceContext(parent)
	defer cancel()

	// Wait for timeout
	select {
	case <-ctx.Done():
		// Verify error is DeadlineExceeded
		if ctx.Err() != context.DeadlineExceeded {
			t.Errorf("Expected context.DeadlineExceeded, got %v", ctx.Err())
		}
	case <-time.After(200 * time.Millisecond):
		t.Error("Context should timeout after 100ms")
	}
}

func TestAllContextCreators(t *testing.T) {
	config := DefaultTimeoutConfig()
	parent := context.Background()

	tests := []struct {
		name    string
		creator func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"HandlerContext", config.HandlerContext, config.HTTPHandler},
		{"ServiceContext", config.ServiceContext, config.Service},
		{"CriticalPathContext", config.CriticalPathContext, config.ServiceCritical},
		{"PayerAuthContext", config.PayerAuthContext, config.PayerAuth},
		{"RetryAttemptContext", config.RetryAttemptContext, config.SingleRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.creator(parent)
			defer cancel()

			// Verify deadline exists
			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatalf("%s should have deadline", tt.name)
			}

			// Verify deadline is approximately correct
			expectedDeadline := time.Now().Add(tt.timeout)
			diff := deadline.Sub(expectedDeadline).Abs()
			if diff > 100*time.Millisecond {
				t.Errorf("%s: deadline diff too large: %v (expected ~%v)",
					tt.name, diff, tt.timeout)
			}
		})
	}
}

func TestTimeoutBudget(t *testing.T) {
	config := DefaultTimeoutConfig()

	// The authenticate and complete legs block on the ACS for up to the
	// payer auth timeout; the handler budget must leave room for session
	// loads and persistence on either side of that call.
	minServiceBudget := config.PayerAuth + 2*time.Second
	if config.Service < minServiceBudget {
		t.Errorf("Service timeout (%v) insufficient for a full challenge leg (need >= %v)",
			config.Service, minServiceBudget)
	}

	// Verify PayerAuth timeout allows for at least one full retry attempt
	if config.PayerAuth < config.SingleRetry {
		t.Errorf("PayerAuth (%v) must be >= SingleRetry (%v)",
			config.PayerAuth, config.SingleRetry)
	}

	// Verify HTTPHandler has buffer beyond Service timeout
	if config.HTTPHandler <= config.Service {
		t.Errorf("HTTPHandler (%v) must be > Service (%v)",
			config.HTTPHandler, config.Service)
	}
}
