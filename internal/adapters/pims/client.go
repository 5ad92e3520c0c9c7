package pims

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
	"github.com/commercepay/payment-challenge-service/pkg/resilience"
)

const serviceName = "pims"

// Client implements InstrumentGateway over the payment instrument
// management service's REST API. Reads are retried with backoff;
// writes are sent exactly once.
type Client struct {
	baseURL     string
	httpClient  ports.HTTPClient
	logger      ports.Logger
	metrics     *observability.Metrics
	backoff     resilience.BackoffStrategy
	maxAttempts int
}

// NewClient creates an instrument management client.
func NewClient(baseURL string, httpClient ports.HTTPClient, logger ports.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      logger,
		metrics:     metrics,
		backoff:     resilience.DefaultExponentialBackoff(),
		maxAttempts: 3,
	}
}

type errorEnvelope struct {
	ErrorCode string                `json:"error_code"`
	Message   string                `json:"message"`
	Target    string                `json:"target,omitempty"`
	Inner     *pkgerrors.InnerError `json:"inner_error,omitempty"`
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveBackend(serviceName, operation, start)
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewServiceError(serviceName, 0, "NetworkError", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.NewServiceError(serviceName, resp.StatusCode, "ReadError", err.Error())
	}

	if resp.StatusCode >= 400 {
		var envelope errorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.ErrorCode == "" {
			envelope.ErrorCode = "ServiceError"
			envelope.Message = string(respBody)
		}
		svcErr := pkgerrors.NewServiceError(serviceName, resp.StatusCode, envelope.ErrorCode, envelope.Message)
		svcErr.Target = envelope.Target
		svcErr.Inner = envelope.Inner
		c.logger.Warn("instrument service returned error",
			ports.String("operation", operation),
			ports.Int("status_code", resp.StatusCode),
			ports.String("error_code", envelope.ErrorCode))
		return svcErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return pkgerrors.NewServiceError(serviceName, resp.StatusCode, "MalformedResponse",
				fmt.Sprintf("decoding %s response: %v", operation, err))
		}
	}
	return nil
}

// get retries idempotent reads on transport failures and 5xx
// responses. Writes never go through here.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	var err error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff.NextDelay(attempt - 1)):
			}
			c.logger.Debug("retrying instrument service read",
				ports.String("operation", operation),
				ports.Int("attempt", attempt))
		}
		err = c.do(ctx, operation, http.MethodGet, path, query, nil, out)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

func isRetryable(err error) bool {
	if svcErr, ok := pkgerrors.AsServiceError(err); ok {
		return svcErr.StatusCode == 0 || svcErr.StatusCode >= 500
	}
	return false
}

func queryValues(params *domain.InstrumentQueryParams) url.Values {
	q := url.Values{}
	if params == nil {
		return q
	}
	if params.Partner != "" {
		q.Set("partner", params.Partner)
	}
	if params.Country != "" {
		q.Set("country", params.Country)
	}
	if params.Language != "" {
		q.Set("language", params.Language)
	}
	if params.BillableAccountID != "" {
		q.Set("billableAccountId", params.BillableAccountID)
	}
	if params.ClassicProduct != "" {
		q.Set("classicProduct", params.ClassicProduct)
	}
	return q
}

// GetInstrument fetches an instrument scoped to the owning account.
func (c *Client) GetInstrument(ctx context.Context, accountID, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error) {
	var out domain.PaymentInstrument
	path := fmt.Sprintf("/%s/paymentInstruments/%s", url.PathEscape(accountID), url.PathEscape(instrumentID))
	if err := c.get(ctx, "GetInstrument", path, queryValues(params), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetExtendedInstrument fetches the cross-account extended view.
func (c *Client) GetExtendedInstrument(ctx context.Context, instrumentID string, params *domain.InstrumentQueryParams) (*domain.PaymentInstrument, error) {
	var out domain.PaymentInstrument
	path := fmt.Sprintf("/paymentInstruments/%s/extendedView", url.PathEscape(instrumentID))
	if err := c.get(ctx, "GetExtendedInstrument", path, queryValues(params), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateInstrument runs CVV-style validation against the instrument.
func (c *Client) ValidateInstrument(ctx context.Context, accountID, instrumentID string, req *domain.ValidationParameters) (*domain.ValidationResult, error) {
	var out domain.ValidationResult
	path := fmt.Sprintf("/%s/paymentInstruments/%s/validate", url.PathEscape(accountID), url.PathEscape(instrumentID))
	if err := c.do(ctx, "ValidateInstrument", http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkSession attaches a challenge session to the instrument.
func (c *Client) LinkSession(ctx context.Context, accountID, instrumentID, sessionID string, params *domain.InstrumentQueryParams) error {
	path := fmt.Sprintf("/%s/paymentInstruments/%s/linkSession", url.PathEscape(accountID), url.PathEscape(instrumentID))
	body := map[string]string{"payment_session_id": sessionID}
	return c.do(ctx, "LinkSession", http.MethodPost, path, queryValues(params), body, nil)
}
