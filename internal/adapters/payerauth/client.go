package payerauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/commercepay/payment-challenge-service/internal/domain"
	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
)

const serviceName = "payerauth"

// Client implements AuthenticationGateway over the payer authentication
// backend's REST API.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient ports.HTTPClient
	logger     ports.Logger
	metrics    *observability.Metrics
}

// NewClient creates a payer authentication client.
func NewClient(baseURL, apiVersion string, httpClient ports.HTTPClient, logger ports.Logger, metrics *observability.Metrics) *Client {
	if apiVersion == "" {
		apiVersion = "v3"
	}
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
}

// errorEnvelope is the backend's error payload shape.
type errorEnvelope struct {
	ErrorCode string                `json:"error_code"`
	Message   string                `json:"message"`
	Target    string                `json:"target,omitempty"`
	Inner     *pkgerrors.InnerError `json:"inner_error,omitempty"`
}

// post issues a JSON POST and decodes the response into out.
func (c *Client) post(ctx context.Context, operation, path string, body, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveBackend(serviceName, operation, start)
		}
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", operation, err)
	}

	url := fmt.Sprintf("%s/%s%s", c.baseURL, c.apiVersion, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
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
		return c.decodeError(operation, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return pkgerrors.NewServiceError(serviceName, resp.StatusCode, "MalformedResponse",
				fmt.Sprintf("decoding %s response: %v", operation, err))
		}
	}
	return nil
}

func (c *Client) decodeError(operation string, statusCode int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ErrorCode == "" {
		envelope.ErrorCode = "ServiceError"
		envelope.Message = string(body)
	}
	svcErr := pkgerrors.NewServiceError(serviceName, statusCode, envelope.ErrorCode, envelope.Message)
	svcErr.Target = envelope.Target
	svcErr.Inner = envelope.Inner
	c.logger.Warn("payer auth backend returned error",
		ports.String("operation", operation),
		ports.Int("status_code", statusCode),
		ports.String("error_code", envelope.ErrorCode))
	return svcErr
}

// CreateSession allocates a backend session id for the payment.
func (c *Client) CreateSession(ctx context.Context, req *domain.SessionRequest) (*domain.SessionResponse, error) {
	var out domain.SessionResponse
	if err := c.post(ctx, "CreateSession", "/paymentSessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetThreeDSMethodURL fetches the ACS fingerprinting endpoint, if any.
func (c *Client) GetThreeDSMethodURL(ctx context.Context, req *domain.SessionRequest) (*domain.MethodData, error) {
	var out domain.MethodData
	if err := c.post(ctx, "GetThreeDSMethodURL", "/getThreeDSMethodURL", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authenticate runs the 3DS2 authentication leg.
func (c *Client) Authenticate(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error) {
	var out domain.AuthenticationResponse
	if err := c.post(ctx, "Authenticate", "/authenticate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateThreeDSOne runs the legacy 3DS1 authentication leg.
func (c *Client) AuthenticateThreeDSOne(ctx context.Context, req *domain.AuthenticationRequest) (*domain.AuthenticationResponse, error) {
	var out domain.AuthenticationResponse
	if err := c.post(ctx, "AuthenticateThreeDSOne", "/authenticateThreeDSOne", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteChallenge reports the 3DS2 challenge result.
func (c *Client) CompleteChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	var out domain.CompletionResponse
	if err := c.post(ctx, "CompleteChallenge", "/completeChallenge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CompleteThreeDSOneChallenge reports the legacy 3DS1 challenge result.
func (c *Client) CompleteThreeDSOneChallenge(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	var out domain.CompletionResponse
	if err := c.post(ctx, "CompleteThreeDSOneChallenge", "/completeThreeDSOneChallenge", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
