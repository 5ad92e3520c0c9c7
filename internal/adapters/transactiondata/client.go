package transactiondata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/commercepay/payment-challenge-service/internal/domain/ports"
	pkgerrors "github.com/commercepay/payment-challenge-service/pkg/errors"
	"github.com/commercepay/payment-challenge-service/pkg/observability"
)

const serviceName = "transactiondata"

// Client implements TransactionDataGateway over the transaction data
// service's REST API.
type Client struct {
	baseURL    string
	httpClient ports.HTTPClient
	logger     ports.Logger
	metrics    *observability.Metrics
}

// NewClient creates a transaction data client.
func NewClient(baseURL string, httpClient ports.HTTPClient, logger ports.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
}

type attestationRequest struct {
	SessionID                 string `json:"payment_session_id"`
	CustomerChallengeAttested bool   `json:"customer_challenge_attested"`
}

// UpdateChallengeAttestation records the customer's challenge outcome.
func (c *Client) UpdateChallengeAttestation(ctx context.Context, accountID, sessionID string, verified bool) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ObserveBackend(serviceName, "UpdateChallengeAttestation", start)
		}
	}()

	payload, err := json.Marshal(attestationRequest{
		SessionID:                 sessionID,
		CustomerChallengeAttested: verified,
	})
	if err != nil {
		return fmt.Errorf("encoding attestation request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/challengeAttestations", c.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building attestation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.NewServiceError(serviceName, 0, "NetworkError", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("transaction data service rejected attestation",
			ports.String("session_id", sessionID),
			ports.Int("status_code", resp.StatusCode))
		return pkgerrors.NewServiceError(serviceName, resp.StatusCode, "AttestationRejected", string(body))
	}
	return nil
}
