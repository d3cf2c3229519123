// Package account talks to the account service, which owns balances and
// decides whether a debit or credit is allowed.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

// DefaultTimeout bounds a single balance mutation.
const DefaultTimeout = 10 * time.Second

const maxResponseBody = 64 << 10

// UpstreamError is a non-2xx answer from the account service. Body holds
// the response payload as received.
type UpstreamError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *UpstreamError) Error() string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(e.Body, &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("account service returned %d: %s", e.StatusCode, payload.Error)
	}
	return fmt.Sprintf("account service returned %d", e.StatusCode)
}

// Detail returns what callers should see: the upstream JSON when there is
// one, the raw text otherwise.
func (e *UpstreamError) Detail() any {
	if json.Valid(e.Body) {
		return e.Body
	}
	return strings.TrimSpace(string(e.Body))
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a client for the account service at baseURL. A zero
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type mutationBody struct {
	Amount      decimal.Decimal `json:"amount"`
	Operation   string          `json:"operation"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

type mutationResponse struct {
	Account models.AccountSnapshot `json:"account"`
}

// Mutate applies one leg. authToken is forwarded as is.
func (c *Client) Mutate(ctx context.Context, req interfaces.MutationRequest, authToken string) (models.AccountSnapshot, error) {
	if req.Operation != interfaces.OperationDebit && req.Operation != interfaces.OperationCredit {
		return models.AccountSnapshot{}, fmt.Errorf("unknown operation %q", req.Operation)
	}

	payload, err := json.Marshal(mutationBody{
		Amount:      req.Amount,
		Operation:   string(req.Operation),
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		return models.AccountSnapshot{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/accounts/%s/balance", c.baseURL, url.PathEscape(req.Account))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return models.AccountSnapshot{}, fmt.Errorf("%s %s: timed out after %s: %w", req.Operation, req.Account, c.timeout, err)
		}
		return models.AccountSnapshot{}, fmt.Errorf("%s %s: %w", req.Operation, req.Account, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return models.AccountSnapshot{}, fmt.Errorf("%s %s: read response: %w", req.Operation, req.Account, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.AccountSnapshot{}, &UpstreamError{StatusCode: resp.StatusCode, Body: body}
	}

	var decoded mutationResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return models.AccountSnapshot{}, fmt.Errorf("%s %s: decode response: %w", req.Operation, req.Account, err)
		}
	}
	snapshot := decoded.Account
	snapshot.Raw = body
	return snapshot, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ interfaces.BalanceMutator = (*Client)(nil)
