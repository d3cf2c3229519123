// Package identity asks the identity service who is behind a bearer
// credential. The credential is never decoded locally.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models"
)

const DefaultTimeout = 5 * time.Second

var (
	// ErrRejected means the identity service refused the credential.
	ErrRejected = errors.New("credential rejected")
	// ErrUnavailable means the identity service could not be asked.
	ErrUnavailable = errors.New("identity service unavailable")
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Valid bool            `json:"valid"`
	User  models.Identity `json:"user"`
}

// Verify resolves authToken through GET {baseURL}/verify.
func (c *Client) Verify(ctx context.Context, authToken string) (models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verify", nil)
	if err != nil {
		return models.Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.Identity{}, ErrRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return models.Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.Identity{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !decoded.Valid || decoded.User.UserID == "" {
		return models.Identity{}, ErrRejected
	}
	return decoded.User, nil
}

var _ interfaces.IdentityVerifier = (*Client)(nil)
