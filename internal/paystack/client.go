// Package paystack is the HTTP client for Paystack's transaction API. Both
// calls are single-attempt and fail fast; recovery is left to the caller's
// own trigger (webhook redelivery, buyer retrying checkout).
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tollgate/internal/settlement"
)

// DefaultBaseURL is Paystack's production API root.
const DefaultBaseURL = "https://api.paystack.co"

const defaultTimeout = 60 * time.Second

// ErrGatewayDisabled signals the gateway is switched off in configuration.
var ErrGatewayDisabled = errors.New("paystack gateway is disabled")

// ErrMissingSecretKey signals the mode-selected secret key is empty. The
// client fails closed: no call is attempted without a credential.
var ErrMissingSecretKey = errors.New("paystack secret key is not configured")

// Config holds credentials and call behavior for the Paystack client.
type Config struct {
	BaseURL string
	Enabled bool
	// Demo selects the test credential pair instead of the live one.
	Demo          bool
	TestSecretKey string
	LiveSecretKey string
	Timeout       time.Duration
}

// Client issues initialize and verify calls against Paystack.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient constructs a Client, selecting the secret key by mode. Returns an
// error when the gateway is disabled or the selected key is empty.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrGatewayDisabled
	}
	secret := cfg.LiveSecretKey
	if cfg.Demo {
		secret = cfg.TestSecretKey
	}
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecretKey
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: base,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Reference   string `json:"reference"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
}

// Initialize opens a transaction and returns the hosted-payment URL. The
// amount is already in minor units; the order id is the reference.
func (c *Client) Initialize(ctx context.Context, email string, amountMinor int64, callbackURL, reference string) (string, error) {
	body, err := json.Marshal(initializeRequest{
		Email:       email,
		Amount:      amountMinor,
		CallbackURL: callbackURL,
		Reference:   reference,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("initialize transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("initialize transaction: unexpected status %s", resp.Status)
	}

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("initialize transaction: decode response: %w", err)
	}
	if !parsed.Status || parsed.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("initialize transaction rejected: %s", parsed.Message)
	}
	return parsed.Data.AuthorizationURL, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

// Verify checks a transaction reference with the provider. A transport error
// or unparsable body returns an error; a response the provider produced, even
// a declining one, is a Verification. The body is parsed regardless of HTTP
// status because Paystack reports unknown references as JSON on non-200.
func (c *Client) Verify(ctx context.Context, reference string) (settlement.Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return settlement.Verification{}, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return settlement.Verification{}, fmt.Errorf("verify transaction: %w", err)
	}
	defer resp.Body.Close()

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return settlement.Verification{}, fmt.Errorf("verify transaction: decode response: %w", err)
	}

	return settlement.Verification{
		Succeeded:   parsed.Status && parsed.Data.Status == "success",
		AmountMinor: parsed.Data.Amount,
		Message:     parsed.Message,
	}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
}
