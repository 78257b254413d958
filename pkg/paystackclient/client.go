/**
 * @description
 * This package provides a client for interacting with the Paystack API. It
 * encapsulates the logic for making authenticated HTTP requests to Paystack's
 * endpoints, handling request body construction, and parsing responses.
 *
 * The ledger-service uses Paystack for deposits (transaction initialization and
 * verification), bank account resolution, and outbound transfers backing
 * withdrawals. Amounts are always expressed in kobo.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, io, net/http, net/url, time: Standard Go libraries.
 */
package paystackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client is a client for the Paystack API.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// NewClient creates a new Paystack API client.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// InitializeRequest is the payload for Paystack's transaction initialize endpoint.
type InitializeRequest struct {
	Email  string `json:"email"`
	Amount int64  `json:"amount"` // in kobo
}

// InitializeResponse is Paystack's response to a transaction initialization.
type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// VerifyResponse is Paystack's response to a transaction verification.
type VerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"` // "success", "failed", "abandoned"
		Amount    int64  `json:"amount"` // in kobo
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

// ResolveResponse is Paystack's response to a bank account resolution.
type ResolveResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
		BankID        int    `json:"bank_id"`
	} `json:"data"`
}

// TransferRequest is the payload for Paystack's transfer endpoint.
type TransferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"` // in kobo
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

// TransferResponse is Paystack's response to a transfer initiation.
type TransferResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
		Status       string `json:"status"` // "success", "pending", "otp"
	} `json:"data"`
}

// ErrorResponse represents an error payload from the Paystack API.
type ErrorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("paystack api error: %s", e.Message)
	}
	return "unknown paystack api error"
}

// InitializeDeposit creates a Paystack transaction and returns the gateway
// reference and the authorization URL the customer completes payment at.
func (c *Client) InitializeDeposit(ctx context.Context, email string, amount int64) (*InitializeResponse, error) {
	var out InitializeResponse
	err := c.do(ctx, "POST", "/transaction/initialize", InitializeRequest{Email: email, Amount: amount}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyDeposit fetches the settlement status of a previously initialized
// transaction by its gateway reference.
func (c *Client) VerifyDeposit(ctx context.Context, reference string) (*VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, "GET", "/transaction/verify/"+url.PathEscape(reference), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveBankAccount resolves an account number and bank code to the account
// holder's name before a withdrawal is initiated.
func (c *Client) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*ResolveResponse, error) {
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s", url.QueryEscape(accountNumber), url.QueryEscape(bankCode))
	var out ResolveResponse
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitiateTransfer starts an outbound transfer backing a withdrawal. The
// caller supplies the ledger reference so the asynchronous settlement event can
// be matched back to the transaction row.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode, reference, reason string, amount int64) (*TransferResponse, error) {
	req := TransferRequest{
		Source:    "balance",
		Amount:    amount,
		Recipient: recipientCode,
		Reference: reference,
		Reason:    reason,
	}
	var out TransferResponse
	if err := c.do(ctx, "POST", "/transfer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one authenticated request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=paystack_client path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", path, resp.StatusCode)
			return fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=paystack_client path=%s status=%d message=%q", path, resp.StatusCode, errResp.Message)
		return &errResp
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode success response: %w", err)
	}
	return nil
}
