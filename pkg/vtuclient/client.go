/**
 * @description
 * This package provides a client for the VTU Africa API, which backs
 * airtime-to-cash conversions and bill payments. The API is keyed by a merchant
 * API key passed as a query parameter and reports success through a numeric
 * status code in the response envelope.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, net/url, time: Standard Go libraries.
 */
package vtuclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// statusOK is VTU Africa's success code in response envelopes.
const statusOK = 101

// Client is a client for the VTU Africa API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new VTU Africa API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Envelope is the common response wrapper across VTU Africa endpoints.
type Envelope struct {
	Code        int             `json:"code"`
	Description json.RawMessage `json:"description"`
	Message     string          `json:"message,omitempty"`
}

// MerchantInfo describes the airtime-to-cash merchant line for a network.
type MerchantInfo struct {
	Message     string `json:"message"`
	PhoneNumber string `json:"Phone_Number"`
}

// ConversionResult is the parsed outcome of an airtime conversion request.
type ConversionResult struct {
	Confirmed bool
	Raw       json.RawMessage
}

// APIError represents a non-success envelope from the VTU Africa API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vtu africa api error (code %d): %s", e.Code, e.Message)
}

// VerifyAirtimeMerchant returns the merchant line a user must send airtime to
// for the given network, as the first step of a conversion.
func (c *Client) VerifyAirtimeMerchant(ctx context.Context, network string) (*MerchantInfo, error) {
	q := url.Values{}
	q.Set("apikey", c.APIKey)
	q.Set("serviceName", "Airtime2Cash")
	q.Set("network", network)

	env, err := c.get(ctx, "/merchant-verify/", q)
	if err != nil {
		return nil, err
	}

	var info MerchantInfo
	if err := json.Unmarshal(env.Description, &info); err != nil {
		return nil, fmt.Errorf("failed to decode merchant info: %w", err)
	}
	return &info, nil
}

// CompleteAirtimeConversion submits a conversion for the airtime the user sent,
// carrying the ledger reference so settlement events can be matched back.
func (c *Client) CompleteAirtimeConversion(ctx context.Context, network, senderPhone, receiverPhone, reference string, amount int64) (*ConversionResult, error) {
	q := url.Values{}
	q.Set("apikey", c.APIKey)
	q.Set("network", network)
	q.Set("sender", senderPhone)
	q.Set("sendernumber", senderPhone)
	q.Set("sitephone", receiverPhone)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("ref", reference)

	env, err := c.get(ctx, "/airtime-cash/", q)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{Confirmed: env.Code == statusOK, Raw: env.Description}, nil
}

// PayBill pays a bill through the named provider, carrying the ledger reference.
func (c *Client) PayBill(ctx context.Context, billType, provider, reference string, amount int64) (*ConversionResult, error) {
	q := url.Values{}
	q.Set("apikey", c.APIKey)
	q.Set("service", billType)
	q.Set("provider", provider)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("ref", reference)

	env, err := c.get(ctx, "/bills/", q)
	if err != nil {
		return nil, err
	}
	return &ConversionResult{Confirmed: env.Code == statusOK, Raw: env.Description}, nil
}

// get executes one GET request and decodes the response envelope, mapping
// non-success codes to *APIError.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		log.Printf("level=warn component=vtu_client path=%s status=%d msg=\"unparsable response body\"", path, resp.StatusCode)
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=vtu_client path=%s status=%d code=%d message=%q", path, resp.StatusCode, env.Code, env.Message)
		return nil, &APIError{Code: env.Code, Message: env.Message}
	}
	return &env, nil
}
