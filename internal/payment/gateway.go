// Package payment wraps the 3-D Secure payment provider's HTTP API.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const StatusSuccess = "success"

type BasketItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type InitRequest struct {
	Locale         string       `json:"locale"`
	ConversationID string       `json:"conversationId"`
	Price          float64      `json:"price"`
	PaidPrice      float64      `json:"paidPrice"`
	Currency       string       `json:"currency"`
	CallbackURL    string       `json:"callbackUrl"`
	BuyerEmail     string       `json:"buyerEmail"`
	BuyerName      string       `json:"buyerName"`
	BasketItems    []BasketItem `json:"basketItems"`
}

// InitResult carries the bank's 3-D Secure challenge page, which the
// storefront renders to send the customer to their bank.
type InitResult struct {
	Status       string `json:"status"`
	HTMLContent  string `json:"threeDSHtmlContent"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type CaptureRequest struct {
	Locale           string `json:"locale"`
	ConversationID   string `json:"conversationId"`
	PaymentID        string `json:"paymentId"`
	ConversationData string `json:"conversationData"`
}

type ItemTransaction struct {
	ItemID               string  `json:"itemId"`
	PaymentTransactionID string  `json:"paymentTransactionId"`
	Price                float64 `json:"price"`
	PaidPrice            float64 `json:"paidPrice"`
}

type CaptureResult struct {
	Status       string            `json:"status"`
	PaymentID    string            `json:"paymentId"`
	Price        float64           `json:"price"`
	PaidPrice    float64           `json:"paidPrice"`
	Items        []ItemTransaction `json:"itemTransactions"`
	ErrorCode    string            `json:"errorCode"`
	ErrorMessage string            `json:"errorMessage"`
}

type Gateway interface {
	Initialize3DS(ctx context.Context, req InitRequest) (*InitResult, error)
	Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
}

// Client talks to the provider over HTTP. Requests are authenticated with an
// HMAC-SHA256 signature over apiKey + random string + body, sent in the
// Authorization header the way the provider documents it.
type Client struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	HTTP      *http.Client
}

func NewClient(baseURL, apiKey, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Initialize3DS(ctx context.Context, req InitRequest) (*InitResult, error) {
	var res InitResult
	if err := c.post(ctx, "/payment/3dsecure/initialize", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Capture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	var res CaptureResult
	if err := c.post(ctx, "/payment/3dsecure/auth", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("payment: marshal request: %w", err)
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("payment: nonce: %w", err)
	}
	randStr := hex.EncodeToString(nonce)

	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	mac.Write([]byte(c.APIKey))
	mac.Write([]byte(randStr))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("payment: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("FMWS %s:%s", c.APIKey, signature))
	httpReq.Header.Set("x-fm-rnd", randStr)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payment: %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("payment: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("payment: %s returned %d: %s", path, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("payment: decode response: %w", err)
	}
	return nil
}
