package external

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitleague/internal/types"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayClient talks to the Razorpay Orders API. Order creation goes
// through the BaseClient for resilience; signature verification is pure
// local HMAC computation and never leaves the process.
type RazorpayClient struct {
	base          *BaseClient
	baseURL       string
	keyID         string
	keySecret     types.SecretString
	webhookSecret types.SecretString
}

// RazorpayOption is a functional option for configuring a RazorpayClient.
type RazorpayOption func(*RazorpayClient)

// WithBaseURL overrides the API base URL. Used in tests to point at a
// local httptest server.
func WithBaseURL(url string) RazorpayOption {
	return func(c *RazorpayClient) {
		c.baseURL = url
	}
}

// NewRazorpayClient creates a gateway client authenticated with the given
// key pair. The webhook secret is used only for webhook signature checks.
func NewRazorpayClient(
	base *BaseClient,
	keyID string,
	keySecret types.SecretString,
	webhookSecret types.SecretString,
	opts ...RazorpayOption,
) *RazorpayClient {
	c := &RazorpayClient{
		base:          base,
		baseURL:       defaultRazorpayBaseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type gatewayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a payment order for the given amount in the lowest
// currency subunit (paise for INR). The receipt ties the order back to the
// league it pays for.
func (c *RazorpayClient) CreateOrder(
	ctx context.Context,
	amount int64,
	currency string,
	receipt string,
	notes map[string]string,
) (*types.PaymentOrder, error) {
	if amount <= 0 {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidField,
			fmt.Sprintf("order amount must be positive, got %d", amount),
			nil,
		)
	}

	payload, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to encode order request",
			err,
		)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/orders",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to build order request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGateway,
			"failed to read order response",
			err,
		)
	}

	if resp.StatusCode != http.StatusOK {
		var gwErr gatewayErrorResponse
		msg := fmt.Sprintf("order creation failed with status %d", resp.StatusCode)
		if json.Unmarshal(body, &gwErr) == nil && gwErr.Error.Description != "" {
			msg = fmt.Sprintf("order creation failed: %s", gwErr.Error.Description)
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamGateway, msg, nil)
	}

	var order orderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGateway,
			"failed to decode order response",
			err,
		)
	}
	if order.ID == "" {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamGateway,
			"order response missing order id",
			nil,
		)
	}

	return &types.PaymentOrder{
		ID:        order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   order.Receipt,
		Status:    order.Status,
		CreatedAt: time.Unix(order.CreatedAt, 0).UTC(),
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature: an
// HMAC-SHA256 of "<orderID>|<paymentID>" keyed with the API secret,
// hex encoded. Comparison is constant time.
func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := hmacHex(c.keySecret.Unmask(), []byte(orderID+"|"+paymentID))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header on a webhook
// delivery: an HMAC-SHA256 of the raw request body keyed with the webhook
// secret, hex encoded.
func (c *RazorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := hmacHex(c.webhookSecret.Unmask(), body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func hmacHex(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
