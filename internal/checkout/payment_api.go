package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	createOrderPath   = "/api/razorpay/create-order"
	verifyPaymentPath = "/api/razorpay/verify-payment"
)

// PaymentBackend is the server side of checkout.
type PaymentBackend interface {
	CreateOrder(ctx context.Context, token string, req OrderRequest) (*Order, error)
	VerifyPayment(ctx context.Context, token string, payload json.RawMessage) (*Verification, error)
}

type OrderRequest struct {
	CourseID   string `json:"courseId"`
	CouponCode string `json:"couponCode,omitempty"`
}

type Order struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type Verification struct {
	OK           bool   `json:"ok"`
	EnrollmentID string `json:"enrollmentId,omitempty"`
}

// PaymentAPI calls the backend payment endpoints with the caller's identity token.
type PaymentAPI struct {
	baseURL string
	client  *http.Client
}

func NewPaymentAPI(baseURL string, timeout time.Duration) *PaymentAPI {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PaymentAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *PaymentAPI) CreateOrder(ctx context.Context, token string, req OrderRequest) (*Order, error) {
	var out Order
	if err := a.post(ctx, createOrderPath, token, req, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, fmt.Errorf("create order: response has no orderId")
	}
	return &out, nil
}

// VerifyPayment forwards the widget's result payload unchanged.
func (a *PaymentAPI) VerifyPayment(ctx context.Context, token string, payload json.RawMessage) (*Verification, error) {
	var out Verification
	if err := a.post(ctx, verifyPaymentPath, token, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *PaymentAPI) post(ctx context.Context, path, token string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
