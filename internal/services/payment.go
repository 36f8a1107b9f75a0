package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopmate/backend/internal/config"
	"github.com/shopspring/decimal"
)

// PaymentService requests a payment intent from the external provider.
// The client secret goes back to the buyer for client-side confirmation;
// the intent id links the payment row to the provider.
type PaymentService interface {
	CreateIntent(ctx context.Context, orderID int64, amount decimal.Decimal) (clientSecret, intentID string, err error)
}

// StripePayments talks to the Stripe payment-intents endpoint.
type StripePayments struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewStripePayments(cfg config.PaymentConfig) *StripePayments {
	return &StripePayments{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *StripePayments) CreateIntent(ctx context.Context, orderID int64, amount decimal.Decimal) (string, string, error) {
	// Stripe amounts are integral minor units.
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(cents, 10))
	form.Set("currency", "usd")
	form.Set("metadata[order_id]", strconv.FormatInt(orderID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.secretKey, "")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Error        struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decode payment response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, body.Error.Message)
	}
	if body.ClientSecret == "" || body.ID == "" {
		return "", "", fmt.Errorf("payment provider returned an empty intent")
	}

	return body.ClientSecret, body.ID, nil
}

var _ PaymentService = (*StripePayments)(nil)
