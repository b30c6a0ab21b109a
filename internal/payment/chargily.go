package payment

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
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

// Chargily is a Provider backed by the Chargily Pay v2 REST API.
type Chargily struct {
	baseURL   string
	secretKey string
	currency  string
	client    *http.Client
}

func NewChargily(baseURL, secretKey, currency string) *Chargily {
	return &Chargily{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		currency:  currency,
		client:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Chargily) CreateProduct(ctx context.Context, name, description string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/products", map[string]string{"name": name, "description": description}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: product id missing from response", ErrProvider)
	}
	return out.ID, nil
}

func (c *Chargily) CreatePrice(ctx context.Context, productID string, amount int64) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]interface{}{
		"product_id": productID,
		"amount":     amount,
		"currency":   c.currency,
	}
	if err := c.post(ctx, "/prices", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: price id missing from response", ErrProvider)
	}
	return out.ID, nil
}

type checkoutItem struct {
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type checkoutRequest struct {
	Items      []checkoutItem   `json:"items"`
	SuccessURL string           `json:"success_url"`
	Metadata   CheckoutMetadata `json:"metadata"`
}

func (c *Chargily) CreateCheckout(ctx context.Context, priceID, redirectURL string, metadata CheckoutMetadata) (string, error) {
	var out struct {
		CheckoutURL string `json:"checkout_url"`
	}
	req := checkoutRequest{
		Items:      []checkoutItem{{Price: priceID, Quantity: 1}},
		SuccessURL: redirectURL,
		Metadata:   metadata,
	}
	if err := c.post(ctx, "/checkouts", req, &out); err != nil {
		return "", err
	}
	if out.CheckoutURL == "" {
		return "", fmt.Errorf("%w: checkout_url missing from response", ErrProvider)
	}
	return out.CheckoutURL, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw payload.
func (c *Chargily) VerifyWebhookSignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(payload, c.secretKey))
}

// Sign returns the raw HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func (c *Chargily) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", ErrProvider, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", ErrProvider, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("body", truncate(string(respBody), 500)).
			Msg("payment provider rejected request")
		return fmt.Errorf("%w: POST %s returned %d", ErrProvider, path, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrProvider, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
