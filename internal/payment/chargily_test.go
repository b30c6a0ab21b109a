package payment

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewChargily("https://pay.example.com", "test_sk_secret", "dzd")
	payload := []byte(`{"type":"checkout.paid"}`)
	valid := hex.EncodeToString(Sign(payload, "test_sk_secret"))

	t.Run("accepts matching signature", func(t *testing.T) {
		assert.True(t, c.VerifyWebhookSignature(payload, valid))
	})

	t.Run("rejects tampered payload", func(t *testing.T) {
		assert.False(t, c.VerifyWebhookSignature([]byte(`{"type":"checkout.failed"}`), valid))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		other := hex.EncodeToString(Sign(payload, "other"))
		assert.False(t, c.VerifyWebhookSignature(payload, other))
	})

	t.Run("rejects empty and malformed signatures", func(t *testing.T) {
		assert.False(t, c.VerifyWebhookSignature(payload, ""))
		assert.False(t, c.VerifyWebhookSignature(payload, "not-hex"))
	})
}

func TestChargilyRequests(t *testing.T) {
	var seen []map[string]interface{}
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		seen = append(seen, body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/products":
			w.Write([]byte(`{"id":"prod_1"}`))
		case "/prices":
			w.Write([]byte(`{"id":"price_1"}`))
		case "/checkouts":
			w.Write([]byte(`{"id":"chk_1","checkout_url":"https://pay.example.com/checkout/chk_1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewChargily(srv.URL+"/", "sk_test", "dzd")
	ctx := context.Background()

	productID, err := c.CreateProduct(ctx, "weather", "forecasts")
	require.NoError(t, err)
	assert.Equal(t, "prod_1", productID)

	priceID, err := c.CreatePrice(ctx, productID, 2500)
	require.NoError(t, err)
	assert.Equal(t, "price_1", priceID)

	url, err := c.CreateCheckout(ctx, priceID, "https://app.example.com/done", CheckoutMetadata{
		UserID: "42", APIID: "1", PlanName: "basic",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/checkout/chk_1", url)

	require.Len(t, seen, 3)
	for _, a := range auth {
		assert.Equal(t, "Bearer sk_test", a)
	}
	assert.Equal(t, "weather", seen[0]["name"])
	assert.Equal(t, "dzd", seen[1]["currency"])
	assert.Equal(t, float64(2500), seen[1]["amount"])
	assert.Equal(t, "https://app.example.com/done", seen[2]["success_url"])

	items := seen[2]["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "price_1", items[0].(map[string]interface{})["price"])
	assert.Equal(t, float64(1), items[0].(map[string]interface{})["quantity"])

	meta := seen[2]["metadata"].(map[string]interface{})
	assert.Equal(t, float64(42), meta["user_id"])
	assert.Equal(t, "basic", meta["plan_name"])
}

func TestChargilyProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewChargily(srv.URL, "sk_test", "dzd")
	_, err := c.CreateProduct(context.Background(), "x", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
}

func TestCheckoutMetadataAcceptsStringOrNumberIDs(t *testing.T) {
	var evt Event
	err := json.Unmarshal([]byte(`{"id":"evt_1","type":"checkout.paid","data":{"amount":2500,"metadata":{"user_id":"42","api_id":1,"plan_name":"basic"}}}`), &evt)
	require.NoError(t, err)

	userID, err := evt.Data.Metadata.UserID.Int64()
	require.NoError(t, err)
	apiID, err := evt.Data.Metadata.APIID.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, int64(1), apiID)
	assert.Equal(t, int64(2500), evt.Data.Amount)
}
