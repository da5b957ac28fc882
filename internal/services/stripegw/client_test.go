package stripegw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := New("sk_test", "whsec_test", "https://gateway.example.com", "usd")
	payload := []byte(`{"type":"payment_succeeded","object_id":"pi_123"}`)

	assert.True(t, c.VerifySignature(payload, sign("whsec_test", payload)))
	assert.True(t, c.VerifySignature(payload, "  "+sign("whsec_test", payload)+"\n"))

	assert.False(t, c.VerifySignature(payload, sign("wrong_secret", payload)))
	assert.False(t, c.VerifySignature(payload, ""))
	assert.False(t, c.VerifySignature([]byte(`{"tampered":true}`), sign("whsec_test", payload)))
}

func TestCreateIntentSendsSmallestUnit(t *testing.T) {
	var gotAmount, gotCurrency, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAmount = r.PostForm.Get("amount")
		gotCurrency = r.PostForm.Get("currency")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"pi_123","client_secret":"cs_abc","status":"requires_confirmation"}`))
	}))
	defer srv.Close()

	c := New("sk_test", "whsec_test", srv.URL, "usd")
	intent, err := c.CreateIntent(decimal.RequireFromString("10.50"), "cus_1", map[string]string{"booking_id": "b1"})
	require.NoError(t, err)

	assert.Equal(t, "1050", gotAmount)
	assert.Equal(t, "usd", gotCurrency)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "cs_abc", intent.ClientSecret)
}

func TestConfirmReturnsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_intents/pi_123/confirm", r.URL.Path)
		w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`))
	}))
	defer srv.Close()

	c := New("sk_test", "whsec_test", srv.URL, "usd")
	status, err := c.Confirm("pi_123")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", status)
}

func TestPostSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined."}}`))
	}))
	defer srv.Close()

	c := New("sk_test", "whsec_test", srv.URL, "usd")
	_, err := c.Confirm("pi_123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestCreateRefundFullAndPartial(t *testing.T) {
	var gotIntent, gotAmount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotIntent = r.PostForm.Get("payment_intent")
		gotAmount = r.PostForm.Get("amount")
		w.Write([]byte(`{"id":"re_1","status":"succeeded","amount":1050}`))
	}))
	defer srv.Close()

	c := New("sk_test", "whsec_test", srv.URL, "usd")

	_, err := c.CreateRefund("pi_123", nil)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", gotIntent)
	assert.Empty(t, gotAmount)

	partial := decimal.RequireFromString("5.25")
	_, err = c.CreateRefund("pi_123", &partial)
	require.NoError(t, err)
	assert.Equal(t, "525", gotAmount)
}
