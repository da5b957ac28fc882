package stripegw

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the card payment gateway. It is constructed once at process
// start and injected wherever payments are orchestrated; it keeps no global
// state.
type Client struct {
	HTTP          *http.Client
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	Currency      string
}

func New(secretKey, webhookSecret, baseURL, currency string) *Client {
	return &Client{
		HTTP:          &http.Client{Timeout: 15 * time.Second},
		SecretKey:     secretKey,
		WebhookSecret: webhookSecret,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Currency:      currency,
	}
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"` // smallest currency unit
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent opens a payment intent for amount. The gateway expects the
// smallest currency unit, so 10.50 goes over the wire as 1050.
func (c *Client) CreateIntent(amount decimal.Decimal, customerRef string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", amount.Shift(2).IntPart()))
	form.Set("currency", c.Currency)
	if customerRef != "" {
		form.Set("customer", customerRef)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent Intent
	if err := c.post("/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Confirm confirms a payment intent and returns the gateway status string
// (e.g. "succeeded", "processing", "requires_action").
func (c *Client) Confirm(intentID string) (string, error) {
	var intent Intent
	if err := c.post("/payment_intents/"+intentID+"/confirm", url.Values{}, &intent); err != nil {
		return "", err
	}
	return intent.Status, nil
}

// CancelIntent voids an intent that has not been captured yet.
func (c *Client) CancelIntent(intentID string) (string, error) {
	var intent Intent
	if err := c.post("/payment_intents/"+intentID+"/cancel", url.Values{}, &intent); err != nil {
		return "", err
	}
	return intent.Status, nil
}

// CreateRefund refunds an intent. A nil amount refunds the full charge.
func (c *Client) CreateRefund(intentID string, amount *decimal.Decimal) (*Refund, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amount != nil {
		form.Set("amount", fmt.Sprintf("%d", amount.Shift(2).IntPart()))
	}

	var refund Refund
	if err := c.post("/refunds", form, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// VerifySignature checks the HMAC-SHA256 signature the gateway attaches to
// webhook deliveries. Payloads failing this check must not be trusted.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(c.WebhookSecret))
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *Client) post(path string, form url.Values, out interface{}) error {
	req, err := http.NewRequest("POST", c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(bodyBytes, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gateway: %s", apiErr.Error.Message)
		}
		return fmt.Errorf("gateway: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %v", err)
	}
	return nil
}
