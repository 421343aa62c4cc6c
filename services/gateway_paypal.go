package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"economy-engine/utils"
)

// PayPalGateway drives the PayPal Orders v2 API. The approve link from the
// created order is the checkout URL; the PayPal order id is our opaque
// provider transaction id.
type PayPalGateway struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

func NewPayPalGateway() *PayPalGateway {
	baseURL := os.Getenv("PAYPAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalGateway{
		BaseURL:      baseURL,
		ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		HTTPClient:   utils.HTTPClient,
	}
}

func (g *PayPalGateway) Name() string { return "paypal" }

func (g *PayPalGateway) CreateTransaction(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, &GatewayError{Provider: g.Name(), Op: "oauth token", Err: err}
	}

	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": req.OrderID,
				"description":  req.ItemDescription,
				"amount": map[string]string{
					"currency_code": req.Currency,
					"value":         minorUnitsToDecimal(req.Amount),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": req.RedirectURL,
			"cancel_url": req.RedirectURL,
		},
	}

	var created struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", token, body, &created); err != nil {
		return nil, &GatewayError{Provider: g.Name(), Op: "create order", Err: err}
	}

	approveURL := ""
	for _, l := range created.Links {
		if l.Rel == "approve" {
			approveURL = l.Href
			break
		}
	}
	if created.ID == "" || approveURL == "" {
		return nil, &GatewayError{Provider: g.Name(), Op: "create order",
			Err: fmt.Errorf("response missing order id or approve link")}
	}

	return &CheckoutSession{CheckoutURL: approveURL, ProviderTransactionID: created.ID}, nil
}

func (g *PayPalGateway) VerifyPayment(ctx context.Context, providerTransactionID string) (PaymentStatus, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return PaymentStatusUnknown, &GatewayError{Provider: g.Name(), Op: "oauth token", Err: err}
	}

	var order struct {
		Status string `json:"status"`
	}
	path := "/v2/checkout/orders/" + providerTransactionID
	if err := g.doJSON(ctx, http.MethodGet, path, token, nil, &order); err != nil {
		return PaymentStatusUnknown, &GatewayError{Provider: g.Name(), Op: "get order", Err: err}
	}

	switch order.Status {
	case "COMPLETED":
		return PaymentStatusPaid, nil
	case "CREATED", "SAVED", "APPROVED", "PAYER_ACTION_REQUIRED":
		return PaymentStatusPending, nil
	case "VOIDED":
		return PaymentStatusFailed, nil
	default:
		return PaymentStatusUnknown, nil
	}
}

// accessToken exchanges the client credentials for a bearer token.
func (g *PayPalGateway) accessToken(ctx context.Context) (string, error) {
	if g.ClientID == "" || g.ClientSecret == "" {
		return "", fmt.Errorf("PAYPAL_CLIENT_ID / PAYPAL_CLIENT_SECRET not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/v1/oauth2/token", bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.ClientID, g.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access_token")
	}
	return payload.AccessToken, nil
}

func (g *PayPalGateway) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
