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

// MollieGateway drives the Mollie Payments v2 API. Mollie hands back a
// hosted checkout link directly, which makes it the default for EUR.
type MollieGateway struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewMollieGateway() *MollieGateway {
	baseURL := os.Getenv("MOLLIE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.mollie.com"
	}
	return &MollieGateway{
		BaseURL:    baseURL,
		APIKey:     os.Getenv("MOLLIE_API_KEY"),
		HTTPClient: utils.HTTPClient,
	}
}

func (g *MollieGateway) Name() string { return "mollie" }

func (g *MollieGateway) CreateTransaction(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if g.APIKey == "" {
		return nil, &GatewayError{Provider: g.Name(), Op: "create payment",
			Err: fmt.Errorf("MOLLIE_API_KEY not configured")}
	}

	body := map[string]interface{}{
		"amount": map[string]string{
			"currency": req.Currency,
			"value":    minorUnitsToDecimal(req.Amount),
		},
		"description": req.ItemDescription,
		"redirectUrl": req.RedirectURL,
		"metadata": map[string]string{
			"order_id": req.OrderID,
		},
	}

	var created struct {
		ID    string `json:"id"`
		Links struct {
			Checkout struct {
				Href string `json:"href"`
			} `json:"checkout"`
		} `json:"_links"`
	}
	if err := g.doJSON(ctx, http.MethodPost, "/v2/payments", body, &created); err != nil {
		return nil, &GatewayError{Provider: g.Name(), Op: "create payment", Err: err}
	}
	if created.ID == "" || created.Links.Checkout.Href == "" {
		return nil, &GatewayError{Provider: g.Name(), Op: "create payment",
			Err: fmt.Errorf("response missing payment id or checkout link")}
	}

	return &CheckoutSession{
		CheckoutURL:           created.Links.Checkout.Href,
		ProviderTransactionID: created.ID,
	}, nil
}

func (g *MollieGateway) VerifyPayment(ctx context.Context, providerTransactionID string) (PaymentStatus, error) {
	var payment struct {
		Status string `json:"status"`
	}
	if err := g.doJSON(ctx, http.MethodGet, "/v2/payments/"+providerTransactionID, nil, &payment); err != nil {
		return PaymentStatusUnknown, &GatewayError{Provider: g.Name(), Op: "get payment", Err: err}
	}

	switch payment.Status {
	case "paid":
		return PaymentStatusPaid, nil
	case "open", "pending", "authorized":
		return PaymentStatusPending, nil
	case "failed", "canceled", "expired":
		return PaymentStatusFailed, nil
	default:
		return PaymentStatusUnknown, nil
	}
}

func (g *MollieGateway) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
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
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
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
