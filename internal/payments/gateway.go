package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrGateway is returned when the provider rejects or fails session creation.
var ErrGateway = errors.New("payment gateway error")

// SessionRequest carries everything the hosted checkout needs.
type SessionRequest struct {
	TransactionID   string
	Amount          float64
	Currency        string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress string
	SuccessURL      string
	FailURL         string
	CancelURL       string
}

// Gateway starts hosted checkout sessions.
type Gateway interface {
	// CreateSession returns the redirect URL the customer completes payment
	// on, or ErrGateway when the provider declines.
	CreateSession(ctx context.Context, req SessionRequest) (string, error)
}

// SSLCommerzGateway implements Gateway against the SSLCommerz session API.
type SSLCommerzGateway struct {
	client    *resty.Client
	storeID   string
	storePass string
}

// NewSSLCommerzGateway builds the client for the given environment base URL.
func NewSSLCommerzGateway(baseURL, storeID, storePass string) *SSLCommerzGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(2)
	return &SSLCommerzGateway{client: client, storeID: storeID, storePass: storePass}
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// CreateSession posts the form-encoded session request.
func (g *SSLCommerzGateway) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	var out sessionResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"store_id":         g.storeID,
			"store_passwd":     g.storePass,
			"total_amount":     fmt.Sprintf("%.2f", req.Amount),
			"currency":         req.Currency,
			"tran_id":          req.TransactionID,
			"success_url":      req.SuccessURL,
			"fail_url":         req.FailURL,
			"cancel_url":       req.CancelURL,
			"shipping_method":  "Courier",
			"product_name":     "Order " + req.TransactionID,
			"product_category": "General",
			"product_profile":  "general",
			"cus_name":         req.CustomerName,
			"cus_email":        req.CustomerEmail,
			"cus_add1":         req.ShippingAddress,
			"cus_phone":        req.CustomerPhone,
			"ship_name":        req.CustomerName,
			"ship_add1":        req.ShippingAddress,
		}).
		SetResult(&out).
		Post("/gwprocess/v4/api.php")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode())
	}
	if out.GatewayPageURL == "" {
		reason := out.FailedReason
		if reason == "" {
			reason = "no gateway page url in response"
		}
		return "", fmt.Errorf("%w: %s", ErrGateway, reason)
	}
	return out.GatewayPageURL, nil
}
