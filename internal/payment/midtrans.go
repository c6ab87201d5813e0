package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sandboxCoreURL    = "https://api.sandbox.midtrans.com"
	productionCoreURL = "https://api.midtrans.com"
	sandboxSnapURL    = "https://app.sandbox.midtrans.com"
	productionSnapURL = "https://app.midtrans.com"
)

var ErrGatewayResponse = errors.New("gateway rejected request")

type ClientConfig struct {
	ServerKey  string
	Production bool
	// CoreURL and SnapURL override the environment defaults.
	CoreURL string
	SnapURL string
	Timeout time.Duration
}

// Client talks to a Midtrans-compatible Core API and Snap checkout over
// HTTP. Credentials live on the value; nothing is configured globally.
type Client struct {
	serverKey  string
	coreURL    string
	snapURL    string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	core, snap := sandboxCoreURL, sandboxSnapURL
	if cfg.Production {
		core, snap = productionCoreURL, productionSnapURL
	}
	if cfg.CoreURL != "" {
		core = cfg.CoreURL
	}
	if cfg.SnapURL != "" {
		snap = cfg.SnapURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		serverKey: cfg.ServerKey,
		coreURL:   strings.TrimRight(core, "/"),
		snapURL:   strings.TrimRight(snap, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type bankTransferBlock struct {
	Bank string `json:"bank"`
}

type gopayBlock struct {
	EnableCallback bool   `json:"enable_callback"`
	CallbackURL    string `json:"callback_url"`
}

type chargeBody struct {
	PaymentType        string             `json:"payment_type"`
	TransactionDetails transactionDetails `json:"transaction_details"`
	CustomerDetails    Customer           `json:"customer_details"`
	BankTransfer       *bankTransferBlock `json:"bank_transfer,omitempty"`
	Gopay              *gopayBlock        `json:"gopay,omitempty"`
}

func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	body := chargeBody{
		PaymentType: req.PaymentType,
		TransactionDetails: transactionDetails{
			OrderID:     req.OrderID,
			GrossAmount: req.GrossAmount,
		},
		CustomerDetails: req.Customer,
	}
	switch req.PaymentType {
	case "bank_transfer":
		body.BankTransfer = &bankTransferBlock{Bank: req.Bank}
	case "gopay":
		body.Gopay = &gopayBlock{}
	}

	var out ChargeResponse
	if err := c.do(ctx, http.MethodPost, c.coreURL+"/v2/charge", body, &out); err != nil {
		return nil, err
	}
	if err := checkStatusCode(out.StatusCode, out.StatusMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	body := struct {
		TransactionDetails transactionDetails `json:"transaction_details"`
		CustomerDetails    Customer           `json:"customer_details"`
	}{
		TransactionDetails: transactionDetails{OrderID: req.OrderID, GrossAmount: req.GrossAmount},
		CustomerDetails:    req.Customer,
	}

	var out CheckoutResponse
	if err := c.do(ctx, http.MethodPost, c.snapURL+"/snap/v1/transactions", body, &out); err != nil {
		return nil, err
	}
	if out.RedirectURL == "" {
		return nil, fmt.Errorf("checkout: empty redirect url: %w", ErrGatewayResponse)
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, orderID string) (*StatusResponse, error) {
	var out StatusResponse
	endpoint := c.coreURL + "/v2/" + url.PathEscape(orderID) + "/status"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if err := checkStatusCode(out.StatusCode, out.StatusMessage); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.serverKey, "")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s: %w", method, endpoint, resp.StatusCode,
			strings.TrimSpace(string(snippet)), ErrGatewayResponse)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkStatusCode inspects the status_code the Core API embeds in a 200 body.
func checkStatusCode(code, message string) error {
	if code == "" || strings.HasPrefix(code, "2") {
		return nil
	}
	return fmt.Errorf("status_code %s: %s: %w", code, message, ErrGatewayResponse)
}
