package intents

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/davidebenetti/artpay-checkout/pkg/config"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

const serviceName = "intents"

// PaymentIntent is the processor's short-lived authorization object, tied to
// one order/method pair at any instant.
type PaymentIntent struct {
	ID           string             `json:"id"`
	ClientSecret string             `json:"client_secret"`
	Status       enums.IntentStatus `json:"status"`
	AmountMinor  int64              `json:"amount"`
}

// Client drives intent creation and in-place updates through the backend's
// processor bridge endpoints.
type Client struct {
	http    *resty.Client
	metrics *metrics.CheckoutMetrics
}

type intentRequest struct {
	OrderKey string `json:"order_key"`
	Method   string `json:"payment_method"`
}

// NewClient builds an intent client sharing the commerce backend's base URL
// and credentials.
func NewClient(cfg config.CommerceConfig, checkoutMetrics *metrics.CheckoutMetrics) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("commerce base url is required")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetBasicAuth(cfg.ConsumerKey, cfg.ConsumerSecret)

	return &Client{http: httpClient, metrics: checkoutMetrics}, nil
}

// Create issues a fresh intent for the order/method pair.
func (c *Client) Create(ctx context.Context, orderKey string, method enums.PaymentMethod) (*PaymentIntent, error) {
	return c.post(ctx, "/payment-intents", "create_intent", orderKey, method)
}

// Update re-points the order's existing intent at a new method. The
// processor side keeps a single live intent, never a duplicate.
func (c *Client) Update(ctx context.Context, orderKey string, method enums.PaymentMethod) (*PaymentIntent, error) {
	return c.post(ctx, "/payment-intents/update", "update_intent", orderKey, method)
}

func (c *Client) post(ctx context.Context, endpoint, operation, orderKey string, method enums.PaymentMethod) (*PaymentIntent, error) {
	if strings.TrimSpace(orderKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order key is required")
	}

	start := time.Now()
	var intent PaymentIntent
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(intentRequest{OrderKey: orderKey, Method: method.String()}).
		SetResult(&intent).
		Post(endpoint)
	c.metrics.ObserveRemoteCall(serviceName, operation, time.Since(start))
	if err != nil {
		return nil, c.remoteErr(endpoint, 0, "", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if resp.IsError() {
		return nil, c.remoteErr(endpoint, resp.StatusCode(), resp.String(), nil)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "processor returned incomplete intent")
	}
	return &intent, nil
}

func (c *Client) remoteErr(endpoint string, status int, body string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
		Service:    serviceName,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       body,
		Err:        cause,
	}, "sync payment intent")
}
