package commerce

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/davidebenetti/artpay-checkout/pkg/config"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

const serviceName = "commerce"

// Client reads and PATCH-mutates order records on the commerce backend.
type Client struct {
	http    *resty.Client
	metrics *metrics.CheckoutMetrics
}

// NewClient builds a commerce client from configuration.
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

// GetOrder loads an order by id.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	endpoint := fmt.Sprintf("/orders/%d", orderID)
	start := time.Now()

	var order Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&order).
		Get(endpoint)
	c.observe("get_order", start)
	if err != nil {
		return nil, c.remoteErr(endpoint, 0, "", err, "load order")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if resp.IsError() {
		return nil, c.remoteErr(endpoint, resp.StatusCode(), resp.String(), nil, "load order")
	}
	return checkOrder(&order, endpoint)
}

// GetOrderByKey loads an order through the unauthenticated lookup used by
// quote links. Possession of (order_key, email) is the whole credential.
func (c *Client) GetOrderByKey(ctx context.Context, orderKey, email string) (*Order, error) {
	if strings.TrimSpace(orderKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order key is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	endpoint := "/orders/lookup"
	start := time.Now()

	var order Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"order_key": orderKey,
			"email":     email,
		}).
		SetResult(&order).
		Get(endpoint)
	c.observe("get_order_by_key", start)
	if err != nil {
		return nil, c.remoteErr(endpoint, 0, "", err, "look up order")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if resp.IsError() {
		return nil, c.remoteErr(endpoint, resp.StatusCode(), resp.String(), nil, "look up order")
	}
	return checkOrder(&order, endpoint)
}

// ListOrders returns orders filtered by status and customer.
func (c *Client) ListOrders(ctx context.Context, params ListParams) ([]Order, error) {
	endpoint := "/orders"
	start := time.Now()

	query := map[string]string{}
	if params.Status != "" {
		query["status"] = params.Status.String()
	}
	if params.Customer != "" {
		query["customer"] = params.Customer
	}

	var orders []Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&orders).
		Get(endpoint)
	c.observe("list_orders", start)
	if err != nil {
		return nil, c.remoteErr(endpoint, 0, "", err, "list orders")
	}
	if resp.IsError() {
		return nil, c.remoteErr(endpoint, resp.StatusCode(), resp.String(), nil, "list orders")
	}
	return orders, nil
}

// UpdateOrder PATCHes the given partial fields onto the order. The write is
// idempotent; retrying an identical patch is safe.
func (c *Client) UpdateOrder(ctx context.Context, orderID int64, patch OrderPatch) (*Order, error) {
	if patch.IsEmpty() {
		return c.GetOrder(ctx, orderID)
	}

	endpoint := fmt.Sprintf("/orders/%d", orderID)
	start := time.Now()

	var order Order
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(patch).
		SetResult(&order).
		Patch(endpoint)
	c.observe("patch_order", start)
	if err != nil {
		return nil, c.remoteErr(endpoint, 0, "", err, "update order")
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if resp.IsError() {
		return nil, c.remoteErr(endpoint, resp.StatusCode(), resp.String(), nil, "update order")
	}
	return checkOrder(&order, endpoint)
}

// checkOrder rejects a 200 body that did not unmarshal into a real order,
// so a misbehaving backend cannot feed the state machine a zero value.
func checkOrder(order *Order, endpoint string) (*Order, error) {
	if order.ID == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
			Service:  serviceName,
			Endpoint: endpoint,
		}, "commerce returned incomplete order")
	}
	return order, nil
}

func (c *Client) observe(operation string, start time.Time) {
	c.metrics.ObserveRemoteCall(serviceName, operation, time.Since(start))
}

func (c *Client) remoteErr(endpoint string, status int, body string, cause error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, &pkgerrors.RemoteError{
		Service:    serviceName,
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       body,
		Err:        cause,
	}, message)
}
