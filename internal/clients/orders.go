package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	support_errors "storefront-support/pkg/errors"

	"github.com/sony/gobreaker"
	"resty.dev/v3"
)

type Order struct {
	OrderNumber       string     `json:"order_number"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"payment_status"`
	ShippingStatus    string     `json:"shipping_status"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// OrderLookup fetches an order visible to the given customer.
type OrderLookup interface {
	GetOrder(ctx context.Context, customerID, orderNumber string) (Order, error)
}

type OrderClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	return &OrderClient{
		http:    NewHTTPClient("order-service", baseURL, timeout),
		breaker: newBreaker("order-service"),
		timeout: timeout,
	}
}

func (c *OrderClient) GetOrder(ctx context.Context, customerID, orderNumber string) (Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var order Order
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("X-Customer-Id", customerID).
			SetPathParam("number", orderNumber).
			SetResult(&order).
			Get("/orders/{number}")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusNotFound || resp.StatusCode() == http.StatusForbidden {
			return nil, fmt.Errorf("order %s: %w", orderNumber, support_errors.ErrNotFound)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("order service status %d: %w", resp.StatusCode(), support_errors.ErrUpstream)
		}
		return order, nil
	})
	if err != nil {
		return Order{}, classify("order-service", err)
	}
	return result.(Order), nil
}
