package clients

import (
	"context"
	"fmt"
	"strconv"
	"time"

	support_errors "storefront-support/pkg/errors"

	"github.com/sony/gobreaker"
	"resty.dev/v3"
)

type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Rating   float64 `json:"rating"`
}

// CatalogSearch runs a free-text product search.
type CatalogSearch interface {
	Search(ctx context.Context, query string, limit int) ([]Product, error)
}

type CatalogClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		http:    NewHTTPClient("catalog-service", baseURL, timeout),
		breaker: newBreaker("catalog-service"),
		timeout: timeout,
	}
}

type searchResponse struct {
	Products []Product `json:"products"`
}

func (c *CatalogClient) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out searchResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("q", query).
			SetQueryParam("limit", strconv.Itoa(limit)).
			SetResult(&out).
			Get("/products/search")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("catalog service status %d: %w", resp.StatusCode(), support_errors.ErrUpstream)
		}
		return out.Products, nil
	})
	if err != nil {
		return nil, classify("catalog-service", err)
	}
	products := result.([]Product)
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}
