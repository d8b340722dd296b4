package clients

import (
	"context"
	"time"

	"storefront-support/pkg/logger"

	"go.uber.org/zap"
	"resty.dev/v3"
)

type httpClientStartsAt struct{}

// NewHTTPClient returns a resty client that logs every upstream call with its latency.
func NewHTTPClient(clientName, baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), httpClientStartsAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		startTime, _ := ctx.Value(httpClientStartsAt{}).(time.Time)
		fields := []zap.Field{
			zap.String("client", clientName),
			zap.Int("status", r.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
		}
		if raw := r.Request.RawRequest; raw != nil {
			fields = append(fields, zap.String("method", raw.Method), zap.String("path", raw.URL.Path))
		}
		logger.GetGlobalLogger().InfoCtx(ctx, "HTTP client request", fields...)
		return nil
	})
	return client
}
