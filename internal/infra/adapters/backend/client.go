// File: internal/infra/adapters/backend/client.go
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/domain"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/logging"
	"learnhub-checkout/internal/infra/metrics"
)

var (
	_ adapter.CatalogService     = (*Client)(nil)
	_ adapter.InstallmentService = (*Client)(nil)
	_ adapter.OrderService       = (*Client)(nil)
	_ adapter.ProfileService     = (*Client)(nil)
	_ adapter.AccessService      = (*Client)(nil)
)

// Client talks to the platform REST backend. Every payload is wrapped in
// {"data": ..., "message": ...}.
type Client struct {
	http *resty.Client
	log  *zerolog.Logger
}

type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
}

func New(cfg *config.BackendConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, errors.New("backend base url empty")
	}
	l := logger.With().Str("component", "backend").Logger()

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// creating orders and verifying payments are not safe to replay
			if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.APIKey != "" {
		rc.SetHeader("X-API-Key", cfg.APIKey)
	}
	return &Client{http: rc, log: &l}, nil
}

func (c *Client) Course(ctx context.Context, courseID string) (*model.Course, error) {
	var out envelope[model.Course]
	if err := c.do(ctx, "course", http.MethodGet, "/courses/{courseId}", map[string]string{"courseId": courseID}, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		out.Data.ID = courseID
	}
	return &out.Data, nil
}

func (c *Client) Subscriptions(ctx context.Context, courseID string) ([]model.Subscription, error) {
	var out envelope[[]model.Subscription]
	if err := c.do(ctx, "subscriptions", http.MethodGet, "/courses/{courseId}/subscriptions", map[string]string{"courseId": courseID}, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Plans(ctx context.Context, courseID string, f adapter.PlanFilter) ([]*model.InstallmentPlan, error) {
	q := map[string]string{}
	if f.PlanType != "" {
		q["planType"] = f.PlanType
	}
	if f.UserID != "" {
		q["userId"] = f.UserID
	}
	var out envelope[[]*model.InstallmentPlan]
	err := c.do(ctx, "plans", http.MethodGet, "/installments/course/{courseId}", map[string]string{"courseId": courseID}, q, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		// a course without configured plans is not an error
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, p := range out.Data {
		if p.CourseID == "" {
			p.CourseID = courseID
		}
	}
	return out.Data, nil
}

func (c *Client) History(ctx context.Context, courseID, userID string) ([]model.PaymentRecord, error) {
	var out envelope[[]model.PaymentRecord]
	err := c.do(ctx, "history", http.MethodGet, "/installments/course/{courseId}/user/{userId}/timeline",
		map[string]string{"courseId": courseID, "userId": userID}, nil, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return out.Data, err
}

func (c *Client) PaidOrders(ctx context.Context, courseID, userID string) ([]model.Order, error) {
	var out envelope[[]model.Order]
	q := map[string]string{"courseId": courseID, "userId": userID, "status": model.OrderStatusPaid}
	err := c.do(ctx, "paid_orders", http.MethodGet, "/orders", nil, q, nil, &out)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return out.Data, err
}

func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error) {
	var out envelope[model.OrderHandle]
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders", nil, nil, req, &out); err != nil {
		return nil, err
	}
	if out.Data.OrderID == "" {
		return nil, fmt.Errorf("%w: create order: empty order id", domain.ErrBackend)
	}
	if out.Data.Amount == 0 {
		out.Data.Amount = req.Amount
	}
	if out.Data.Currency == "" {
		out.Data.Currency = req.Currency
	}
	return &out.Data, nil
}

func (c *Client) VerifyPayment(ctx context.Context, req model.VerifyRequest) error {
	var out envelope[struct {
		Verified bool `json:"verified"`
	}]
	if err := c.do(ctx, "verify_payment", http.MethodPost, "/orders/verify", nil, nil, req, &out); err != nil {
		return err
	}
	if !out.Data.Verified {
		return fmt.Errorf("%w: verify payment: signature rejected", domain.ErrBackend)
	}
	return nil
}

func (c *Client) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var out envelope[model.UserProfile]
	if err := c.do(ctx, "profile", http.MethodGet, "/users/{userId}/profile", map[string]string{"userId": userID}, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		out.Data.ID = userID
	}
	return &out.Data, nil
}

func (c *Client) CheckAccess(ctx context.Context, courseID, userID string) (bool, error) {
	var out envelope[struct {
		HasAccess bool `json:"hasAccess"`
	}]
	body := map[string]string{"userId": userID}
	if err := c.do(ctx, "check_access", http.MethodPost, "/courses/{courseId}/access", map[string]string{"courseId": courseID}, nil, body, &out); err != nil {
		return false, err
	}
	return out.Data.HasAccess, nil
}

// do executes one request and maps transport and status failures onto domain errors.
func (c *Client) do(ctx context.Context, op, method, path string, params, query map[string]string, body, result any) error {
	start := time.Now()
	r := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiError{})
	if tid := logging.TraceID(ctx); tid != "" {
		r.SetHeader("X-Request-ID", tid)
	}
	if params != nil {
		r.SetPathParams(params)
	}
	if query != nil {
		r.SetQueryParams(query)
	}
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Execute(method, path)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.ObserveBackend(op, elapsed, false)
		c.log.Warn().Err(err).Str("op", op).Msg("backend request failed")
		return fmt.Errorf("%w: %s: %v", domain.ErrBackend, op, err)
	}
	if resp.IsError() {
		metrics.ObserveBackend(op, elapsed, false)
		msg := resp.Status()
		if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
			msg = e.Message
		}
		if resp.StatusCode() == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode()).Str("message", msg).Msg("backend returned error")
		return fmt.Errorf("%w: %s: %d %s", domain.ErrBackend, op, resp.StatusCode(), msg)
	}
	metrics.ObserveBackend(op, elapsed, true)
	return nil
}
