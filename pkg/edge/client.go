package edge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jwalitptl/health-analytics/pkg/circuitbreaker"
	"github.com/jwalitptl/health-analytics/pkg/errors"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
)

// Edge function names
const (
	FunctionRecommendations = "generate-analytics-recommendations"
	FunctionDoctorChat      = "ai-doctor-chat"
)

type Config struct {
	BaseURL             string
	ServiceKey          string
	Timeout             time.Duration
	MaxRetries          int
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
}

// Invoker calls one edge function with a JSON body and decodes the JSON reply into out
type Invoker interface {
	Invoke(ctx context.Context, function string, body, out interface{}) error
}

type Client struct {
	http    *resty.Client
	cb      *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.ServiceKey != "" {
		client.SetAuthToken(cfg.ServiceKey).SetHeader("apikey", cfg.ServiceKey)
	}

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "edge-functions",
		MaxFailures: cfg.BreakerMaxFailures,
		Timeout:     cfg.BreakerResetTimeout,
		IsFailure: func(err error) bool {
			code := errors.CodeOf(err)
			return code == errors.ErrUnavailable || code == errors.ErrTimeout
		},
	})

	return &Client{
		http:    client,
		cb:      cb,
		logger:  log,
		metrics: m,
	}
}

var _ Invoker = (*Client)(nil)

func (c *Client) Invoke(ctx context.Context, function string, body, out interface{}) error {
	start := time.Now()
	err := c.cb.Execute(func() error {
		return c.do(ctx, function, body, out)
	})
	if stderrors.Is(err, circuitbreaker.ErrOpen) {
		err = errors.Unavailable("edge function "+function, err)
	}

	c.metrics.EdgeCalls.WithLabelValues(function, metrics.Status(err)).Inc()
	c.metrics.EdgeLatency.WithLabelValues(function).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.WithContext(ctx).Warn("Edge function call failed", "function", function, "error", err.Error())
	}
	return err
}

func (c *Client) do(ctx context.Context, function string, body, out interface{}) error {
	var apiErr errorBody
	req := c.http.R().
		SetContext(ctx).
		SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post("/functions/v1/" + function)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Timeout("edge function "+function, err)
		}
		return errors.Unavailable("edge function "+function, err)
	}

	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = apiErr.Message
		}
		if msg == "" {
			msg = resp.Status()
		}
		cause := fmt.Errorf("%s returned %d: %s", function, resp.StatusCode(), msg)

		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			return &errors.AppError{Code: errors.ErrTooManyRequests, Message: msg, Err: cause}
		case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
			return errors.Unavailable("edge function "+function, cause)
		case resp.StatusCode() == http.StatusGatewayTimeout:
			return errors.Timeout("edge function "+function, cause)
		case resp.StatusCode() >= http.StatusInternalServerError:
			return errors.Unavailable("edge function "+function, cause)
		default:
			return errors.BadRequest(msg, cause)
		}
	}
	return nil
}
