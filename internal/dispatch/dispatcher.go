package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angeloszaimis/divider/internal/admission"
	"github.com/angeloszaimis/divider/internal/circuitbreaker"
	"github.com/angeloszaimis/divider/internal/division"
	"github.com/angeloszaimis/divider/internal/httpserver"
)

const maxResponseBytes = 1 << 16

type Dispatcher struct {
	target    *url.URL
	client    *http.Client
	timeout   time.Duration
	admission *admission.Controller
	breaker   *circuitbreaker.CircuitBreaker
	logger    *slog.Logger
}

func New(
	target *url.URL,
	client *http.Client,
	timeout time.Duration,
	controller *admission.Controller,
	breakers *circuitbreaker.Registry,
	logger *slog.Logger,
) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &Dispatcher{
		target:    target,
		client:    client,
		timeout:   timeout,
		admission: controller,
		breaker:   breakers.GetBreaker(target.String()),
		logger:    logger,
	}
}

func (d *Dispatcher) Target() string {
	return d.target.String()
}

// Divide asks the provider for a / b.
func (d *Dispatcher) Divide(ctx context.Context, a, b int) (int, error) {
	release, err := d.admission.Admit(ctx, d.breaker)
	if err != nil {
		return 0, err
	}
	defer release()

	value, err := d.call(ctx, division.Request{A: a, B: b})
	if err != nil && ctx.Err() != nil {
		// The caller went away; the provider was not at fault.
		d.breaker.Release()
		return 0, err
	}
	if err != nil {
		d.breaker.RecordFailure()
		d.logger.Debug("Provider call failed",
			slog.String("target", d.Target()),
			slog.String("request_id", httpserver.RequestIDFromContext(ctx)),
			slog.Any("err", err))
		return 0, err
	}

	d.breaker.RecordSuccess()
	return value, nil
}

func (d *Dispatcher) call(ctx context.Context, req division.Request) (int, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	u := d.target.JoinPath("divide")
	u.RawQuery = req.Query().Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if id := httpserver.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(httpserver.RequestIDHeader, id)
	}

	res, err := d.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("call provider: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("read provider response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return 0, &ProviderError{
			StatusCode: res.StatusCode,
			Message:    errorMessage(body),
		}
	}

	var value int
	if err := json.Unmarshal(body, &value); err != nil {
		return 0, fmt.Errorf("decode provider response: %w", err)
	}

	return value, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
