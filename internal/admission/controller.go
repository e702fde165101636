package admission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	Resource       string
	RPS            float64
	Burst          int
	MaxConcurrency int
	AcquireTimeout time.Duration
	Stats          StatsStore
}

type Controller struct {
	resource       string
	limiter        *rate.Limiter
	pool           *slotPool
	acquireTimeout time.Duration
	stats          StatsStore
	logger         *slog.Logger
	once           sync.Once
}

// NewController builds a controller. RPS <= 0 disables rate limiting and
// MaxConcurrency <= 0 disables the in-flight bound.
// With AcquireTimeout <= 0 a call is rejected at once when every slot is taken.
func NewController(opts Options, logger *slog.Logger) *Controller {
	c := &Controller{
		resource:       opts.Resource,
		limiter:        rate.NewLimiter(toLimit(opts.RPS), opts.Burst),
		acquireTimeout: opts.AcquireTimeout,
		stats:          opts.Stats,
		logger:         logger,
	}

	if opts.MaxConcurrency > 0 {
		c.pool = newSlotPool(opts.MaxConcurrency)
	}

	return c
}

func toLimit(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

// Gate is an additional admission check evaluated after capacity is reserved,
// such as a circuit breaker for the target.
type Gate interface {
	Allow() bool
}

// Admit reserves capacity for one call. The returned release func must be
// called exactly once when the call finishes. Gates are consulted last so a
// gate that hands out single permits is only asked when the call will proceed.
func (c *Controller) Admit(ctx context.Context, gates ...Gate) (func(), error) {
	if !c.limiter.Allow() {
		return nil, c.reject(ctx, ReasonRateLimited)
	}

	release := func() {}

	if c.pool != nil {
		var ok bool
		if c.acquireTimeout > 0 {
			acqCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
			release, ok = c.pool.acquire(acqCtx)
			cancel()
		} else {
			release, ok = c.pool.tryAcquire()
		}
		if !ok {
			return nil, c.reject(ctx, ReasonConcurrencyLimited)
		}
	}

	for _, gate := range gates {
		if !gate.Allow() {
			release()
			return nil, c.reject(ctx, ReasonDegraded)
		}
	}

	c.record(ctx, true, "")
	return release, nil
}

func (c *Controller) reject(ctx context.Context, reason Reason) error {
	c.record(ctx, false, reason)
	return &RejectedError{Resource: c.resource, Reason: reason}
}

func (c *Controller) record(ctx context.Context, allowed bool, reason Reason) {
	if c.stats == nil {
		return
	}

	err := c.stats.Record(ctx, StatsEvent{
		Resource: c.resource,
		Allowed:  allowed,
		Reason:   reason,
		At:       time.Now(),
	})
	if err != nil {
		// Only the first failure is logged so a down stats backend does not flood the log.
		c.once.Do(func() {
			c.logger.Warn("Failed to record admission stats",
				slog.String("resource", c.resource),
				slog.Any("err", err))
		})
	}
}

// SetLimit changes the token bucket rate and burst.
func (c *Controller) SetLimit(rps float64, burst int) {
	c.limiter.SetLimit(toLimit(rps))
	c.limiter.SetBurst(burst)
}

func (c *Controller) Limit() (float64, int) {
	return float64(c.limiter.Limit()), c.limiter.Burst()
}

func (c *Controller) InFlight() int {
	if c.pool == nil {
		return 0
	}
	return c.pool.inFlight()
}

func (c *Controller) Resource() string {
	return c.resource
}
