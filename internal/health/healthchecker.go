// Package health provides periodic dependency health checking and a
// service-level aggregate flag the HTTP health endpoint reads.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component-level checkers (vector store,
// embedder).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// Pinger is the probe a component exposes; nil return means healthy.
type Pinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker wraps a Pinger into a periodic HealthChecker.
type PingChecker struct {
	name    string
	pinger  Pinger
	timeout time.Duration
	healthy atomic.Int32
	log     zerolog.Logger
}

// NewPingChecker builds a checker for one component. A nil pinger reports
// healthy always (the component has no probe).
func NewPingChecker(name string, pinger Pinger, log zerolog.Logger, timeout time.Duration) *PingChecker {
	c := &PingChecker{name: name, pinger: pinger, timeout: timeout, log: log}
	if pinger == nil {
		c.healthy.Store(1)
	}
	return c
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start probes immediately, then on every tick until ctx is cancelled.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	if c.pinger == nil {
		return
	}
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if err := c.pinger.HealthPing(pctx); err != nil {
			if c.healthy.Swap(0) == 1 {
				c.log.Warn().Err(err).Str("component", c.name).Msg("health probe failed")
			}
			return
		}
		if c.healthy.Swap(1) == 0 {
			c.log.Info().Str("component", c.name).Msg("health probe ok")
		}
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// ServiceHealthChecker aggregates component checkers into one flag.
type ServiceHealthChecker struct {
	healthy atomic.Int32
	deps    []HealthChecker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	return &ServiceHealthChecker{deps: deps, log: log}
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Start periodically evaluates dependency health and updates the flag.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	eval := func() {
		all := int32(1)
		for _, c := range h.deps {
			if !c.IsHealthy() {
				all = 0
			}
		}
		h.healthy.Store(all)
		if all != prev {
			if all == 1 {
				h.log.Info().Msg("service health: UP")
			} else {
				h.log.Warn().Msg("service health: DOWN")
			}
			prev = all
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
