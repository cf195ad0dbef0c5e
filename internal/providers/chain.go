package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Rampap-Brasil/postmon/internal/cep"
	"github.com/Rampap-Brasil/postmon/internal/metrics"
	"github.com/Rampap-Brasil/postmon/internal/models"
)

const defaultCallTimeout = 10 * time.Second

// Chain tries providers strictly in configured order, sequentially, one
// bounded call each. Later providers are last resort, so there is no
// fan-out and no per-provider retry. A provider that answers with a
// found address stops the chain; an explicit miss is only conclusive
// once every provider has been asked, so a single flaky source cannot
// cache a "not found" the next provider would have resolved.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, timeout: defaultCallTimeout}
}

func (c *Chain) WithTimeout(d time.Duration) *Chain {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Lookup returns the first conclusive normalized result. now stamps
// meta.verified_at on every produced record. On exhaustion with no
// conclusive answer the last failure is returned, classification intact.
func (c *Chain) Lookup(ctx context.Context, code string, now time.Time) ([]*models.Address, error) {
	var lastErr *Error
	var miss []*models.Address

	for _, p := range c.providers {
		recs, err := c.tryOne(ctx, p, code, now)
		if err != nil {
			lastErr = err
			metrics.ProviderFailures.WithLabelValues(p.Name(), string(err.Kind)).Inc()
			slog.Warn("cep provider failed", "provider", p.Name(), "cep", code, "kind", string(err.Kind), "err", err.Cause)
			continue
		}
		if anyFound(recs) {
			metrics.ProviderHits.WithLabelValues(p.Name()).Inc()
			return recs, nil
		}
		// Explicit miss. Remember the first one and keep going.
		if miss == nil {
			miss = recs
		}
	}

	if miss != nil {
		return miss, nil
	}
	if lastErr == nil {
		lastErr = Unexpected("none", errNoProviders)
	}
	return nil, lastErr
}

func (c *Chain) tryOne(ctx context.Context, p Provider, code string, now time.Time) ([]*models.Address, *Error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	metrics.ProviderAttempts.WithLabelValues(p.Name()).Inc()
	payload, err := p.Fetch(callCtx, code)
	if err != nil {
		return nil, Classify(p.Name(), err)
	}
	return cep.Normalize(p.Mapping(), payload, code, now), nil
}

func anyFound(recs []*models.Address) bool {
	for _, r := range recs {
		if !r.NotFound() {
			return true
		}
	}
	return false
}

var errNoProviders = errors.New("no providers configured")
