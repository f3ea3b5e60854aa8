package fetcher

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateSettings configures token-bucket style rate limiting per host.
type RateSettings struct {
	Requests int
	Window   time.Duration
}

// Pacer enforces the politeness policy: a randomized delay drawn uniformly
// from [MinDelay, MaxDelay] before every fetch except the very first of the
// session, plus an optional per-host token bucket.
type Pacer struct {
	minDelay time.Duration
	maxDelay time.Duration

	started atomic.Bool

	rateEnabled bool
	rateCfg     RateSettings

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPacer creates a pacer. Zero delays disable the randomized sleep; a zero
// rate config disables per-host rate limiting.
func NewPacer(minDelay, maxDelay time.Duration, rateCfg RateSettings) *Pacer {
	p := &Pacer{minDelay: minDelay, maxDelay: maxDelay}
	if rateCfg.Requests > 0 && rateCfg.Window > 0 {
		p.rateEnabled = true
		p.rateCfg = rateCfg
		p.limiters = make(map[string]*rate.Limiter)
	}
	return p
}

// Wait blocks until the politeness constraints are satisfied. The first call
// of a session returns without delaying.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	if p == nil {
		return nil
	}

	first := !p.started.Swap(true)
	if !first && p.maxDelay > 0 {
		delay := p.minDelay
		if span := p.maxDelay - p.minDelay; span > 0 {
			delay += rand.N(span + 1)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if p.rateEnabled && host != "" {
		limiter := p.limiterFor(strings.ToLower(host))
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pacer) limiterFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limiter, ok := p.limiters[host]; ok {
		return limiter
	}
	interval := p.rateCfg.Window / time.Duration(p.rateCfg.Requests)
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), p.rateCfg.Requests)
	p.limiters[host] = limiter
	return limiter
}
