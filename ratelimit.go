package regdoc

import (
	"context"
	"sync"
	"time"
)

// rateLimitEmbedder wraps an Embedder with proactive rate limiting.
// Calls are blocked until the rate budget allows them to proceed.
type rateLimitEmbedder struct {
	inner Embedder
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time

	// IPM state: sliding window of (timestamp, itemCount) pairs.
	ipm       int
	ipmWindow []ipmEntry
}

type ipmEntry struct {
	at    time.Time
	items int
}

// RateLimitOption configures a rate-limited embedder.
type RateLimitOption func(*rateLimitEmbedder)

// RPM sets the maximum embedding requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitEmbedder) { r.rpm = n }
}

// IPM sets the maximum embedded texts per minute across all requests.
// This is a soft limit: the request that exceeds the budget completes,
// but subsequent requests block until the window slides.
func IPM(n int) RateLimitOption {
	return func(r *rateLimitEmbedder) { r.ipm = n }
}

// WithEmbedderRateLimit wraps e with proactive rate limiting. Compose
// with other wrappers:
//
//	emb = regdoc.WithEmbedderRateLimit(emb, regdoc.RPM(60))
//	emb = regdoc.WithEmbedderRateLimit(regdoc.WithEmbedderRetry(emb), regdoc.RPM(60), regdoc.IPM(10000))
func WithEmbedderRateLimit(e Embedder, opts ...RateLimitOption) Embedder {
	r := &rateLimitEmbedder{inner: e}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitEmbedder) Name() string    { return r.inner.Name() }
func (r *rateLimitEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return nil, err
	}
	result, err := r.inner.Embed(ctx, texts)
	if err == nil {
		r.recordItems(len(texts))
	}
	return result, err
}

// waitForBudget blocks until both the request and item budgets allow a
// call. Returns ctx.Err() if the context is cancelled while waiting.
func (r *rateLimitEmbedder) waitForBudget(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)

		r.rpmWindow = pruneTime(r.rpmWindow, cutoff)
		r.ipmWindow = pruneItems(r.ipmWindow, cutoff)

		rpmOK := r.rpm <= 0 || len(r.rpmWindow) < r.rpm

		ipmOK := true
		if r.ipm > 0 {
			var total int
			for _, e := range r.ipmWindow {
				total += e.items
			}
			ipmOK = total < r.ipm
		}

		if rpmOK && ipmOK {
			if r.rpm > 0 {
				r.rpmWindow = append(r.rpmWindow, now)
			}
			r.mu.Unlock()
			return nil
		}

		// Wait until the oldest entry in the blocking window expires.
		var wait time.Duration
		if !rpmOK && len(r.rpmWindow) > 0 {
			wait = r.rpmWindow[0].Add(time.Minute).Sub(now)
		}
		if !ipmOK && len(r.ipmWindow) > 0 {
			if w := r.ipmWindow[0].at.Add(time.Minute).Sub(now); wait == 0 || w < wait {
				wait = w
			}
		}
		r.mu.Unlock()

		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *rateLimitEmbedder) recordItems(n int) {
	if r.ipm <= 0 {
		return
	}
	r.mu.Lock()
	r.ipmWindow = append(r.ipmWindow, ipmEntry{at: time.Now(), items: n})
	r.mu.Unlock()
}

func pruneTime(w []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(w) && w[i].Before(cutoff) {
		i++
	}
	return w[i:]
}

func pruneItems(w []ipmEntry, cutoff time.Time) []ipmEntry {
	i := 0
	for i < len(w) && w[i].at.Before(cutoff) {
		i++
	}
	return w[i:]
}
