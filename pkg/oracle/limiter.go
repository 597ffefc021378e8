package oracle

import (
	"context"

	"github.com/evidence-toolkit/core/pkg/schema"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// bounded wraps a Client with a global concurrency cap (semaphore, the
// "max_concurrent" governing concurrent oracle calls) and an
// optional requests-per-second limiter for provider rate limits. A cap
// bounds how many calls are in flight at once; a limiter bounds how many
// start per second — both are independent, real constraints against an
// external LLM provider.
type bounded struct {
	inner Client
	sem   *semaphore.Weighted
	rl    *rate.Limiter // nil disables throttling
}

// WithConcurrencyCap wraps inner so at most maxConcurrent calls run at
// once. A ratePerSecond <= 0 disables the additional rate limiter.
func WithConcurrencyCap(inner Client, maxConcurrent int, ratePerSecond float64) Client {
	b := &bounded{inner: inner, sem: semaphore.NewWeighted(int64(maxConcurrent))}
	if ratePerSecond > 0 {
		b.rl = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return b
}

func (b *bounded) acquire(ctx context.Context) error {
	if b.rl != nil {
		if err := b.rl.Wait(ctx); err != nil {
			return err
		}
	}
	return b.sem.Acquire(ctx, 1)
}

func (b *bounded) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.AnalyzeDocument(ctx, req)
}

func (b *bounded) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.AnalyzeEmail(ctx, req)
}

func (b *bounded) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.AnalyzeImage(ctx, req)
}

func (b *bounded) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.ResolveEntityPair(ctx, req)
}

func (b *bounded) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.SummarizeCase(ctx, req)
}

func (b *bounded) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, CallMeta{}, err
	}
	defer b.sem.Release(1)
	return b.inner.DetectPatterns(ctx, req)
}
