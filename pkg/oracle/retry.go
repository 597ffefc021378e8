package oracle

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evidence-toolkit/core/pkg/schema"
)

// RetryConfig governs the retry/backoff/timeout policy applied to every
// oracle call.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	CallTimeout     time.Duration
}

// DefaultRetryConfig holds the documented defaults: 3 attempts,
// exponential backoff starting at 1s capped at 30s, 60s per-call timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		CallTimeout:     60 * time.Second,
	}
}

// retrying wraps a Client, applying RetryConfig to every call. Transient
// errors (network failures, timeouts, 5xx, rate limits) are retried;
// *OracleRefusal and *OracleIncomplete are returned immediately, since
// retrying an identical request against the same non-retryable outcome
// would not change it.
type retrying struct {
	inner Client
	cfg   RetryConfig
}

// WithRetry wraps inner with the bounded exponential-backoff retry policy
// in cfg.
func WithRetry(inner Client, cfg RetryConfig) Client {
	return &retrying{inner: inner, cfg: cfg}
}

func retryOp[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, CallMeta, error)) (T, CallMeta, error) {
	type result struct {
		val  T
		meta CallMeta
	}
	op := func() (result, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()
		val, meta, err := fn(callCtx)
		if err != nil {
			if !isRetryable(err) {
				return result{}, backoff.Permanent(err)
			}
			return result{}, err
		}
		return result{val: val, meta: meta}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	)
	return res.val, res.meta, err
}

func (r *retrying) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.DocumentAnalysis, CallMeta, error) {
		return r.inner.AnalyzeDocument(ctx, req)
	})
}

func (r *retrying) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.EmailAnalysis, CallMeta, error) {
		return r.inner.AnalyzeEmail(ctx, req)
	})
}

func (r *retrying) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.ImageAnalysis, CallMeta, error) {
		return r.inner.AnalyzeImage(ctx, req)
	})
}

func (r *retrying) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.EntityMatchDecision, CallMeta, error) {
		return r.inner.ResolveEntityPair(ctx, req)
	})
}

func (r *retrying) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.ExecutiveSummary, CallMeta, error) {
		return r.inner.SummarizeCase(ctx, req)
	})
}

func (r *retrying) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	return retryOp(ctx, r.cfg, func(ctx context.Context) (*schema.LegalPatterns, CallMeta, error) {
		return r.inner.DetectPatterns(ctx, req)
	})
}
