package oracle

import (
	"context"
	"encoding/json"

	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/redis/go-redis/v9"
)

// cached wraps a Client with an optional Redis-backed response cache keyed
// by analysis_id. A hit still counts as "no oracle call" for idempotency
// purposes, but the cache is never authoritative — the Store's
// on-disk analysis.v1.json remains the source of truth. Analyzers check the
// Store for an existing record first; this cache is consulted only after
// that check finds none, and a hit avoids the network round-trip.
type cached struct {
	inner Client
	rdb   *redis.Client
}

// WithCache wraps inner with a Redis response cache. rdb may be nil, in
// which case calls pass straight through (caching is optional).
func WithCache(inner Client, rdb *redis.Client) Client {
	if rdb == nil {
		return inner
	}
	return &cached{inner: inner, rdb: rdb}
}

func cacheKey(kind, analysisID string) string {
	return "oracle:" + kind + ":" + analysisID
}

func getCached[T any](ctx context.Context, rdb *redis.Client, key string) (*T, bool) {
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func setCached(ctx context.Context, rdb *redis.Client, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	// Best-effort: a cache write failure must never fail the call it is
	// caching the result of.
	_ = rdb.Set(ctx, key, data, 0).Err()
}

func (c *cached) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	if req.AnalysisKeyID != "" {
		if v, ok := getCached[schema.DocumentAnalysis](ctx, c.rdb, cacheKey("document", req.AnalysisKeyID)); ok {
			return v, CallMeta{FromCache: true}, nil
		}
	}
	out, meta, err := c.inner.AnalyzeDocument(ctx, req)
	if err == nil && req.AnalysisKeyID != "" {
		setCached(ctx, c.rdb, cacheKey("document", req.AnalysisKeyID), out)
	}
	return out, meta, err
}

func (c *cached) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	if req.AnalysisKeyID != "" {
		if v, ok := getCached[schema.EmailAnalysis](ctx, c.rdb, cacheKey("email", req.AnalysisKeyID)); ok {
			return v, CallMeta{FromCache: true}, nil
		}
	}
	out, meta, err := c.inner.AnalyzeEmail(ctx, req)
	if err == nil && req.AnalysisKeyID != "" {
		setCached(ctx, c.rdb, cacheKey("email", req.AnalysisKeyID), out)
	}
	return out, meta, err
}

func (c *cached) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	if req.AnalysisKeyID != "" {
		if v, ok := getCached[schema.ImageAnalysis](ctx, c.rdb, cacheKey("image", req.AnalysisKeyID)); ok {
			return v, CallMeta{FromCache: true}, nil
		}
	}
	out, meta, err := c.inner.AnalyzeImage(ctx, req)
	if err == nil && req.AnalysisKeyID != "" {
		setCached(ctx, c.rdb, cacheKey("image", req.AnalysisKeyID), out)
	}
	return out, meta, err
}

func (c *cached) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	return c.inner.ResolveEntityPair(ctx, req)
}

func (c *cached) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	return c.inner.SummarizeCase(ctx, req)
}

func (c *cached) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	return c.inner.DetectPatterns(ctx, req)
}
