// Package obs provides structured logging (log/slog) plus OpenTelemetry
// tracing and metrics around pipeline stages and oracle calls.
//
// Initialize once per run:
//
//	p, err := obs.New(ctx, obs.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// Wrap a unit of work so its duration, error, and in-flight count are all
// recorded together:
//
//	ctx, done := p.TrackOperation(ctx, "oracle.analyze_document",
//		attribute.String("evidence_sha256", hash))
//	result, err := doWork(ctx)
//	done(err)
//
// This module ships no OTLP collector pipeline — pkg/obs wires the SDK and
// its metric/trace APIs directly, but a concrete exporter (OTLP, stdout,
// Prometheus) is a deployment concern left to the binary that imports it.
package obs
