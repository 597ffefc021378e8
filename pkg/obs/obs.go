package obs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the observability providers for one run.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRate     float64 // 0.0..1.0, default 1.0
	Enabled        bool
}

// DefaultConfig returns the defaults used when a caller does not override them.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "evidence-toolkit",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		SampleRate:     1.0,
		Enabled:        true,
	}
}

// Provider manages the trace and metric providers for one run plus the
// domain counters/histograms the pipeline and oracle client record against.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	stageCounter     metric.Int64Counter
	errorCounter     metric.Int64Counter
	durationHist     metric.Float64Histogram
	activeOperations metric.Int64UpDownCounter
	oracleTokensIn   metric.Int64Counter
	oracleTokensOut  metric.Int64Counter
}

// New creates a run's observability provider. Passing a nil config applies
// DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := &Provider{
		config: cfg,
		logger: slog.Default().With("component", "obs"),
	}

	if !cfg.Enabled {
		p.logger.InfoContext(ctx, "observability disabled")
		return p, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("obs: build resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// No exporter is registered here: this module has no deployed OTLP
	// collector in scope. A caller embedding this in a service can attach
	// its own span/metric processors to p.tracerProvider/p.meterProvider.
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.tracer = p.tracerProvider.Tracer("evidencetk", trace.WithInstrumentationVersion(cfg.ServiceVersion))
	p.meter = p.meterProvider.Meter("evidencetk", metric.WithInstrumentationVersion(cfg.ServiceVersion))

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("obs: init metrics: %w", err)
	}

	p.logger.InfoContext(ctx, "observability initialized",
		"service", cfg.ServiceName, "environment", cfg.Environment, "sample_rate", cfg.SampleRate)
	return p, nil
}

func (p *Provider) initMetrics() error {
	var err error
	if p.stageCounter, err = p.meter.Int64Counter("evidencetk.stage.items_total",
		metric.WithDescription("Pipeline stage items processed"), metric.WithUnit("{item}")); err != nil {
		return err
	}
	if p.errorCounter, err = p.meter.Int64Counter("evidencetk.errors_total",
		metric.WithDescription("Errors recorded across all operations"), metric.WithUnit("{error}")); err != nil {
		return err
	}
	if p.durationHist, err = p.meter.Float64Histogram("evidencetk.operation.duration",
		metric.WithDescription("Operation duration in seconds"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60)); err != nil {
		return err
	}
	if p.activeOperations, err = p.meter.Int64UpDownCounter("evidencetk.operations.active",
		metric.WithDescription("In-flight operations"), metric.WithUnit("{operation}")); err != nil {
		return err
	}
	if p.oracleTokensIn, err = p.meter.Int64Counter("evidencetk.oracle.tokens_in_total",
		metric.WithDescription("Oracle prompt tokens consumed"), metric.WithUnit("{token}")); err != nil {
		return err
	}
	if p.oracleTokensOut, err = p.meter.Int64Counter("evidencetk.oracle.tokens_out_total",
		metric.WithDescription("Oracle completion tokens produced"), metric.WithUnit("{token}")); err != nil {
		return err
	}
	return nil
}

// Shutdown flushes and releases the providers. Safe to call on a disabled
// Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown meter provider", "error", err)
		}
	}
	return nil
}

// Tracer returns the run's tracer, falling back to a no-op global tracer if
// the provider was constructed disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer("evidencetk")
	}
	return p.tracer
}

// StartSpan starts a span under this provider's tracer.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, opts...)
}

// RecordStageItem increments the stage item counter, tagged by stage name
// and outcome ("ok"/"failed").
func (p *Provider) RecordStageItem(ctx context.Context, stage, outcome string) {
	if p.stageCounter != nil {
		p.stageCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage), attribute.String("outcome", outcome)))
	}
}

// RecordOracleTokens records the prompt/completion token counts an oracle
// call reported, for audit and cost tracking.
func (p *Provider) RecordOracleTokens(ctx context.Context, operation string, in, out int) {
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	if p.oracleTokensIn != nil {
		p.oracleTokensIn.Add(ctx, int64(in), attrs)
	}
	if p.oracleTokensOut != nil {
		p.oracleTokensOut.Add(ctx, int64(out), attrs)
	}
}

// TrackOperation starts a span and in-flight counter for name, returning a
// completion func that records duration and any error.
func (p *Provider) TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := p.StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))

	if p.activeOperations != nil {
		p.activeOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	return ctx, func(err error) {
		duration := time.Since(start)
		if p.activeOperations != nil {
			p.activeOperations.Add(ctx, -1, metric.WithAttributes(attrs...))
		}
		if p.durationHist != nil {
			p.durationHist.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
		}
		if err != nil {
			span.RecordError(err)
			if p.errorCounter != nil {
				allAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("error.type", fmt.Sprintf("%T", err)))
				p.errorCounter.Add(ctx, 1, metric.WithAttributes(allAttrs...))
			}
		}
		span.End()
	}
}
