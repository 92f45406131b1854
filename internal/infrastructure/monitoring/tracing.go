package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/samvit-hq/guardrail/internal/config"
	"github.com/samvit-hq/guardrail/pkg/constants"
	"github.com/samvit-hq/guardrail/pkg/logger"
)

// TracingManager owns the OpenTelemetry tracer provider. With tracing
// disabled it hands out the global no-op tracer so callers never branch on
// whether tracing is on.
type TracingManager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   logger.Logger
}

// NewTracingManager initializes tracing from config. When enabled, spans are
// batched to the configured Jaeger collector and sampled at the configured
// ratio.
func NewTracingManager(cfg *config.Config, log logger.Logger) (*TracingManager, error) {
	if !cfg.Tracing.Enabled {
		log.Info(context.Background(), "tracing is disabled")
		return &TracingManager{
			tracer: otel.Tracer(constants.ServiceName),
			logger: log,
		}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.Tracing.JaegerEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.Tracing.ServiceName),
			attribute.String("environment", cfg.Tracing.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.Tracing.SamplingRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(context.Background(), "tracing initialized",
		logger.String("endpoint", cfg.Tracing.JaegerEndpoint),
		logger.Float64("sample_rate", cfg.Tracing.SamplingRate),
	)

	return &TracingManager{
		tracer:   provider.Tracer(constants.ServiceName),
		provider: provider,
		logger:   log,
	}, nil
}

// Tracer returns the tracer for manual span creation.
func (tm *TracingManager) Tracer() trace.Tracer {
	return tm.tracer
}

// StartSpan starts a new span under the current context.
func (tm *TracingManager) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tm.tracer.Start(ctx, spanName, opts...)
}

// RecordError records an error on the current span and marks it failed.
func (tm *TracingManager) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the current trace ID, or "" outside a sampled trace.
func (tm *TracingManager) GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// Shutdown flushes pending spans and stops the provider.
func (tm *TracingManager) Shutdown(ctx context.Context) error {
	if tm.provider == nil {
		return nil
	}

	if err := tm.provider.Shutdown(ctx); err != nil {
		tm.logger.Error(ctx, "failed to shutdown tracing provider", err)
		return err
	}

	tm.logger.Info(ctx, "tracing provider shutdown complete")
	return nil
}
