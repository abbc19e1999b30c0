package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/rs/zerolog"
)

// Provider wraps the OpenTelemetry TracerProvider
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	config         TracingConfig
	log            zerolog.Logger
}

// NewProvider creates a tracing provider with an OTLP exporter. A disabled
// config yields a provider whose tracers are no-ops.
func NewProvider(config TracingConfig) (*Provider, error) {
	log := logger.WithComponent("tracing")
	if !config.Enabled {
		return &Provider{config: config, log: log}, nil
	}

	if config.Endpoint == "" {
		return nil, fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	sampler, err := newSampler(config)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", config.ServiceName),
		attribute.String("service.version", config.ServiceVersion),
	)

	exporter, err := newExporter(config)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	log.Info().
		Str("service_name", config.ServiceName).
		Str("endpoint", config.Endpoint).
		Str("exporter_type", config.ExporterType).
		Str("sampling", config.SamplingStrategy).
		Msg("Tracing provider initialized")

	return &Provider{
		tracerProvider: tp,
		config:         config,
		log:            log,
	}, nil
}

func newExporter(config TracingConfig) (sdktrace.SpanExporter, error) {
	ctx := context.Background()
	switch strings.ToLower(config.ExporterType) {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(config.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(config.Headers))
		}
		exporter, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP OTLP exporter: %w", err)
		}
		return exporter, nil
	case "grpc", "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(config.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(config.Headers))
		}
		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC OTLP exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", config.ExporterType)
	}
}

func newSampler(config TracingConfig) (sdktrace.Sampler, error) {
	switch strings.ToLower(config.SamplingStrategy) {
	case "", "always":
		return sdktrace.AlwaysSample(), nil
	case "never":
		return sdktrace.NeverSample(), nil
	case "ratio":
		if config.SamplingRatio < 0 || config.SamplingRatio > 1 {
			return nil, fmt.Errorf("sampling ratio must be within [0, 1], got %v", config.SamplingRatio)
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRatio)), nil
	default:
		return nil, fmt.Errorf("unsupported sampling strategy: %s", config.SamplingStrategy)
	}
}

// GetTracer returns a tracer for a component
func (p *Provider) GetTracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// Shutdown flushes pending spans and stops the provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}

	shutdownCtx := ctx
	if _, hasTimeout := ctx.Deadline(); !hasTimeout {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	if err := p.tracerProvider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}

	p.log.Info().Msg("Tracing provider shut down")
	return nil
}

// IsEnabled returns true if spans are exported
func (p *Provider) IsEnabled() bool {
	return p.config.Enabled && p.tracerProvider != nil
}
