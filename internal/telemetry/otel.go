// Package telemetry installs the OTLP trace pipeline the CLI and gateway
// report spans through.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/doodlemint/doodlemint/pkg/build"
)

// DefaultTracesEndpoint is a local OTLP HTTP collector.
const DefaultTracesEndpoint = "localhost:4318"

// Config selects where spans are exported and how many are kept.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	// SampleRatio is the fraction of root traces recorded. Children follow
	// their parent. Zero records everything.
	SampleRatio float64
	// Headers are sent with every export, e.g. a collector API key.
	Headers map[string]string
}

// Disabled is a shutdown func for when nothing was installed.
func Disabled(context.Context) error { return nil }

// Setup installs the propagator and, when enabled, a batching tracer provider
// exporting to cfg.Endpoint. The returned func flushes and stops the
// provider.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return Disabled, nil
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return nil, fmt.Errorf("sample ratio %v is not within [0, 1]", cfg.SampleRatio)
	}

	exporter, err := otlptracehttp.New(ctx, cfg.exporterOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", "doodlemint"),
		attribute.String("service.version", build.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("describing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
	}, nil
}

func (c Config) exporterOptions() []otlptracehttp.Option {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultTracesEndpoint
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
	}
	return opts
}

func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRatio == 0 || c.SampleRatio == 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}
