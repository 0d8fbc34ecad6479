// Package telemetry настраивает распределённый трейсинг через OpenTelemetry.
//
// HTTP-слой оборачивается otelgin middleware, исходящие span'ы уходят
// в OTLP/HTTP collector. Трейсинг - ambient concern: его отключение
// не влияет на семантику переводов и начислений.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config содержит настройки трейсинга.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string  // OTLP/HTTP endpoint, например "localhost:4318"
	Insecure       bool    // true для plain HTTP (локальная разработка)
	SampleRatio    float64 // Доля трейсов, 0.0..1.0
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "ledgerhub",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRatio:    1.0,
	}
}

// ShutdownFunc останавливает TracerProvider и сбрасывает буферы.
type ShutdownFunc func(ctx context.Context) error

// Setup инициализирует глобальный TracerProvider.
//
// При Enabled=false возвращает no-op shutdown: приложение работает
// без трейсинга, код с otel.Tracer(...) остаётся валидным.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	// ParentBased: уважаем решение вышестоящего сервиса, корневые
	// трейсы сэмплируем по ratio.
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Shutdown, nil
}
