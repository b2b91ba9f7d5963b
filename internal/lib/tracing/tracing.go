// Package tracing настраивает глобальный TracerProvider OpenTelemetry
// с экспортом спанов по OTLP/HTTP.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/magabrotheeeer/gym-management/internal/config"
)

// Shutdown сбрасывает буфер спанов и останавливает экспорт.
type Shutdown func(ctx context.Context) error

// Init регистрирует глобальный TracerProvider. Если трейсинг выключен,
// остаётся провайдер по умолчанию, который ничего не записывает.
func Init(ctx context.Context, cfg config.Tracing, serviceName, version string) (Shutdown, error) {
	const op = "tracing.Init"
	if !cfg.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	provider := NewProvider(sdktrace.WithBatcher(exporter), serviceName, version)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// NewProvider создаёт TracerProvider с ресурсом сервиса и заданным процессором спанов.
func NewProvider(processor sdktrace.TracerProviderOption, serviceName, version string) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	return sdktrace.NewTracerProvider(processor, sdktrace.WithResource(res))
}
