package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config identifies the service to the collector and controls sampling.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	// SampleRatio in (0,1) enables ratio sampling; anything else
	// samples every trace.
	SampleRatio float64
}

// NewTracerProvider wires an OTLP/gRPC exporter into the global OTel
// tracer provider. The returned function flushes and shuts the
// provider down; call it on exit.
func NewTracerProvider(ctx context.Context, cfg Config, logger *slog.Logger) (func(), error) {
	logger.Info("Initializing tracing",
		slog.String("service", cfg.ServiceName),
		slog.String("collector", cfg.Endpoint))

	conn, err := grpc.NewClient(
		cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.ServiceInstanceID(os.Getenv("HOSTNAME")),
	)

	sampler := trace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = trace.TraceIDRatioBased(cfg.SampleRatio)
	}

	tp := trace.NewTracerProvider(
		trace.WithSampler(sampler),
		trace.WithResource(res),
		trace.WithSpanProcessor(trace.NewBatchSpanProcessor(exporter)),
	)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown TracerProvider", slog.Any("error", err))
		}
		if err := conn.Close(); err != nil {
			logger.Error("Failed to close collector connection", slog.Any("error", err))
		}
	}
	return cleanup, nil
}
