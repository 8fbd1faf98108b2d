package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/minhyannv/ai-chat-go"

// Config configures trace export.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is an OTLP/HTTP endpoint URL, e.g. http://localhost:4318.
	Endpoint string
	// Debug prints finished spans to DebugWriter.
	Debug       bool
	DebugWriter io.Writer
}

// Enabled reports whether any exporter is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != "" || c.Debug
}

// Provider wraps the OpenTelemetry tracer provider.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates a provider. Without an exporter configured it returns a noop tracer.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return Noop(), nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ai-chat"
	}

	opts := []sdktrace.TracerProviderOption{}
	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	if cfg.Debug {
		stdoutOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.DebugWriter != nil {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithWriter(cfg.DebugWriter))
		}
		exporter, err := stdouttrace.New(stdoutOpts...)
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	return FromSDK(provider), nil
}

// Noop returns a provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// FromSDK wraps an existing SDK provider, e.g. one backed by a span recorder in tests.
func FromSDK(provider *sdktrace.TracerProvider) *Provider {
	return &Provider{provider: provider, tracer: provider.Tracer(instrumentationName)}
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// Shutdown flushes pending spans and stops the exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Span names.
const (
	SpanTurn          = "chat.turn"
	SpanModelCall     = "chat.model_call"
	SpanToolInvoke    = "tool.invoke"
	SpanFlagEvaluate  = "flags.evaluate"
	SpanSearchRequest = "tool.web_search.request"
)

// Attribute keys.
const (
	AttrModel          = "ai_chat.llm.model"
	AttrInputTokens    = "ai_chat.llm.input_tokens"
	AttrOutputTokens   = "ai_chat.llm.output_tokens"
	AttrFinishReason   = "ai_chat.llm.finish_reason"
	AttrToolsAvailable = "ai_chat.llm.tools_available"
	AttrToolName       = "ai_chat.tool.name"
	AttrToolCalls      = "ai_chat.tool.calls"
	AttrMessageLength  = "ai_chat.message.length"
	AttrResponseLength = "ai_chat.response.length"
	AttrFlagPrefix     = "feature_flags."
)

// ModelAttrs describes one model call.
func ModelAttrs(model string, inputTokens, outputTokens int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrModel, model),
		attribute.Int64(AttrInputTokens, inputTokens),
		attribute.Int64(AttrOutputTokens, outputTokens),
	}
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
