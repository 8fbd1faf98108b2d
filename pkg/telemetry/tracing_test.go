package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewWithoutExporterIsNoop(t *testing.T) {
	p, err := New(context.Background(), Config{})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "x")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewDebugWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(context.Background(), Config{ServiceName: "svc", Debug: true, DebugWriter: &buf})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), SpanTurn)
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), SpanTurn)
	assert.Contains(t, buf.String(), "svc")
}

func TestRecordErrorSetsStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p := FromSDK(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	_, span := p.Tracer().Start(context.Background(), SpanModelCall)
	RecordError(span, errors.New("rate limited"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "rate limited", ended[0].Status().Description)
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *Provider
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}
