package chat

import (
	"github.com/minhyannv/ai-chat-go/pkg/flags"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Option configures optional runtime dependencies for Loop.
type Option func(*loopDeps)

type loopDeps struct {
	logger loggerpkg.Logger
	tools  ToolInvoker
	flags  flags.Evaluator
	tracer trace.Tracer
}

func newLoopDeps() loopDeps {
	return loopDeps{
		logger: loggerpkg.NopLogger{},
		flags:  flags.Fallback{},
		tracer: noop.NewTracerProvider().Tracer("chat"),
	}
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *loopDeps) {
		d.logger = loggerpkg.OrNop(l)
	}
}

// WithTools exposes the registry's tools to the model.
func WithTools(t ToolInvoker) Option {
	return func(d *loopDeps) {
		d.tools = t
	}
}

// WithFlags injects the feature flag evaluator.
func WithFlags(ev flags.Evaluator) Option {
	return func(d *loopDeps) {
		if ev != nil {
			d.flags = ev
		}
	}
}

// WithTracer records turn, model and flag spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *loopDeps) {
		if t != nil {
			d.tracer = t
		}
	}
}
