package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Handler executes a tool with already validated arguments.
type Handler func(ctx context.Context, args Args) (string, error)

// Spec describes one tool exposed to the model.
type Spec struct {
	Name        string
	Description string
	Parameters  []Parameter
	Handler     Handler
}

// Registry holds registered tools and handles invocation.
type Registry struct {
	specs  map[string]Spec
	order  []string
	logger loggerpkg.Logger
	tracer trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(r *Registry) {
		r.logger = loggerpkg.With(loggerpkg.OrNop(l), "tools")
	}
}

// WithTracer records a span per invocation.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// toolResponse is the envelope sent to the model when a call fails.
type toolResponse struct {
	OK   bool   `json:"ok"`
	Tool string `json:"tool,omitempty"`
	Err  string `json:"error,omitempty"`
}

// New builds an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		specs:  make(map[string]Spec),
		logger: loggerpkg.NopLogger{},
		tracer: noop.NewTracerProvider().Tracer("tools"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds spec. Names are unique; a second registration under the
// same name fails with ErrDuplicateTool.
func (r *Registry) Register(spec Spec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return newError(ErrInvalidSpec, "", fmt.Errorf("tool name is empty"))
	}
	if spec.Handler == nil {
		return newError(ErrInvalidSpec, name, fmt.Errorf("tool has no handler"))
	}
	if _, exists := r.specs[name]; exists {
		return newError(ErrDuplicateTool, name, nil)
	}
	seen := make(map[string]bool, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if p.Name == "" || seen[p.Name] {
			return newError(ErrInvalidSpec, name, fmt.Errorf("parameter %q is empty or repeated", p.Name))
		}
		seen[p.Name] = true
	}
	spec.Name = name
	r.specs[name] = spec
	r.order = append(r.order, name)
	r.logger.Debug("registered tool", map[string]any{"tool": name})
	return nil
}

// List returns the registered specs in registration order.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// Definitions converts the registry to the function-calling schema.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	return Definitions(r.List())
}

// Definitions converts specs to the function-calling schema.
func Definitions(specs []Spec) []openai.ChatCompletionToolParam {
	defs := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		defs = append(defs, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  openai.FunctionParameters(JSONSchema(spec.Parameters)),
			},
		})
	}
	return defs
}

// Invoke validates params against the tool's schema and runs its handler.
// Failures are *Error values of kind ErrUnknownTool, ErrInvalidParameters or
// ErrToolExecution.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (out string, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := r.tracer.Start(ctx, telemetry.SpanToolInvoke,
		trace.WithAttributes(attribute.String(telemetry.AttrToolName, name)))
	start := time.Now()
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		fields := map[string]any{"tool": name, "duration_ms": time.Since(start).Milliseconds()}
		if err != nil {
			fields["error"] = err.Error()
			r.logger.Warn("tool invocation failed", fields)
			return
		}
		fields["bytes"] = len(out)
		r.logger.Debug("tool invoked", fields)
	}()

	spec, ok := r.specs[name]
	if !ok {
		return "", newError(ErrUnknownTool, name, nil)
	}
	if err := ValidateArgs(spec.Parameters, params); err != nil {
		return "", newError(ErrInvalidParameters, name, err)
	}
	if err := ctx.Err(); err != nil {
		return "", newError(ErrToolExecution, name, err)
	}

	out, err = r.call(ctx, spec, Args(params))
	if err != nil {
		return "", newError(ErrToolExecution, name, err)
	}
	return out, nil
}

// InvokeJSON decodes model-produced arguments before invoking. Malformed JSON
// is repaired when possible.
func (r *Registry) InvokeJSON(ctx context.Context, name, raw string) (string, error) {
	if !r.Has(name) {
		return r.Invoke(ctx, name, nil)
	}
	params, err := DecodeArgs(raw)
	if err != nil {
		r.logger.Debug("tool arguments rejected", map[string]any{"tool": name, "raw": raw})
		return "", newError(ErrInvalidParameters, name, err)
	}
	return r.Invoke(ctx, name, params)
}

// DecodeArgs parses a JSON object of arguments, falling back to jsonrepair.
// Empty input decodes to an empty map.
func DecodeArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		params = nil
		if err := json.Unmarshal([]byte(fixed), &params); err != nil {
			return nil, fmt.Errorf("decode repaired arguments: %w", err)
		}
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

func (r *Registry) call(ctx context.Context, spec Spec, args Args) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", map[string]any{"tool": spec.Name, "stack": string(debug.Stack())})
			out, err = "", fmt.Errorf("panic: %v", rec)
		}
	}()
	if args == nil {
		args = Args{}
	}
	return spec.Handler(ctx, args)
}

// ErrorResult renders err as the JSON envelope sent back to the model in
// place of a tool result.
func ErrorResult(toolName string, err error) string {
	payload, _ := marshalToolResponse(toolName, err)
	return payload
}

func marshalToolResponse(toolName string, err error) (string, error) {
	resp := toolResponse{
		OK:   err == nil,
		Tool: toolName,
	}
	if err != nil {
		resp.Err = err.Error()
	}
	payload, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(payload), nil
}

// marshalData renders a handler's structured result as JSON text.
func marshalData(data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
