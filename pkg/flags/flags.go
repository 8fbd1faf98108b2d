// Package flags evaluates feature flags and AI Configs. Every lookup has a
// fallback value; evaluation failures never surface to callers.
package flags

import (
	"context"
	"fmt"
	"strings"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Context describes the user or session a flag is evaluated for.
type Context struct {
	Key        string
	Kind       string
	Attributes map[string]string
}

// NewContext builds a user context. An empty key becomes "anonymous".
func NewContext(key string, attrs map[string]string) Context {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return Context{Key: key, Kind: "user", Attributes: copied}
}

// With returns a copy of c with one more attribute.
func (c Context) With(name, value string) Context {
	out := NewContext(c.Key, c.Attributes)
	out.Kind = c.Kind
	out.Attributes[name] = value
	return out
}

// Evaluator resolves flag values. Implementations return the fallback on any failure.
type Evaluator interface {
	Bool(key string, fc Context, fallback bool) bool
	Int(key string, fc Context, fallback int) int
	String(key string, fc Context, fallback string) string
	// JSON decodes the flag's JSON value into out and reports whether it did.
	JSON(key string, fc Context, out any) bool
	Close() error
}

// Fallback is the evaluator used when no flag service is configured.
type Fallback struct{}

func (Fallback) Bool(_ string, _ Context, fallback bool) bool       { return fallback }
func (Fallback) Int(_ string, _ Context, fallback int) int          { return fallback }
func (Fallback) String(_ string, _ Context, fallback string) string { return fallback }
func (Fallback) JSON(string, Context, any) bool                     { return false }
func (Fallback) Close() error                                       { return nil }

// New selects the evaluator for settings: LaunchDarkly when a key is set and
// not disabled, Fallback otherwise. A client that cannot be created also
// degrades to Fallback.
func New(settings config.Settings, logger loggerpkg.Logger) Evaluator {
	logger = loggerpkg.OrNop(logger)
	if !settings.FlagsEnabled() {
		logger.Info("flag service disabled; using fallback values", nil)
		return Fallback{}
	}
	ev, err := NewLaunchDarkly(settings.FlagSDKKey, LaunchDarklyOptions{
		Endpoints: settings.FlagEndpoints,
		Logger:    logger,
	})
	if err != nil {
		logger.Warn("flag service unavailable; using fallback values", map[string]any{"error": err.Error()})
		return Fallback{}
	}
	return ev
}

// Toggles are the per-request switches read from the flag service.
type Toggles struct {
	PriorityRouting   bool
	MaxResponseLength int
	EnhancedResponses bool
}

// DefaultToggles returns the fallbacks from settings' features.
func DefaultToggles(settings config.Settings) Toggles {
	return Toggles{
		PriorityRouting:   settings.FeatureBool(config.FeaturePriorityRouting, false),
		MaxResponseLength: settings.FeatureInt(config.FeatureMaxResponseLength, 1000),
		EnhancedResponses: settings.FeatureBool(config.FeatureEnhancedResponses, false),
	}
}

// Map returns the toggles keyed by flag name, for display and span attributes.
func (t Toggles) Map() map[string]any {
	return map[string]any{
		config.FeaturePriorityRouting:   t.PriorityRouting,
		config.FeatureMaxResponseLength: t.MaxResponseLength,
		config.FeatureEnhancedResponses: t.EnhancedResponses,
	}
}

// Evaluate reads all toggles for fc inside a span.
func Evaluate(ctx context.Context, tracer trace.Tracer, ev Evaluator, fc Context, defaults Toggles) Toggles {
	if ev == nil {
		return defaults
	}
	_, span := tracer.Start(ctx, telemetry.SpanFlagEvaluate)
	defer span.End()

	t := Toggles{
		PriorityRouting:   ev.Bool(config.FeaturePriorityRouting, fc, defaults.PriorityRouting),
		MaxResponseLength: ev.Int(config.FeatureMaxResponseLength, fc, defaults.MaxResponseLength),
		EnhancedResponses: ev.Bool(config.FeatureEnhancedResponses, fc, defaults.EnhancedResponses),
	}
	if t.MaxResponseLength <= 3 {
		t.MaxResponseLength = defaults.MaxResponseLength
	}
	span.SetAttributes(
		attribute.Bool(telemetry.AttrFlagPrefix+config.FeaturePriorityRouting, t.PriorityRouting),
		attribute.Int(telemetry.AttrFlagPrefix+config.FeatureMaxResponseLength, t.MaxResponseLength),
		attribute.Bool(telemetry.AttrFlagPrefix+config.FeatureEnhancedResponses, t.EnhancedResponses),
	)
	return t
}

func (t Toggles) String() string {
	return fmt.Sprintf("priority-routing=%v max-response-length=%d enhanced-responses=%v",
		t.PriorityRouting, t.MaxResponseLength, t.EnhancedResponses)
}
