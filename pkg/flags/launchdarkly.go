package flags

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/launchdarkly/go-server-sdk/v7/interfaces"
	"github.com/launchdarkly/go-server-sdk/v7/ldcomponents"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
)

const defaultInitTimeout = 5 * time.Second

// variationClient is the subset of *ld.LDClient the evaluator uses.
type variationClient interface {
	BoolVariation(key string, context ldcontext.Context, defaultVal bool) (bool, error)
	IntVariation(key string, context ldcontext.Context, defaultVal int) (int, error)
	StringVariation(key string, context ldcontext.Context, defaultVal string) (string, error)
	JSONVariation(key string, context ldcontext.Context, defaultVal ldvalue.Value) (ldvalue.Value, error)
	Close() error
}

// LaunchDarklyOptions configures the LaunchDarkly client.
type LaunchDarklyOptions struct {
	Endpoints   config.FlagEndpoints
	InitTimeout time.Duration
	Logger      loggerpkg.Logger
}

// LaunchDarkly evaluates flags against the LaunchDarkly service.
type LaunchDarkly struct {
	client variationClient
	logger loggerpkg.Logger
}

// NewLaunchDarkly connects to LaunchDarkly. An initialization timeout is not
// an error: the client keeps connecting and serves fallbacks until ready.
func NewLaunchDarkly(sdkKey string, opts LaunchDarklyOptions) (*LaunchDarkly, error) {
	if sdkKey == "" {
		return nil, errors.New("launchdarkly sdk key is empty")
	}
	timeout := opts.InitTimeout
	if timeout <= 0 {
		timeout = defaultInitTimeout
	}
	logger := loggerpkg.With(loggerpkg.OrNop(opts.Logger), "flags")

	cfg := ld.Config{
		Logging: ldcomponents.NoLogging(),
		ServiceEndpoints: interfaces.ServiceEndpoints{
			Polling:   opts.Endpoints.Base,
			Streaming: opts.Endpoints.Stream,
			Events:    opts.Endpoints.Events,
		},
	}
	client, err := ld.MakeCustomClient(sdkKey, cfg, timeout)
	if client == nil {
		return nil, fmt.Errorf("create launchdarkly client: %w", err)
	}
	if err != nil {
		logger.Warn("launchdarkly client not initialized yet", map[string]any{"error": err.Error()})
	} else {
		logger.Info("launchdarkly client initialized", nil)
	}
	return newLaunchDarkly(client, logger), nil
}

func newLaunchDarkly(client variationClient, logger loggerpkg.Logger) *LaunchDarkly {
	return &LaunchDarkly{client: client, logger: loggerpkg.OrNop(logger)}
}

func (l *LaunchDarkly) context(fc Context) ldcontext.Context {
	b := ldcontext.NewBuilder(fc.Key)
	if fc.Kind != "" {
		b.Kind(ldcontext.Kind(fc.Kind))
	}
	for name, value := range fc.Attributes {
		b.SetString(name, value)
	}
	return b.Build()
}

func (l *LaunchDarkly) failed(key string, err error) {
	l.logger.Debug("flag evaluation failed; using fallback", map[string]any{
		"flag":  key,
		"error": err.Error(),
	})
}

func (l *LaunchDarkly) Bool(key string, fc Context, fallback bool) bool {
	v, err := l.client.BoolVariation(key, l.context(fc), fallback)
	if err != nil {
		l.failed(key, err)
		return fallback
	}
	return v
}

func (l *LaunchDarkly) Int(key string, fc Context, fallback int) int {
	v, err := l.client.IntVariation(key, l.context(fc), fallback)
	if err != nil {
		l.failed(key, err)
		return fallback
	}
	return v
}

func (l *LaunchDarkly) String(key string, fc Context, fallback string) string {
	v, err := l.client.StringVariation(key, l.context(fc), fallback)
	if err != nil {
		l.failed(key, err)
		return fallback
	}
	return v
}

func (l *LaunchDarkly) JSON(key string, fc Context, out any) bool {
	v, err := l.client.JSONVariation(key, l.context(fc), ldvalue.Null())
	if err != nil {
		l.failed(key, err)
		return false
	}
	if v.IsNull() {
		return false
	}
	if err := json.Unmarshal([]byte(v.JSONString()), out); err != nil {
		l.failed(key, err)
		return false
	}
	return true
}

// Close flushes pending analytics events and shuts the client down.
func (l *LaunchDarkly) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
