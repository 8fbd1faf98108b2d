package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Toolsets accepted by --tools.
const (
	ToolsetNone      = "none"
	ToolsetAssistant = "assistant"
	ToolsetSupport   = "support"
	ToolsetAll       = "all"
)

// Feature keys shared with the flag service. Their values in Settings.Features
// are the fallbacks used whenever the flag service is unavailable.
const (
	FeaturePriorityRouting   = "priority-routing"
	FeatureMaxResponseLength = "max-response-length"
	FeatureEnhancedResponses = "enhanced-responses"
)

// Viper keys.
const (
	keyAPIKey          = "api_key"
	keyBaseURL         = "base_url"
	keyModel           = "model"
	keyFlagSDKKey      = "flag_sdk_key"
	keyDisableFlags    = "disable_flags"
	keyFlagBaseURI     = "flag_base_uri"
	keyFlagStreamURI   = "flag_stream_uri"
	keyFlagEventsURI   = "flag_events_uri"
	keyAIConfigKey     = "ai_config_key"
	keyContextKey      = "context_key"
	keyMessage         = "message"
	keyToolset         = "toolset"
	keyMaxTurns        = "max_turns"
	keyMaxHistory      = "max_history"
	keySearchResults   = "search_results"
	keyTicketDB        = "ticket_db"
	keyVerbose         = "verbose"
	keyLogLevel        = "log_level"
	keyServiceName     = "otel_service_name"
	keyServiceVersion  = "otel_service_version"
	keyOTLPEndpoint    = "otel_exporter_otlp_endpoint"
	keyOTelDebug       = "otel_debug"
	keyFeatures        = "features"
	defaultModel       = "gpt-4o-mini"
	defaultContextKey  = "anonymous"
	defaultServiceName = "ai-chat"
)

// Version is reported as the trace service version.
var Version = "0.1.0"

// TracingSettings configures trace export.
type TracingSettings struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Debug          bool
}

// FlagEndpoints overrides the flag service URIs. Empty values use the SDK defaults.
type FlagEndpoints struct {
	Base   string
	Stream string
	Events string
}

// Settings holds all runtime configuration for the CLI. It is resolved once
// at startup and passed by value.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string

	FlagSDKKey    string
	DisableFlags  bool
	FlagEndpoints FlagEndpoints
	AIConfigKey   string
	ContextKey    string

	Message       string
	Toolset       string
	MaxTurns      int
	MaxHistory    int
	SearchResults int
	TicketDB      string

	Verbose  bool
	LogLevel string
	Tracing  TracingSettings

	Features map[string]any
}

// ConfigurationError reports a missing or invalid required setting.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
}

// DefaultSettings returns a baseline configuration without side effects.
func DefaultSettings() Settings {
	return Settings{
		Model:         defaultModel,
		ContextKey:    defaultContextKey,
		Toolset:       ToolsetAll,
		MaxTurns:      5,
		MaxHistory:    20,
		SearchResults: 5,
		LogLevel:      "warn",
		Tracing: TracingSettings{
			ServiceName:    defaultServiceName,
			ServiceVersion: Version,
		},
		Features: DefaultFeatures(),
	}
}

// DefaultFeatures returns the hard-coded flag fallbacks.
func DefaultFeatures() map[string]any {
	return map[string]any{
		FeaturePriorityRouting:   false,
		FeatureMaxResponseLength: 1000,
		FeatureEnhancedResponses: false,
	}
}

// FlagsEnabled reports whether the flag service should be contacted.
func (s Settings) FlagsEnabled() bool {
	return s.FlagSDKKey != "" && !s.DisableFlags
}

// ToolsEnabled reports whether any tool is exposed to the model.
func (s Settings) ToolsEnabled() bool {
	return s.Toolset != ToolsetNone
}

// FeatureBool returns the named feature as a bool, or fallback.
func (s Settings) FeatureBool(name string, fallback bool) bool {
	switch v := s.Features[name].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

// FeatureInt returns the named feature as an int, or fallback.
func (s Settings) FeatureInt(name string, fallback int) int {
	switch v := s.Features[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscan(strings.TrimSpace(v), &n); err == nil {
			return n
		}
	}
	return fallback
}

// BindFlags declares the CLI flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultSettings()
	fs.String("api-key", "", "OpenAI API key (env OPENAI_API_KEY)")
	fs.String("base-url", "", "OpenAI-compatible base URL (env OPENAI_BASE_URL)")
	fs.String("model", d.Model, "Model name (env DEFAULT_MODEL)")
	fs.String("launchdarkly-sdk-key", "", "LaunchDarkly SDK key (env LAUNCHDARKLY_SDK_KEY)")
	fs.Bool("disable-launchdarkly", false, "Skip the flag service and use fallback values")
	fs.String("ai-config-key", "", "LaunchDarkly AI Config key (env AI_CONFIG_KEY)")
	fs.String("context-key", d.ContextKey, "LaunchDarkly context key")
	fs.StringP("message", "m", "", "Handle a single message and exit")
	fs.String("tools", d.Toolset, "Toolset: none, assistant, support, all")
	fs.Int("max-turns", d.MaxTurns, "Max tool-call rounds per message")
	fs.Int("max-history", d.MaxHistory, "Max conversation messages kept between turns")
	fs.Int("search-results", d.SearchResults, "Default number of web search results")
	fs.String("ticket-db", "", "SQLite file for support tickets (default in-memory)")
	fs.BoolP("verbose", "v", false, "Verbose logging")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
}

// NewViper builds a viper instance bound to fs and the environment.
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	d := DefaultSettings()

	flagKeys := map[string]string{
		keyAPIKey:        "api-key",
		keyBaseURL:       "base-url",
		keyModel:         "model",
		keyFlagSDKKey:    "launchdarkly-sdk-key",
		keyDisableFlags:  "disable-launchdarkly",
		keyAIConfigKey:   "ai-config-key",
		keyContextKey:    "context-key",
		keyMessage:       "message",
		keyToolset:       "tools",
		keyMaxTurns:      "max-turns",
		keyMaxHistory:    "max-history",
		keySearchResults: "search-results",
		keyTicketDB:      "ticket-db",
		keyVerbose:       "verbose",
		keyLogLevel:      "log-level",
	}
	for key, name := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	envKeys := map[string][]string{
		keyAPIKey:         {"OPENAI_API_KEY"},
		keyBaseURL:        {"OPENAI_BASE_URL"},
		keyModel:          {"DEFAULT_MODEL", "OPENAI_MODEL"},
		keyFlagSDKKey:     {"LAUNCHDARKLY_SDK_KEY"},
		keyDisableFlags:   {"DISABLE_LAUNCHDARKLY"},
		keyFlagBaseURI:    {"LD_BASE_URI"},
		keyFlagStreamURI:  {"LD_STREAM_URI"},
		keyFlagEventsURI:  {"LD_EVENTS_URI"},
		keyAIConfigKey:    {"AI_CONFIG_KEY"},
		keyContextKey:     {"LD_CONTEXT_KEY"},
		keyToolset:        {"AI_CHAT_TOOLS"},
		keyTicketDB:       {"AI_CHAT_TICKET_DB"},
		keyLogLevel:       {"AI_CHAT_LOG_LEVEL"},
		keyServiceName:    {"OTEL_SERVICE_NAME"},
		keyServiceVersion: {"OTEL_SERVICE_VERSION"},
		keyOTLPEndpoint:   {"OTEL_EXPORTER_OTLP_ENDPOINT"},
		keyOTelDebug:      {"OTEL_DEBUG"},
	}
	for key, names := range envKeys {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault(keyModel, d.Model)
	v.SetDefault(keyContextKey, d.ContextKey)
	v.SetDefault(keyToolset, d.Toolset)
	v.SetDefault(keyMaxTurns, d.MaxTurns)
	v.SetDefault(keyMaxHistory, d.MaxHistory)
	v.SetDefault(keySearchResults, d.SearchResults)
	v.SetDefault(keyLogLevel, d.LogLevel)
	v.SetDefault(keyServiceName, d.Tracing.ServiceName)
	v.SetDefault(keyServiceVersion, d.Tracing.ServiceVersion)
	v.SetDefault(keyFeatures, d.Features)
	return v, nil
}

// ReadConfigFile loads an optional ai-chat config file from the working
// directory or $HOME. A missing file is not an error.
func ReadConfigFile(v *viper.Viper) error {
	v.SetConfigName("ai-chat")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// Resolve reads v into Settings and validates them. A missing API key
// yields a *ConfigurationError.
func Resolve(v *viper.Viper) (Settings, error) {
	s := Load(v)
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads v into normalized Settings without validating them.
func Load(v *viper.Viper) Settings {
	s := DefaultSettings()
	s.APIKey = v.GetString(keyAPIKey)
	s.BaseURL = v.GetString(keyBaseURL)
	s.Model = v.GetString(keyModel)
	s.FlagSDKKey = v.GetString(keyFlagSDKKey)
	s.DisableFlags = v.GetBool(keyDisableFlags)
	s.FlagEndpoints = FlagEndpoints{
		Base:   v.GetString(keyFlagBaseURI),
		Stream: v.GetString(keyFlagStreamURI),
		Events: v.GetString(keyFlagEventsURI),
	}
	s.AIConfigKey = v.GetString(keyAIConfigKey)
	s.ContextKey = v.GetString(keyContextKey)
	s.Message = v.GetString(keyMessage)
	s.Toolset = v.GetString(keyToolset)
	s.MaxTurns = v.GetInt(keyMaxTurns)
	s.MaxHistory = v.GetInt(keyMaxHistory)
	s.SearchResults = v.GetInt(keySearchResults)
	s.TicketDB = v.GetString(keyTicketDB)
	s.Verbose = v.GetBool(keyVerbose)
	s.LogLevel = v.GetString(keyLogLevel)
	s.Tracing = TracingSettings{
		ServiceName:    v.GetString(keyServiceName),
		ServiceVersion: v.GetString(keyServiceVersion),
		Endpoint:       v.GetString(keyOTLPEndpoint),
		Debug:          v.GetBool(keyOTelDebug),
	}

	features := DefaultFeatures()
	for name, value := range v.GetStringMap(keyFeatures) {
		features[name] = value
	}
	s.Features = features
	return Normalize(s)
}

// Validate checks the settings required to talk to the model.
func Validate(s Settings) error {
	if s.APIKey == "" {
		return &ConfigurationError{
			Key:     "api_key",
			Message: "OpenAI API key is required. Set OPENAI_API_KEY in .env file or use --api-key",
		}
	}
	switch s.Toolset {
	case ToolsetNone, ToolsetAssistant, ToolsetSupport, ToolsetAll:
	default:
		return &ConfigurationError{
			Key:     "toolset",
			Message: fmt.Sprintf("unknown toolset %q (want none, assistant, support or all)", s.Toolset),
		}
	}
	return nil
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(s Settings) Settings {
	d := DefaultSettings()
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.Model = strings.TrimSpace(s.Model)
	s.FlagSDKKey = strings.TrimSpace(s.FlagSDKKey)
	s.AIConfigKey = strings.TrimSpace(s.AIConfigKey)
	s.ContextKey = strings.TrimSpace(s.ContextKey)
	s.Message = strings.TrimSpace(s.Message)
	s.Toolset = strings.ToLower(strings.TrimSpace(s.Toolset))
	s.TicketDB = strings.TrimSpace(s.TicketDB)
	s.Tracing.Endpoint = strings.TrimSpace(s.Tracing.Endpoint)

	if s.Model == "" {
		s.Model = d.Model
	}
	if s.ContextKey == "" {
		s.ContextKey = d.ContextKey
	}
	if s.Toolset == "" {
		s.Toolset = d.Toolset
	}
	if s.MaxTurns <= 0 {
		s.MaxTurns = 1
	}
	if s.MaxHistory <= 0 {
		s.MaxHistory = d.MaxHistory
	}
	if s.SearchResults <= 0 {
		s.SearchResults = d.SearchResults
	}
	if s.Tracing.ServiceName == "" {
		s.Tracing.ServiceName = d.Tracing.ServiceName
	}
	if s.Tracing.ServiceVersion == "" {
		s.Tracing.ServiceVersion = d.Tracing.ServiceVersion
	}
	if s.Features == nil {
		s.Features = DefaultFeatures()
	}
	if s.Verbose {
		s.LogLevel = "debug"
	}
	return s
}
