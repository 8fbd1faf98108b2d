// Package chat runs the conversation loop: it sends the conversation to the
// model, dispatches requested tool calls, and folds the results back in.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/flags"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
	"github.com/minhyannv/ai-chat-go/pkg/prompt"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
	"github.com/minhyannv/ai-chat-go/pkg/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the loop's position in a turn.
type State int

const (
	StateIdle State = iota
	StateAwaitingModelResponse
	StateAwaitingToolResult
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModelResponse:
		return "awaiting_model_response"
	case StateAwaitingToolResult:
		return "awaiting_tool_result"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}

// ErrTerminated is returned by Send after Terminate.
var ErrTerminated = errors.New("conversation terminated")

// ToolInvoker dispatches tool calls by name. *tools.Registry implements it.
type ToolInvoker interface {
	List() []tools.Spec
	InvokeJSON(ctx context.Context, name, raw string) (string, error)
}

// Config holds per-session loop settings.
type Config struct {
	Model       string
	Toolset     string
	MaxTurns    int
	MaxHistory  int
	AIConfigKey string
	FlagContext flags.Context
	// Defaults are the toggle values used when the flag service has none.
	Defaults flags.Toggles
}

// ConfigFromSettings maps resolved settings to a loop config.
func ConfigFromSettings(s config.Settings) Config {
	return Config{
		Model:       s.Model,
		Toolset:     s.Toolset,
		MaxTurns:    s.MaxTurns,
		MaxHistory:  s.MaxHistory,
		AIConfigKey: s.AIConfigKey,
		FlagContext: flags.NewContext(s.ContextKey, nil),
		Defaults:    flags.DefaultToggles(s),
	}
}

// ToolCallRecord is one executed tool call of a turn.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments string
	Result    string
	Err       error
}

// Reply is the outcome of one Send.
type Reply struct {
	Content   string
	Truncated bool
	Model     string
	ToolCalls []ToolCallRecord
	Toggles   flags.Toggles
	Usage     Usage
}

// Loop holds conversation state for one session.
type Loop struct {
	cfg    Config
	model  Model
	tools  ToolInvoker
	flags  flags.Evaluator
	tracer trace.Tracer
	logger loggerpkg.Logger

	conv  *Conversation
	state State
}

// New initializes a Loop with the provided model, config, and dependencies.
func New(model Model, cfg Config, opts ...Option) (*Loop, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("model name is not set")
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 1
	}
	if cfg.FlagContext.Key == "" {
		cfg.FlagContext = flags.NewContext("", nil)
	}
	if cfg.Defaults.MaxResponseLength <= 0 {
		cfg.Defaults.MaxResponseLength = flags.DefaultToggles(config.DefaultSettings()).MaxResponseLength
	}

	deps := newLoopDeps()
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	l := &Loop{
		cfg:    cfg,
		model:  model,
		tools:  deps.tools,
		flags:  deps.flags,
		tracer: deps.tracer,
		logger: loggerpkg.With(deps.logger, "chat"),
		conv:   NewConversation(cfg.MaxHistory),
	}
	l.logger.Debug("chat loop init", map[string]any{
		"model":       cfg.Model,
		"toolset":     cfg.Toolset,
		"max_turns":   cfg.MaxTurns,
		"max_history": cfg.MaxHistory,
		"tools":       len(l.specs()),
	})
	return l, nil
}

func (l *Loop) State() State {
	return l.state
}

// Messages returns a copy of the conversation history.
func (l *Loop) Messages() []Message {
	return l.conv.Messages()
}

// Clear empties the conversation.
func (l *Loop) Clear() {
	l.conv.Clear()
	l.logger.Debug("conversation cleared", nil)
}

// Terminate ends the session. Later Sends fail with ErrTerminated.
func (l *Loop) Terminate() {
	l.state = StateTerminated
}

func (l *Loop) specs() []tools.Spec {
	if l.tools == nil || l.cfg.Toolset == config.ToolsetNone {
		return nil
	}
	return l.tools.List()
}

// turn carries the per-request values of one Send.
type turn struct {
	input   string
	toggles flags.Toggles
	ai      flags.AIConfig
	model   string
	system  string
	preface []Message
	specs   []tools.Spec
}

// Send processes one user message and returns the final assistant reply.
// On a model failure the conversation is restored to its previous length and
// a *ModelCallError is returned.
func (l *Loop) Send(ctx context.Context, input string) (reply Reply, err error) {
	if l.state == StateTerminated {
		return Reply{}, ErrTerminated
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{}, errors.New("user input is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := l.tracer.Start(ctx, telemetry.SpanTurn,
		trace.WithAttributes(attribute.Int(telemetry.AttrMessageLength, len(input))))
	defer func() {
		telemetry.RecordError(span, err)
		span.SetAttributes(
			attribute.Int(telemetry.AttrResponseLength, len(reply.Content)),
			attribute.Int(telemetry.AttrToolCalls, len(reply.ToolCalls)),
		)
		span.End()
	}()

	t := l.prepare(ctx, input)
	previousLen := l.conv.Len()
	l.conv.Append(Message{Role: RoleUser, Content: input})

	reply, err = l.run(ctx, t)
	if err != nil {
		l.conv.Truncate(previousLen)
		if l.state != StateTerminated {
			l.state = StateIdle
		}
		l.logger.Warn("turn discarded", map[string]any{"error": err.Error()})
		return Reply{}, err
	}
	return reply, nil
}

// prepare evaluates flags and builds the request settings for a turn.
func (l *Loop) prepare(ctx context.Context, input string) turn {
	ev := l.flags
	fc := l.cfg.FlagContext.With("message_length", strconv.Itoa(len(input)))
	t := turn{
		input:   input,
		toggles: flags.Evaluate(ctx, l.tracer, ev, fc, l.cfg.Defaults),
		ai:      flags.LoadAIConfig(ev, l.cfg.AIConfigKey, fc),
		model:   l.cfg.Model,
		specs:   l.specs(),
	}

	var override []string
	if t.ai.Enabled {
		if t.ai.Model != "" {
			t.model = t.ai.Model
		}
		if t.ai.Instructions != "" {
			override = append(override, t.ai.Instructions)
		}
		for _, m := range t.ai.Messages {
			switch Role(m.Role) {
			case RoleSystem, roleDeveloper:
				override = append(override, m.Content)
			case RoleUser, RoleAssistant:
				t.preface = append(t.preface, Message{Role: Role(m.Role), Content: m.Content})
			default:
				l.logger.Warn("ai config message skipped", map[string]any{"role": m.Role})
			}
		}
	}
	t.system = prompt.BuildSystemPrompt(l.cfg.Toolset, t.specs, prompt.Options{
		Enhanced: t.toggles.EnhancedResponses,
		Override: strings.Join(override, "\n\n"),
	})
	l.logger.Debug("turn prepared", map[string]any{
		"model":     t.model,
		"toggles":   t.toggles.Map(),
		"ai_config": t.ai.Enabled,
	})
	return t
}

// run alternates model calls and tool rounds until the model answers.
func (l *Loop) run(ctx context.Context, t turn) (Reply, error) {
	reply := Reply{Model: t.model, Toggles: t.toggles}
	rounds := 0
	failedRound := false

	for {
		offerTools := len(t.specs) > 0 && rounds < l.cfg.MaxTurns && !failedRound
		resp, err := l.complete(ctx, t, offerTools)
		if err != nil {
			return Reply{}, &ModelCallError{Model: t.model, Err: err}
		}

		switch r := resp.(type) {
		case DirectReply:
			reply.Usage = reply.Usage.add(r.Usage)
			reply.Content, reply.Truncated = truncate(r.Content, t.toggles.MaxResponseLength)
			l.conv.Append(Message{Role: RoleAssistant, Content: reply.Content})
			l.state = StateIdle
			return reply, nil

		case ToolCallRequest:
			reply.Usage = reply.Usage.add(r.Usage)
			if !offerTools {
				return Reply{}, &ModelCallError{Model: t.model, Err: errors.New("model requested tools after tool use ended for this turn")}
			}
			rounds++
			l.state = StateAwaitingToolResult
			calls := l.routeCalls(t, r.Calls)
			l.conv.Append(Message{Role: RoleAssistant, Content: r.Content, ToolCalls: calls})
			for _, call := range calls {
				record := l.invoke(ctx, call)
				if record.Err != nil {
					failedRound = true
				}
				reply.ToolCalls = append(reply.ToolCalls, record)
			}

		default:
			return Reply{}, &ModelCallError{Model: t.model, Err: errors.New("unrecognized model response")}
		}
	}
}

func (l *Loop) complete(ctx context.Context, t turn, offerTools bool) (Response, error) {
	l.state = StateAwaitingModelResponse
	req := Request{
		Model:       t.model,
		System:      t.system,
		Messages:    append(append([]Message{}, t.preface...), l.conv.Window()...),
		Temperature: t.ai.Temperature,
		MaxTokens:   t.ai.MaxTokens,
	}
	if offerTools {
		req.Tools = t.specs
	}

	ctx, span := l.tracer.Start(ctx, telemetry.SpanModelCall, trace.WithAttributes(
		attribute.String(telemetry.AttrModel, req.Model),
		attribute.Int(telemetry.AttrToolsAvailable, len(req.Tools)),
	))
	defer span.End()

	resp, err := l.model.Complete(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	switch r := resp.(type) {
	case DirectReply:
		span.SetAttributes(telemetry.ModelAttrs(req.Model, r.Usage.InputTokens, r.Usage.OutputTokens)...)
		span.SetAttributes(attribute.String(telemetry.AttrFinishReason, r.FinishReason))
	case ToolCallRequest:
		span.SetAttributes(telemetry.ModelAttrs(req.Model, r.Usage.InputTokens, r.Usage.OutputTokens)...)
		span.SetAttributes(
			attribute.String(telemetry.AttrFinishReason, r.FinishReason),
			attribute.Int(telemetry.AttrToolCalls, len(r.Calls)),
		)
	}
	return resp, nil
}

// invoke runs one tool call and appends its tool message. Failures become a
// JSON error envelope so the model can narrate them.
func (l *Loop) invoke(ctx context.Context, call ToolCall) ToolCallRecord {
	record := ToolCallRecord{ID: call.ID, Name: call.Name, Arguments: call.Arguments}
	msg := Message{Role: RoleTool, ToolCallID: call.ID, ToolName: call.Name}

	if l.tools == nil {
		record.Err = &tools.Error{Kind: tools.ErrUnknownTool, Tool: call.Name}
	} else {
		record.Result, record.Err = l.tools.InvokeJSON(ctx, call.Name, call.Arguments)
	}
	if record.Err != nil {
		msg.Content = tools.ErrorResult(call.Name, record.Err)
		msg.IsError = true
	} else {
		msg.Content = record.Result
	}
	l.conv.Append(msg)
	return record
}

// routeCalls applies priority routing: urgent requests open high priority tickets.
func (l *Loop) routeCalls(t turn, calls []ToolCall) []ToolCall {
	out := make([]ToolCall, len(calls))
	copy(out, calls)
	if !t.toggles.PriorityRouting || !strings.Contains(strings.ToLower(t.input), "urgent") {
		return out
	}
	for i, call := range out {
		if call.Name != "create_ticket" {
			continue
		}
		args, err := tools.DecodeArgs(call.Arguments)
		if err != nil {
			continue
		}
		args["priority"] = "high"
		payload, err := json.Marshal(args)
		if err != nil {
			continue
		}
		out[i].Arguments = string(payload)
		l.logger.Debug("priority routing applied", map[string]any{"tool_call": call.ID})
	}
	return out
}

// truncate shortens s to at most limit runes, ending in "...".
func truncate(s string, limit int) (string, bool) {
	if limit <= 3 || utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "...", true
}
