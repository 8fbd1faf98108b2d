package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/minhyannv/ai-chat-go/pkg/chat"
	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/flags"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
	"github.com/minhyannv/ai-chat-go/pkg/support"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
	"github.com/minhyannv/ai-chat-go/pkg/tools"
)

const shutdownTimeout = 5 * time.Second

// app owns the long-lived resources of one CLI run.
type app struct {
	settings config.Settings
	logger   loggerpkg.Logger
	tracing  *telemetry.Provider
	flags    flags.Evaluator
	tickets  support.TicketStore
	registry *tools.Registry
	loop     *chat.Loop
}

func newLogger(s config.Settings, w io.Writer) loggerpkg.Logger {
	level, err := loggerpkg.ParseLevel(s.LogLevel)
	logger := loggerpkg.New(w, level)
	if err != nil {
		logger.Warn("invalid log level; using warn", map[string]any{"error": err.Error()})
	}
	return logger
}

// newRegistry registers the toolset's built-in tools.
func newRegistry(s config.Settings, tickets support.TicketStore, logger loggerpkg.Logger, tracing *telemetry.Provider) (*tools.Registry, error) {
	search, err := tools.NewWebSearch(tools.SearchOptions{MaxResults: s.SearchResults})
	if err != nil {
		return nil, fmt.Errorf("create web search: %w", err)
	}
	registry := tools.New(tools.WithLogger(logger), tools.WithTracer(tracing.Tracer()))
	err = tools.RegisterToolset(registry, s.Toolset, tools.Builtins{
		Search: search,
		Support: tools.SupportTools{
			Orders:  support.DefaultOrders(),
			Tickets: tickets,
			Resets:  support.NewResets(),
		},
	})
	if err != nil {
		return nil, err
	}
	return registry, nil
}

// newApp wires configuration, telemetry, flags, tools and the model client.
func newApp(ctx context.Context, s config.Settings, logOut io.Writer) (*app, error) {
	a := &app{settings: s, logger: newLogger(s, logOut)}

	tracing, err := telemetry.New(ctx, telemetry.Config{
		ServiceName:    s.Tracing.ServiceName,
		ServiceVersion: s.Tracing.ServiceVersion,
		Endpoint:       s.Tracing.Endpoint,
		Debug:          s.Tracing.Debug,
		DebugWriter:    logOut,
	})
	if err != nil {
		a.logger.Warn("tracing disabled", map[string]any{"error": err.Error()})
		tracing = telemetry.Noop()
	}
	a.tracing = tracing
	a.flags = flags.New(s, a.logger)

	a.tickets, err = support.OpenTicketStore(s.TicketDB)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open ticket store: %w", err)
	}
	a.registry, err = newRegistry(s, a.tickets, a.logger, a.tracing)
	if err != nil {
		a.close()
		return nil, err
	}

	model := chat.NewOpenAIModel(chat.OpenAIConfig{APIKey: s.APIKey, BaseURL: s.BaseURL})
	a.loop, err = chat.New(model, chat.ConfigFromSettings(s),
		chat.WithTools(a.registry),
		chat.WithFlags(a.flags),
		chat.WithTracer(a.tracing.Tracer()),
		chat.WithLogger(a.logger),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.logger.Info("ai-chat ready", map[string]any{
		"model":   s.Model,
		"toolset": s.Toolset,
		"tools":   a.registry.Len(),
		"flags":   s.FlagsEnabled(),
	})
	return a, nil
}

// close releases resources, bounded by shutdownTimeout.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.flags != nil {
		errs = append(errs, a.flags.Close())
	}
	if a.tickets != nil {
		errs = append(errs, a.tickets.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown incomplete", map[string]any{"error": err.Error()})
	}
}
