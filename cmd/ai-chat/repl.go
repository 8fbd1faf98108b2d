package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minhyannv/ai-chat-go/pkg/chat"
	loggerpkg "github.com/minhyannv/ai-chat-go/pkg/logger"
)

// session is the part of *chat.Loop the REPL drives.
type session interface {
	Send(ctx context.Context, input string) (chat.Reply, error)
	Clear()
	Terminate()
}

// replOptions configures REPL behavior.
type replOptions struct {
	Logger loggerpkg.Logger
}

// runREPL reads lines until an exit command, end of input, or ctx is done.
func runREPL(ctx context.Context, s session, in linePrompter, r *renderer, opts replOptions) error {
	if s == nil {
		return fmt.Errorf("chat session is required")
	}
	if in == nil {
		return fmt.Errorf("input reader is required")
	}
	logger := loggerpkg.OrNop(opts.Logger)
	logger.Debug("repl start", nil)
	defer s.Terminate()

	printWelcome(r.out)

	for {
		input, ok, err := prompt(ctx, in)
		if err != nil {
			if errors.Is(err, errPromptAborted) || errors.Is(err, context.Canceled) {
				_, _ = fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if !ok {
			_, _ = fmt.Fprintln(r.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		in.AppendHistory(input)

		if handled, quit := handleCommand(input, s, r.out); quit {
			return nil
		} else if handled {
			continue
		}

		reply, err := s.Send(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				_, _ = fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			r.printError(err)
			continue
		}
		r.printToolErrors(reply.ToolCalls)
		r.printReply(reply.Content)
	}
}

// prompt reads a line without outliving ctx.
func prompt(ctx context.Context, in linePrompter) (string, bool, error) {
	type result struct {
		line string
		ok   bool
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, ok, err := in.Prompt()
		ch <- result{line, ok, err}
	}()
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res := <-ch:
		return res.line, res.ok, res.err
	}
}

func printWelcome(out io.Writer) {
	_, _ = fmt.Fprintln(out, "=== AI Chat - Interactive Mode ===")
	_, _ = fmt.Fprintln(out, "Type your message and press Enter.")
	printHelp(out)
}

// handleCommand runs REPL commands. Commands are case-insensitive and may
// start with "/"; any other input is a chat message.
func handleCommand(input string, s session, out io.Writer) (bool, bool) {
	cmd := strings.ToLower(strings.TrimPrefix(input, "/"))
	switch cmd {
	case "help":
		printHelp(out)
		return true, false
	case "clear":
		s.Clear()
		_, _ = fmt.Fprintln(out, "Conversation history cleared.")
		_, _ = fmt.Fprintln(out)
		return true, false
	case "exit", "quit", "bye":
		_, _ = fmt.Fprintln(out, "Goodbye!")
		return true, true
	}
	if strings.HasPrefix(input, "/") {
		_, _ = fmt.Fprintf(out, "Unknown command: %s. Type help for available commands.\n\n", input)
		return true, false
	}
	return false, false
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprintln(out, "Commands:")
	_, _ = fmt.Fprintln(out, "  help  - Show this help message")
	_, _ = fmt.Fprintln(out, "  clear - Clear conversation history")
	_, _ = fmt.Fprintln(out, "  exit  - Exit the program (also quit, bye)")
	_, _ = fmt.Fprintln(out)
}
