// Command ai-chat is an interactive chat assistant with tool calling and
// feature-flag controlled behavior.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/minhyannv/ai-chat-go/pkg/config"
	"github.com/minhyannv/ai-chat-go/pkg/support"
	"github.com/minhyannv/ai-chat-go/pkg/telemetry"
)

// errReported marks failures already printed to the user.
var errReported = errors.New("reported")

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, s streams) int {
	cmd := newRootCommand(s)
	cmd.SetArgs(args)
	cmd.SetIn(s.in)
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		newRenderer(s.err, isTerminal(s.err), 0).printError(err)
	}
	return 1
}

func newRootCommand(s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ai-chat",
		Short:         "Chat with an AI assistant that can search, calculate and handle support requests",
		Version:       config.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd, true)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), settings, s)
		},
	}
	config.BindFlags(cmd.PersistentFlags())
	cmd.AddCommand(newToolsCommand(s))
	return cmd
}

func newToolsCommand(s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools registered for the selected toolset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd, false)
			if err != nil {
				return err
			}
			registry, err := newRegistry(settings, support.NewMemoryTickets(), newLogger(settings, s.err), telemetry.Noop())
			if err != nil {
				return err
			}
			specs := registry.List()
			if len(specs) == 0 {
				_, _ = fmt.Fprintf(s.out, "No tools for toolset %q.\n", settings.Toolset)
				return nil
			}
			for _, spec := range specs {
				_, _ = fmt.Fprintf(s.out, "%s - %s\n", spec.Name, spec.Description)
				for _, p := range spec.Parameters {
					req := ""
					if p.Required {
						req = ", required"
					}
					enum := ""
					if len(p.Enum) > 0 {
						enum = " [" + strings.Join(p.Enum, "|") + "]"
					}
					_, _ = fmt.Fprintf(s.out, "    %s (%s%s)%s: %s\n", p.Name, p.Type, req, enum, p.Description)
				}
			}
			return nil
		},
	}
}

// loadSettings resolves .env, config file, environment and flags.
func loadSettings(cmd *cobra.Command, validate bool) (config.Settings, error) {
	_ = godotenv.Load()

	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return config.Settings{}, err
	}
	if err := config.ReadConfigFile(v); err != nil {
		return config.Settings{}, err
	}
	if validate {
		return config.Resolve(v)
	}
	return config.Load(v), nil
}

// runChat answers --message once, or runs the interactive REPL.
func runChat(ctx context.Context, settings config.Settings, s streams) error {
	a, err := newApp(ctx, settings, s.err)
	if err != nil {
		return err
	}
	defer a.close()

	out := newRenderer(s.out, isTerminal(s.out), terminalWidth(s.out))
	if settings.Message != "" {
		reply, err := a.loop.Send(ctx, settings.Message)
		if err != nil {
			out.printError(err)
			return errReported
		}
		out.printToolErrors(reply.ToolCalls)
		out.printReply(reply.Content)
		out.printSummary(reply)
		return nil
	}

	var in linePrompter
	if isTerminal(s.in) && isTerminal(s.out) {
		in = newLinerPrompter("> ")
	} else {
		in = newBufferedPrompter(s.in, "> ", s.out)
	}
	defer func() { _ = in.Close() }()
	return runREPL(ctx, a.loop, in, out, replOptions{Logger: a.logger})
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(v any) int {
	f, ok := v.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width - 4
}
