package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/minhyannv/ai-chat-go/pkg/chat"
)

// renderer prints replies and errors. Markdown is rendered only on a terminal.
type renderer struct {
	out       io.Writer
	markdown  *glamour.TermRenderer
	errLabel  *color.Color
	toolLabel *color.Color
}

func newRenderer(out io.Writer, tty bool, width int) *renderer {
	r := &renderer{
		out:       out,
		errLabel:  color.New(color.FgRed, color.Bold),
		toolLabel: color.New(color.FgYellow),
	}
	if !tty {
		r.errLabel.DisableColor()
		r.toolLabel.DisableColor()
		return r
	}
	if width <= 0 {
		width = 80
	}
	if width > 120 {
		width = 120
	}
	md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err == nil {
		r.markdown = md
	}
	return r
}

func (r *renderer) printReply(content string) {
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(content); err == nil {
			_, _ = fmt.Fprint(r.out, strings.TrimRight(rendered, "\n")+"\n\n")
			return
		}
	}
	_, _ = fmt.Fprintf(r.out, "%s\n\n", content)
}

func (r *renderer) printError(err error) {
	_, _ = r.errLabel.Fprint(r.out, "Error:")
	_, _ = fmt.Fprintf(r.out, " %v\n\n", err)
}

// printToolErrors reports the failed tool calls of a turn.
func (r *renderer) printToolErrors(calls []chat.ToolCallRecord) {
	for _, call := range calls {
		if call.Err == nil {
			continue
		}
		_, _ = r.toolLabel.Fprint(r.out, "Tool error:")
		_, _ = fmt.Fprintf(r.out, " %v\n", call.Err)
	}
}

// printSummary prints the single-shot debug summary.
func (r *renderer) printSummary(reply chat.Reply) {
	_, _ = fmt.Fprintln(r.out, "--- debug ---")
	_, _ = fmt.Fprintf(r.out, "model: %s\n", reply.Model)
	_, _ = fmt.Fprintf(r.out, "flags: %s\n", reply.Toggles)
	_, _ = fmt.Fprintf(r.out, "tokens: in=%d out=%d\n", reply.Usage.InputTokens, reply.Usage.OutputTokens)
	if reply.Truncated {
		_, _ = fmt.Fprintln(r.out, "reply truncated: true")
	}
	if len(reply.ToolCalls) == 0 {
		_, _ = fmt.Fprintln(r.out, "tool calls: none")
		return
	}
	_, _ = fmt.Fprintln(r.out, "tool calls:")
	for i, call := range reply.ToolCalls {
		status := "ok"
		if call.Err != nil {
			status = "error: " + call.Err.Error()
		}
		_, _ = fmt.Fprintf(r.out, "  %d. %s %s (%s)\n", i+1, call.Name, call.Arguments, status)
	}
}
