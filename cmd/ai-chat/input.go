package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

var errPromptAborted = errors.New("prompt aborted")

// linePrompter reads one line of user input. ok is false at end of input.
type linePrompter interface {
	Prompt() (line string, ok bool, err error)
	AppendHistory(entry string)
	Close() error
}

type bufferedPrompter struct {
	reader *bufio.Reader
	prompt string
	out    io.Writer
}

func newBufferedPrompter(in io.Reader, prompt string, out io.Writer) *bufferedPrompter {
	return &bufferedPrompter{reader: bufio.NewReader(in), prompt: prompt, out: out}
}

func (p *bufferedPrompter) Prompt() (string, bool, error) {
	if p.out != nil && p.prompt != "" {
		_, _ = fmt.Fprint(p.out, p.prompt)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (p *bufferedPrompter) AppendHistory(string) {}

func (p *bufferedPrompter) Close() error { return nil }

type linerPrompter struct {
	state  *liner.State
	prompt string
}

func newLinerPrompter(prompt string) *linerPrompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetMultiLineMode(false)
	state.SetCompleter(completeCommand)
	return &linerPrompter{state: state, prompt: prompt}
}

func (p *linerPrompter) Prompt() (string, bool, error) {
	line, err := p.state.Prompt(p.prompt)
	if err == nil {
		return line, true, nil
	}
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", false, errPromptAborted
	}
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	return "", false, err
}

func (p *linerPrompter) AppendHistory(entry string) {
	if strings.TrimSpace(entry) == "" {
		return
	}
	p.state.AppendHistory(entry)
}

func (p *linerPrompter) Close() error {
	return p.state.Close()
}

func completeCommand(line string) []string {
	lower := strings.ToLower(line)
	var out []string
	for _, cmd := range []string{"help", "clear", "exit", "quit", "bye"} {
		if strings.HasPrefix(cmd, lower) {
			out = append(out, cmd)
		}
	}
	return out
}
