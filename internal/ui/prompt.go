// File: internal/ui/prompt.go
// Brief: Operator approval and yes/no prompts for mutating commands.

package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ApproveEnv is the environment variable that pre-approves every prompt.
const ApproveEnv = "KYCSTACK_YES"

// ErrConfirmationRequired is returned when a prompt is needed but cannot be shown.
var ErrConfirmationRequired = errors.New("refusing to proceed without confirmation; rerun with --yes")

// Approval records how prompts may be answered for one invocation.
type Approval struct {
	Approved       bool
	InteractiveTTY bool
	NonInteractive bool
}

// ApprovedFromEnv reports whether ApproveEnv holds a truthy value.
func ApprovedFromEnv() bool {
	v := strings.TrimSpace(os.Getenv(ApproveEnv))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// NewApproval resolves the approval mode from flags, the environment and the terminal.
func NewApproval(in io.Reader, out io.Writer, approved, nonInteractive bool) (Approval, error) {
	if !approved && ApprovedFromEnv() {
		approved = true
	}
	if nonInteractive && !approved {
		return Approval{}, fmt.Errorf("--non-interactive requires --yes")
	}
	return Approval{
		Approved:       approved,
		InteractiveTTY: IsTerminalReader(in) && IsTerminalWriter(out),
		NonInteractive: nonInteractive,
	}, nil
}

// Prompter asks questions on a terminal. One Prompter should serve a whole invocation so that
// buffered input is shared across prompts.
type Prompter struct {
	In       io.Reader
	Out      io.Writer
	Approval Approval

	once   sync.Once
	reader *bufio.Reader
	warn   *color.Color
	// pending is a read abandoned by a cancelled prompt; the next prompt takes its line.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func (p *Prompter) init() {
	p.once.Do(func() {
		p.reader = bufio.NewReader(p.In)
		p.warn = color.New(color.FgYellow, color.Bold)
		if !p.Approval.InteractiveTTY {
			p.warn.DisableColor()
		}
	})
}

func (p *Prompter) canAsk() error {
	if p.Approval.NonInteractive || !p.Approval.InteractiveTTY {
		return ErrConfirmationRequired
	}
	return nil
}

// Confirm asks a yes/no question. Anything other than y/yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.init()
	question = strings.TrimSpace(question)
	if p.Approval.Approved {
		p.writeQuestion(question)
		fmt.Fprintln(p.Out, "[y/N]: yes (approved)")
		return true, nil
	}
	if err := p.canAsk(); err != nil {
		return false, err
	}
	p.writeQuestion(question)
	fmt.Fprint(p.Out, "[y/N]: ")
	reply, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(reply) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Choose shows a numbered list and returns the picked option.
func (p *Prompter) Choose(ctx context.Context, title string, options []string) (string, error) {
	p.init()
	if len(options) == 0 {
		return "", errors.New("nothing to choose from")
	}
	if err := p.canAsk(); err != nil {
		return "", fmt.Errorf("%s: %w", title, err)
	}
	fmt.Fprintln(p.Out, title)
	for i, opt := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, opt)
	}
	for {
		fmt.Fprintf(p.Out, "choose [1-%d]: ", len(options))
		reply, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		var n int
		if _, err := fmt.Sscanf(reply, "%d", &n); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			if reply == opt {
				return opt, nil
			}
		}
		fmt.Fprintf(p.Out, "invalid choice %q\n", reply)
	}
}

func (p *Prompter) writeQuestion(question string) {
	if strings.HasPrefix(question, "WARNING") {
		p.warn.Fprintln(p.Out, question)
		return
	}
	fmt.Fprint(p.Out, question+" ")
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if p.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := p.reader.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
		p.pending = ch
	}
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return "", ctx.Err()
	case res := <-p.pending:
		p.pending = nil
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", res.err
		}
		if errors.Is(res.err, io.EOF) && res.line == "" {
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(res.line), nil
	}
}
