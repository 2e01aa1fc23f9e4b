package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/errs"
)

func interactive(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{In: strings.NewReader(input), Out: out, Approval: Approval{InteractiveTTY: true}}, out
}

func TestConfirmSharesInputAcrossPrompts(t *testing.T) {
	p, out := interactive("y\nno\nYES\n")
	want := []bool{true, false, true}
	for i, w := range want {
		got, err := p.Confirm(context.Background(), "continue?")
		if err != nil {
			t.Fatalf("prompt %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("prompt %d: got %v want %v", i, got, w)
		}
	}
	if strings.Count(out.String(), "continue? [y/N]: ") != 3 {
		t.Fatalf("unexpected prompt output %q", out.String())
	}
}

func TestCancelledPromptHandsLineToNextPrompt(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	p := &Prompter{In: in, Out: &bytes.Buffer{}, Approval: Approval{InteractiveTTY: true}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Confirm(ctx, "first?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	go func() { _, _ = io.WriteString(w, "y\nn\n") }()
	got, err := p.Confirm(context.Background(), "second?")
	if err != nil || !got {
		t.Fatalf("second prompt: got %v %v", got, err)
	}
	got, err = p.Confirm(context.Background(), "third?")
	if err != nil || got {
		t.Fatalf("third prompt: got %v %v", got, err)
	}
}

func TestConfirmApprovedDoesNotRead(t *testing.T) {
	out := &bytes.Buffer{}
	p := &Prompter{In: strings.NewReader(""), Out: out, Approval: Approval{Approved: true}}
	ok, err := p.Confirm(context.Background(), "are you ready?")
	if err != nil || !ok {
		t.Fatalf("got %v %v", ok, err)
	}
	if !strings.Contains(out.String(), "yes (approved)") {
		t.Fatalf("expected approval note, got %q", out.String())
	}
}

func TestConfirmRefusesWithoutTerminal(t *testing.T) {
	p := &Prompter{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}}
	if _, err := p.Confirm(context.Background(), "continue?"); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected confirmation required, got %v", err)
	}
}

func TestConfirmEOFIsAnError(t *testing.T) {
	p, _ := interactive("")
	if _, err := p.Confirm(context.Background(), "continue?"); err == nil {
		t.Fatalf("expected error on closed input")
	}
}

func TestNewApproval(t *testing.T) {
	t.Setenv(ApproveEnv, "")
	if _, err := NewApproval(strings.NewReader(""), &bytes.Buffer{}, false, true); err == nil {
		t.Fatalf("--non-interactive without --yes must fail")
	}
	a, err := NewApproval(strings.NewReader(""), &bytes.Buffer{}, true, true)
	if err != nil || !a.Approved || a.InteractiveTTY {
		t.Fatalf("got %+v %v", a, err)
	}
	t.Setenv(ApproveEnv, "on")
	a, err = NewApproval(strings.NewReader(""), &bytes.Buffer{}, false, true)
	if err != nil || !a.Approved {
		t.Fatalf("env approval: got %+v %v", a, err)
	}
}

func TestChoose(t *testing.T) {
	p, out := interactive("9\nops\n")
	got, err := p.Choose(context.Background(), "pick", []string{"dev", "ops"})
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if got != "ops" {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(out.String(), `invalid choice "9"`) {
		t.Fatalf("expected invalid choice note, got %q", out.String())
	}

	p, _ = interactive("1\n")
	if got, _ := p.Choose(context.Background(), "pick", []string{"dev", "ops"}); got != "dev" {
		t.Fatalf("numeric choice: got %q", got)
	}
}

func TestKeyPairChooser(t *testing.T) {
	list := func(names ...string) func(context.Context) ([]string, error) {
		return func(context.Context) ([]string, error) { return names, nil }
	}
	ctx := context.Background()

	c := &KeyPairChooser{List: list("dev", "ops"), Preset: "ops", Log: logr.Discard()}
	if got, err := c.ChooseKeyPair(ctx); err != nil || got != "ops" {
		t.Fatalf("preset: %q %v", got, err)
	}
	c.Preset = "missing"
	if _, err := c.ChooseKeyPair(ctx); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing preset: %v", err)
	}

	c = &KeyPairChooser{List: list("only"), Log: logr.Discard()}
	if got, err := c.ChooseKeyPair(ctx); err != nil || got != "only" {
		t.Fatalf("single: %q %v", got, err)
	}

	c = &KeyPairChooser{List: list(), Log: logr.Discard()}
	if _, err := c.ChooseKeyPair(ctx); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("none: %v", err)
	}

	p, _ := interactive("2\n")
	c = &KeyPairChooser{List: list("dev", "ops"), Prompt: p, Log: logr.Discard()}
	if got, err := c.ChooseKeyPair(ctx); err != nil || got != "ops" {
		t.Fatalf("prompted: %q %v", got, err)
	}
}
