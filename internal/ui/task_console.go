package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/example/kycstack/internal/lifecycle"
)

type TaskConsoleOptions struct {
	Color bool
}

// TaskConsole renders lifecycle events as one line per task transition.
type TaskConsole struct {
	out io.Writer

	mu       sync.Mutex
	started  map[string]time.Time
	runStart time.Time

	title, ok, fail, skip, faint *color.Color
}

func NewTaskConsole(out io.Writer, opts TaskConsoleOptions) *TaskConsole {
	c := &TaskConsole{
		out:     out,
		started: map[string]time.Time{},
		title:   color.New(color.Bold),
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		skip:    color.New(color.FgYellow),
		faint:   color.New(color.Faint),
	}
	if !opts.Color {
		for _, col := range []*color.Color{c.title, c.ok, c.fail, c.skip, c.faint} {
			col.DisableColor()
		}
	}
	return c
}

func (c *TaskConsole) ObserveEvent(ev lifecycle.Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case lifecycle.RunStarted:
		c.runStart = ev.Time
		c.started = map[string]time.Time{}
		c.title.Fprintf(c.out, "==> %s %s\n", ev.Transition, ev.Stack)
	case lifecycle.TaskStarted:
		c.started[ev.Task] = ev.Time
		fmt.Fprintf(c.out, "  ... %s\n", ev.Task)
	case lifecycle.TaskSucceeded:
		c.ok.Fprintf(c.out, "  ok  %s", ev.Task)
		c.faint.Fprintf(c.out, " (%s)\n", elapsed(c.started[ev.Task], ev.Time))
	case lifecycle.TaskFailed:
		c.fail.Fprintf(c.out, "  ERR %s: %s\n", ev.Task, firstLine(ev.Message))
	case lifecycle.TaskSkipped:
		c.skip.Fprintf(c.out, "  --  %s (skipped)\n", ev.Task)
	case lifecycle.RunCompleted:
		took := elapsed(c.runStart, ev.Time)
		if ev.Err != nil {
			c.fail.Fprintf(c.out, "==> %s %s failed after %s\n", ev.Transition, ev.Stack, took)
			return
		}
		c.ok.Fprintf(c.out, "==> %s %s completed in %s\n", ev.Transition, ev.Stack, took)
	}
}

func elapsed(from, to time.Time) string {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return "0s"
	}
	return to.Sub(from).Round(time.Second).String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
