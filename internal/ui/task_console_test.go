package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/kycstack/internal/lifecycle"
)

func TestTaskConsoleRendersRun(t *testing.T) {
	buf := &bytes.Buffer{}
	c := NewTaskConsole(buf, TaskConsoleOptions{})
	start := time.Unix(1000, 0)
	at := func(s int) time.Time { return start.Add(time.Duration(s) * time.Second) }
	base := lifecycle.Event{Stack: "acme-kyc-services", Transition: lifecycle.TransitionUpdate}
	ev := func(typ lifecycle.EventType, task string, s int, err error) lifecycle.Event {
		e := base
		e.Type, e.Task, e.Time, e.Err = typ, task, at(s), err
		if err != nil {
			e.Message = err.Error()
		}
		return e
	}
	boom := errors.New("boom\ndetails")
	for _, e := range []lifecycle.Event{
		ev(lifecycle.RunStarted, "", 0, nil),
		ev(lifecycle.TaskStarted, "validate template", 0, nil),
		ev(lifecycle.TaskSucceeded, "validate template", 4, nil),
		ev(lifecycle.TaskStarted, "update services stack", 4, nil),
		ev(lifecycle.TaskFailed, "update services stack", 64, boom),
		ev(lifecycle.TaskSkipped, "notify primary stack to pick up update", 64, nil),
		ev(lifecycle.RunCompleted, "", 65, boom),
	} {
		c.ObserveEvent(e)
	}
	want := []string{
		"==> update acme-kyc-services",
		"  ... validate template",
		"  ok  validate template (4s)",
		"  ... update services stack",
		"  ERR update services stack: boom",
		"  --  notify primary stack to pick up update (skipped)",
		"==> update acme-kyc-services failed after 1m5s",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("console mismatch (-want +got):\n%s", diff)
	}
}
