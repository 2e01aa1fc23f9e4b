package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"

	"github.com/example/kycstack/internal/lifecycle"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "journal.sqlite"), logr.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return s
}

func emitRun(s *Store, stack string, transition lifecycle.Transition, start time.Time, failure error) {
	ev := func(typ lifecycle.EventType, task string, offset int, err error) lifecycle.Event {
		e := lifecycle.Event{Type: typ, Time: start.Add(time.Duration(offset) * time.Second), Stack: stack, Transition: transition, Task: task, Err: err}
		if err != nil {
			e.Message = err.Error()
		}
		return e
	}
	s.ObserveEvent(ev(lifecycle.RunStarted, "", 0, nil))
	s.ObserveEvent(ev(lifecycle.TaskStarted, "validate template", 1, nil))
	if failure != nil {
		s.ObserveEvent(ev(lifecycle.TaskFailed, "validate template", 2, failure))
		s.ObserveEvent(ev(lifecycle.TaskSkipped, "notify primary stack to pick up update", 2, nil))
	} else {
		s.ObserveEvent(ev(lifecycle.TaskSucceeded, "validate template", 2, nil))
	}
	s.ObserveEvent(ev(lifecycle.RunCompleted, "", 3, failure))
}

func TestJournalRecordsRuns(t *testing.T) {
	s := openTemp(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	emitRun(s, "acme-kyc-services", lifecycle.TransitionCreate, start, nil)
	emitRun(s, "acme-kyc-services", lifecycle.TransitionUpdate, start.Add(time.Hour), errors.New("boom"))
	emitRun(s, "other-kyc-services", lifecycle.TransitionDelete, start.Add(2*time.Hour), nil)

	runs, err := s.Runs(context.Background(), "acme-kyc-services", 10)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	want := []Run{
		{ID: "run-2", Stack: "acme-kyc-services", Transition: lifecycle.TransitionUpdate, Status: StatusFailed, Error: "boom", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + 3*time.Second)},
		{ID: "run-1", Stack: "acme-kyc-services", Transition: lifecycle.TransitionCreate, Status: StatusSucceeded, StartedAt: start, FinishedAt: start.Add(3 * time.Second)},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Fatalf("runs mismatch (-want +got):\n%s", diff)
	}

	all, err := s.Runs(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("all runs: %v", err)
	}
	if len(all) != 2 || all[0].ID != "run-3" {
		t.Fatalf("expected newest two runs, got %+v", all)
	}
}

func TestJournalEntriesInOrder(t *testing.T) {
	s := openTemp(t)
	emitRun(s, "acme-kyc-services", lifecycle.TransitionUpdate, time.Unix(100, 0), errors.New("boom"))
	entries, err := s.Entries(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, string(e.Type)+" "+e.Task+" "+e.Message)
	}
	want := []string{
		"TASK_STARTED validate template ",
		"TASK_FAILED validate template boom",
		"TASK_SKIPPED notify primary stack to pick up update ",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestJournalIgnoresOrphanEvents(t *testing.T) {
	s := openTemp(t)
	s.ObserveEvent(lifecycle.Event{Type: lifecycle.TaskStarted, Task: "x"})
	runs, err := s.Runs(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %+v", runs)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), " ", logr.Discard()); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestOpenExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	s, err := Open(context.Background(), "~/.kycstack/journal.sqlite", logr.Discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(home, ".kycstack", "journal.sqlite")); err != nil {
		t.Fatalf("journal not created under the home directory: %v", err)
	}

	def, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if want := filepath.Join(home, DefaultRelPath); def != want {
		t.Fatalf("DefaultPath() = %q, want %q", def, want)
	}
}
