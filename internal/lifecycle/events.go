package lifecycle

import (
	"context"
	"time"
)

// EventType enumerates lifecycle run events.
//
// These values are persisted by the run journal and rendered by the task console.
type EventType string

const (
	RunStarted   EventType = "RUN_STARTED"
	RunCompleted EventType = "RUN_COMPLETED"

	TaskStarted   EventType = "TASK_STARTED"
	TaskSucceeded EventType = "TASK_SUCCEEDED"
	TaskFailed    EventType = "TASK_FAILED"
	TaskSkipped   EventType = "TASK_SKIPPED"
)

// Event is a single progress notification.
type Event struct {
	Type       EventType
	Time       time.Time
	Stack      string
	Transition Transition
	Task       string
	Message    string
	Err        error
}

type Observer interface {
	ObserveEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) ObserveEvent(ev Event) {
	if f == nil {
		return
	}
	f(ev)
}

// Observers fans events out in order.
type Observers []Observer

func (o Observers) ObserveEvent(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveEvent(ev)
		}
	}
}

// Task is one named step of a run.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// runTasks executes tasks in order. The first failure stops the run; the remaining tasks are
// reported as skipped.
func runTasks(ctx context.Context, tasks []Task, emit func(Event)) error {
	for i, task := range tasks {
		emit(Event{Type: TaskStarted, Task: task.Name})
		if err := task.Run(ctx); err != nil {
			emit(Event{Type: TaskFailed, Task: task.Name, Err: err, Message: err.Error()})
			for _, rest := range tasks[i+1:] {
				emit(Event{Type: TaskSkipped, Task: rest.Name})
			}
			return err
		}
		emit(Event{Type: TaskSucceeded, Task: task.Name})
	}
	return nil
}
