// File: internal/lifecycle/orchestrator.go
// Brief: Create/update/delete decision and execution for the services stack.

// Package lifecycle decides how to move the services stack to the operator's desired state and
// drives the provider through that transition: validate, mutate, wait, notify.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/discovery"
	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/params"
	"github.com/example/kycstack/internal/precheck"
	"github.com/example/kycstack/internal/services"
)

// Task names, in execution order.
const (
	TaskValidate = "validate template"
	TaskCreate   = "create services stack (this will take ~20 minutes)"
	TaskUpdate   = "update services stack"
	TaskNotify   = "notify primary stack to pick up update"
	TaskDelete   = "delete services stack"
	TaskAwaitDel = "wait for services stack deletion (ETA 5-10 minutes)"
)

// Orchestrator runs one lifecycle transition per call. It is not safe to run two transitions
// against the same stack at once; callers serialize per stack.
type Orchestrator struct {
	Stacks    Stacks
	Discovery Discovery
	Checks    Prechecks
	Zones     ZoneSelector
	Keys      KeyChooser
	Notifier  Notifier
	Confirm   precheck.Confirmer
	Observer  Observer
	Log       logr.Logger
	ZoneCount int
	// Now is overridable for tests.
	Now func() time.Time
}

// Inspect reports the current services stack without changing anything.
func (o *Orchestrator) Inspect(ctx context.Context, env Environment) (StackState, error) {
	state, err := o.observe(ctx, env)
	if err != nil || !state.Exists {
		return state, err
	}
	info, err := o.Discovery.StackInfo(ctx, state.StackID)
	if err != nil {
		return state, err
	}
	state.Region = info.Region
	state.AvailabilityZones = info.AvailabilityZones
	enabled, err := o.Discovery.EnabledServices(ctx, state.StackID)
	if err != nil {
		return state, err
	}
	state.Enabled = enabled
	return state, nil
}

// Plan resolves the current state and the transition desired would trigger.
func (o *Orchestrator) Plan(ctx context.Context, env Environment, desired services.Enablement) (StackState, Transition, error) {
	state, err := o.observe(ctx, env)
	if err != nil {
		return state, "", err
	}
	return state, Decide(state.Exists, desired.Any()), nil
}

// Configure moves the services stack to desired.
func (o *Orchestrator) Configure(ctx context.Context, env Environment, desired services.Enablement) (Result, error) {
	state, transition, err := o.Plan(ctx, env, desired)
	if err != nil {
		return Result{}, err
	}
	res := Result{Transition: transition, StackName: state.Name, StackID: state.StackID}
	log := o.Log.WithValues("stack", state.Name, "transition", transition)

	if transition == TransitionNoop {
		log.Info("no paid services enabled and no services stack exists; nothing to do")
		return res, nil
	}
	if !desired.Explicit {
		if err := o.confirm(ctx, desired.Summary()+"?"); err != nil {
			return res, err
		}
	}

	switch transition {
	case TransitionDelete:
		return o.delete(ctx, state, res, log)
	case TransitionCreate, TransitionUpdate:
		return o.apply(ctx, env, state, desired, res, log)
	default:
		return res, errs.Invariant("unknown transition %q", transition)
	}
}

// Teardown deletes the services stack that belongs to the primary stack.
func (o *Orchestrator) Teardown(ctx context.Context, env Environment) (Result, error) {
	state, err := o.observe(ctx, env)
	if err != nil {
		return Result{}, err
	}
	if !state.Exists {
		return Result{StackName: state.Name}, errs.NotFound("services stack for primary stack %s", env.PrimaryStack)
	}
	res := Result{Transition: TransitionDelete, StackName: state.Name, StackID: state.StackID}
	return o.delete(ctx, state, res, o.Log.WithValues("stack", state.Name, "transition", TransitionDelete))
}

func (o *Orchestrator) observe(ctx context.Context, env Environment) (StackState, error) {
	if strings.TrimSpace(env.PrimaryStack) == "" {
		return StackState{}, errs.Configuration("primary stack name is required")
	}
	name := discovery.ServicesStackName(env.PrimaryStack)
	id, exists, err := o.Discovery.FindStackID(ctx, name)
	if err != nil {
		return StackState{Name: name}, err
	}
	return StackState{Name: name, StackID: id, Exists: exists}, nil
}

func (o *Orchestrator) delete(ctx context.Context, state StackState, res Result, log logr.Logger) (Result, error) {
	if state.StackID == "" {
		return res, errs.Invariant("services stack %s exists but has no stack id", state.Name)
	}
	if err := o.confirm(ctx, fmt.Sprintf("all paid services are disabled, delete the services stack %s?", state.StackID)); err != nil {
		return res, err
	}
	log.Info("deleting services stack", "stackId", state.StackID)
	var op Operation
	tasks := []Task{
		{Name: TaskDelete, Run: func(ctx context.Context) error {
			var err error
			op, err = o.Stacks.DeleteStack(ctx, state.StackID)
			return err
		}},
		{Name: TaskAwaitDel, Run: func(ctx context.Context) error {
			return o.Stacks.Await(context.WithoutCancel(ctx), op)
		}},
	}
	if err := o.run(ctx, state.Name, TransitionDelete, tasks); err != nil {
		return res, err
	}
	res.Committed = true
	log.Info("services stack deleted", "stackId", state.StackID)
	return res, nil
}

func (o *Orchestrator) apply(ctx context.Context, env Environment, state StackState, desired services.Enablement, res Result, log logr.Logger) (Result, error) {
	exists := state.Exists
	if exists && state.StackID == "" {
		return res, errs.Invariant("services stack %s exists but has no stack id", state.Name)
	}
	if strings.TrimSpace(env.Bucket) == "" {
		return res, errs.Configuration("private configuration bucket is required")
	}
	if strings.TrimSpace(env.TemplateURL) == "" {
		return res, errs.Configuration("services stack template URL is required")
	}

	if err := o.confirm(ctx, "have you been given access to the following image repositories? "+strings.Join(desired.Repositories(), ", ")); err != nil {
		return res, err
	}
	if err := o.Checks.CheckLicenses(ctx, desired.EnabledServices(), env.Bucket); err != nil {
		return res, err
	}

	zoneCount := o.ZoneCount
	if zoneCount <= 0 {
		zoneCount = DefaultZoneCount
	}
	var zones []string
	if exists {
		info, err := o.Discovery.StackInfo(ctx, state.StackID)
		if err != nil {
			return res, err
		}
		if info.Region != "" && env.Region != "" && info.Region != env.Region {
			log.Info("services stack region differs from primary stack region", "stackRegion", info.Region, "primaryRegion", env.Region)
		}
		zones = info.AvailabilityZones
	} else {
		var err error
		zones, err = o.Zones.SelectZones(ctx, env.Region, zoneCount)
		if err != nil {
			return res, fmt.Errorf("select availability zones: %w", err)
		}
		if len(zones) != zoneCount {
			return res, errs.Invariant("zone selector returned %d zones, want %d", len(zones), zoneCount)
		}
	}
	if err := o.Checks.CheckQuota(ctx, exists, len(zones), env.Region); err != nil {
		return res, err
	}

	keyRef, _, err := o.Discovery.EncryptionKey(ctx, env.Bucket)
	if err != nil {
		return res, err
	}
	var sshKey string
	if desired.SSH {
		if o.Keys == nil {
			return res, errs.Configuration("SSH access requested but no key pair chooser is configured")
		}
		if sshKey, err = o.Keys.ChooseKeyPair(ctx); err != nil {
			return res, fmt.Errorf("choose key pair: %w", err)
		}
	}

	list := params.Build(params.Inputs{
		Enablement: desired,
		Discovery: params.Discovery{
			Zones:         zones,
			Bucket:        env.Bucket,
			Region:        env.Region,
			AccountID:     env.AccountID,
			EncryptionKey: keyRef,
		},
		SSHKey: sshKey,
	})
	if exists {
		if err := checkZoneOverrides(zones, desired.Overrides); err != nil {
			return res, err
		}
		list = list.Collapse()
	} else if dups := list.Duplicates(); len(dups) > 0 {
		return res, errs.Configuration("duplicate stack parameters for a new stack: %s", strings.Join(dups, ", "))
	}
	res.Parameters = list
	log.V(1).Info("stack parameters", "parameters", list.String())

	if err := o.confirm(ctx, "are you ready?"); err != nil {
		return res, err
	}

	in := StackInput{
		Name:        state.Name,
		StackID:     state.StackID,
		TemplateURL: env.TemplateURL,
		Parameters:  list,
	}
	transition, mutate, title := TransitionUpdate, o.Stacks.UpdateStack, TaskUpdate
	if !exists {
		in.DisableRollback = true
		transition, mutate, title = TransitionCreate, o.Stacks.CreateStack, TaskCreate
	}

	var op Operation
	tasks := []Task{
		{Name: TaskValidate, Run: func(ctx context.Context) error {
			declared, err := o.Stacks.ValidateTemplate(ctx, in.TemplateURL)
			if err != nil {
				return fmt.Errorf("validate template: %w", err)
			}
			if err := checkDeclared(declared, in.Parameters); err != nil {
				return err
			}
			op, err = mutate(ctx, in)
			if err != nil {
				return err
			}
			if op.StackID != "" {
				res.StackID = op.StackID
			}
			return nil
		}},
		{Name: title, Run: func(ctx context.Context) error {
			if err := o.Stacks.Await(context.WithoutCancel(ctx), op); err != nil {
				return err
			}
			res.Committed = true
			return nil
		}},
		{Name: TaskNotify, Run: func(ctx context.Context) error {
			return o.Notifier.Notify(ctx, env.PrimaryStack)
		}},
	}
	if err := o.run(ctx, state.Name, transition, tasks); err != nil {
		if res.Committed {
			log.Error(err, "services stack committed but primary stack notification failed", "stackId", res.StackID)
		}
		return res, err
	}
	log.Info("services stack ready", "stackId", res.StackID)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, stack string, transition Transition, tasks []Task) error {
	emit := func(ev Event) {
		if o.Observer == nil {
			return
		}
		ev.Stack = stack
		ev.Transition = transition
		if ev.Time.IsZero() {
			ev.Time = o.now()
		}
		o.Observer.ObserveEvent(ev)
	}
	emit(Event{Type: RunStarted})
	err := runTasks(ctx, tasks, emit)
	done := Event{Type: RunCompleted, Message: "succeeded"}
	if err != nil {
		done.Err = err
		done.Message = err.Error()
	}
	emit(done)
	return err
}

func (o *Orchestrator) confirm(ctx context.Context, question string) error {
	return precheck.ConfirmOrAbort(ctx, o.Confirm, question)
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// checkZoneOverrides rejects overrides that would move an existing stack to other zones.
// Repeating the current zone is allowed.
func checkZoneOverrides(zones []string, overrides []services.Override) error {
	for _, o := range overrides {
		slot, ok := params.ZoneSlot(o.Key)
		if !ok {
			continue
		}
		if slot > len(zones) {
			return errs.Configuration("%s: the services stack runs in %d availability zones; zones cannot be added on update", o.Key, len(zones))
		}
		if current := zones[slot-1]; o.Value != current {
			return errs.Configuration("%s=%s: the services stack runs in %s; availability zones cannot change on update", o.Key, o.Value, current)
		}
	}
	return nil
}

func checkDeclared(declared []string, list params.List) error {
	known := make(map[string]struct{}, len(declared))
	for _, k := range declared {
		known[k] = struct{}{}
	}
	var unknown []string
	for _, p := range list {
		if _, ok := known[p.Key]; !ok {
			unknown = append(unknown, p.Key)
		}
	}
	if len(unknown) > 0 {
		return errs.Configuration("template does not declare parameter(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
