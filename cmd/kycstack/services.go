// File: cmd/kycstack/services.go
// Brief: `kycstack services` command wiring.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/example/kycstack/internal/cloud"
	"github.com/example/kycstack/internal/config"
	"github.com/example/kycstack/internal/discovery"
	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/journal"
	"github.com/example/kycstack/internal/lifecycle"
	"github.com/example/kycstack/internal/logging"
	"github.com/example/kycstack/internal/notify"
	"github.com/example/kycstack/internal/precheck"
	"github.com/example/kycstack/internal/services"
	"github.com/example/kycstack/internal/ui"
)

func newServicesCommand(logLevel *string) (*cobra.Command, []*cobra.Command) {
	opts := config.NewServicesOptions()
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Create, update, inspect or delete the KYC services stack",
		Args:  cobra.NoArgs,
	}
	opts.BindPersistentFlags(cmd.PersistentFlags())

	configure := &cobra.Command{
		Use:   "configure",
		Short: "Enable or disable paid services; creates, updates or deletes the services stack as needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesConfigure(cmd, opts, *logLevel)
		},
	}
	opts.BindConfigureFlags(configure.Flags())

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the services stack and the services it runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesStatus(cmd, opts, *logLevel)
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the services stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesDelete(cmd, opts, *logLevel)
		},
	}
	opts.BindMutationFlags(del.Flags())

	runs := &cobra.Command{
		Use:   "runs",
		Short: "List recent services stack runs from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesRuns(cmd, opts, *logLevel)
		},
	}
	runs.Flags().IntVar(&opts.RunsLimit, "limit", opts.RunsLimit, "Maximum number of runs to list (newest first)")
	runs.Flags().StringVar(&opts.RunID, "id", "", "Show the task events of one run")

	cmd.AddCommand(configure, status, del, runs)
	return cmd, []*cobra.Command{configure, status, del, runs}
}

// servicesRuntime bundles the collaborators of one services invocation.
type servicesRuntime struct {
	log     logr.Logger
	clients *cloud.Clients
	disc    *discovery.Client
	orch    *lifecycle.Orchestrator
	env     lifecycle.Environment
	journal *journal.Store
}

func (r *servicesRuntime) Close() {
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

func newServicesRuntime(cmd *cobra.Command, opts *config.ServicesOptions, logLevel string, mutate bool) (*servicesRuntime, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(logLevel)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	clients, err := cloud.Load(ctx, cloud.Options{Region: opts.AWS.Region, Profile: opts.AWS.Profile})
	if err != nil {
		return nil, errs.Configuration("%v", err)
	}
	stacks := clients.Stacks(log.WithName("stacks"))
	stacks.MaxWait = opts.Wait
	compute := clients.Compute()
	storage := clients.Storage()
	disc := &discovery.Client{Stacks: stacks, Quota: compute, Keys: storage, Log: log.WithName("discovery")}

	rt := &servicesRuntime{log: log, clients: clients, disc: disc}
	rt.env = lifecycle.Environment{
		PrimaryStack: strings.TrimSpace(opts.PrimaryStack),
		Region:       clients.Region(),
		Bucket:       strings.TrimSpace(opts.Bucket),
		TemplateURL:  strings.TrimSpace(opts.TemplateURL),
	}

	errOut := cmd.ErrOrStderr()
	approval := ui.Approval{}
	if mutate {
		if approval, err = ui.NewApproval(cmd.InOrStdin(), errOut, opts.Approval.Yes, opts.Approval.NonInteractive); err != nil {
			return nil, errs.Configuration("%v", err)
		}
	}
	prompter := &ui.Prompter{In: cmd.InOrStdin(), Out: errOut, Approval: approval}

	observers := lifecycle.Observers{ui.NewTaskConsole(errOut, ui.TaskConsoleOptions{Color: ui.IsTerminalWriter(errOut)})}
	if !opts.NoJournal {
		store, err := openJournal(ctx, opts.JournalPath, log)
		if err != nil {
			log.Error(err, "run journal unavailable; continuing without it")
		} else {
			rt.journal = store
			observers = append(observers, store)
		}
	}

	var zones lifecycle.ZoneSelector = compute
	if len(opts.Zones) > 0 {
		zones = fixedZones(opts.Zones)
	}
	rt.orch = &lifecycle.Orchestrator{
		Stacks:    stacks,
		Discovery: disc,
		Checks: &precheck.Checker{
			Storage:  storage,
			Quota:    disc,
			Confirm:  prompter,
			EIPLimit: opts.ElasticIPLimit,
			Log:      log.WithName("precheck"),
		},
		Zones: zones,
		Keys: &ui.KeyPairChooser{
			List:   compute.KeyPairs,
			Preset: opts.SSHKey,
			Prompt: prompter,
			Log:    log.WithName("keys"),
		},
		Notifier: &notify.Client{Invoker: clients.Functions(), Log: log.WithName("notify")},
		Confirm:  prompter,
		Observer: observers,
		Log:      log.WithName("lifecycle"),
	}
	return rt, nil
}

func openJournal(ctx context.Context, path string, log logr.Logger) (*journal.Store, error) {
	if strings.TrimSpace(path) == "" {
		def, err := journal.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	return journal.Open(ctx, path, log.WithName("journal"))
}

// resolveEnvironment fills in the account and, unless overridden, the primary stack's private
// bucket.
func (r *servicesRuntime) resolveEnvironment(ctx context.Context) error {
	account, err := r.clients.Identity().AccountID(ctx)
	if err != nil {
		return err
	}
	r.env.AccountID = account
	if r.env.Bucket == "" {
		bucket, err := r.disc.PrivateBucket(ctx, r.env.PrimaryStack)
		if err != nil {
			return err
		}
		r.env.Bucket = bucket
	}
	return nil
}

func runServicesConfigure(cmd *cobra.Command, opts *config.ServicesOptions, logLevel string) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	desired, err := opts.Enablement(cmd.Flags())
	if err != nil {
		return errs.Configuration("%v", err)
	}
	rt, err := newServicesRuntime(cmd, opts, logLevel, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctx := cmd.Context()

	state, transition, err := rt.orch.Plan(ctx, rt.env, desired)
	if err != nil {
		return err
	}
	if transition == lifecycle.TransitionCreate || transition == lifecycle.TransitionUpdate {
		if err := rt.resolveEnvironment(ctx); err != nil {
			return err
		}
	}
	rt.log.V(1).Info("planned transition", "stack", state.Name, "transition", transition, "options", opts.String())

	res, err := rt.orch.Configure(ctx, rt.env, desired)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runServicesDelete(cmd *cobra.Command, opts *config.ServicesOptions, logLevel string) error {
	rt, err := newServicesRuntime(cmd, opts, logLevel, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	res, err := rt.orch.Teardown(cmd.Context(), rt.env)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runServicesStatus(cmd *cobra.Command, opts *config.ServicesOptions, logLevel string) error {
	rt, err := newServicesRuntime(cmd, opts, logLevel, false)
	if err != nil {
		return err
	}
	defer rt.Close()
	state, err := rt.orch.Inspect(cmd.Context(), rt.env)
	if err != nil {
		return err
	}
	printState(cmd.OutOrStdout(), state)
	return nil
}

func runServicesRuns(cmd *cobra.Command, opts *config.ServicesOptions, logLevel string) error {
	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	store, err := openJournal(cmd.Context(), opts.JournalPath, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if id := strings.TrimSpace(opts.RunID); id != "" {
		entries, err := store.Entries(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errs.NotFound("run %s has no recorded events", id)
		}
		return printEntries(cmd.OutOrStdout(), entries)
	}
	stack := ""
	if p := strings.TrimSpace(opts.PrimaryStack); p != "" {
		stack = discovery.ServicesStackName(p)
	}
	runs, err := store.Runs(cmd.Context(), stack, opts.RunsLimit)
	if err != nil {
		return err
	}
	return printRuns(cmd.OutOrStdout(), runs)
}

func printResult(w io.Writer, res lifecycle.Result) {
	switch {
	case res.Transition == lifecycle.TransitionNoop:
		fmt.Fprintln(w, "nothing to do: no paid services enabled and no services stack exists")
	case res.Transition == lifecycle.TransitionDelete:
		fmt.Fprintf(w, "deleted services stack %s\n", res.StackName)
	default:
		fmt.Fprintf(w, "%sd services stack %s (%s)\n", res.Transition, res.StackName, res.StackID)
	}
}

func printState(w io.Writer, state lifecycle.StackState) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "STACK\t%s\n", state.Name)
	if !state.Exists {
		fmt.Fprintf(tw, "STATUS\tnot deployed\n")
		return
	}
	fmt.Fprintf(tw, "ID\t%s\n", state.StackID)
	fmt.Fprintf(tw, "REGION\t%s\n", state.Region)
	fmt.Fprintf(tw, "ZONES\t%s\n", strings.Join(state.AvailabilityZones, ", "))
	enabled := map[services.Name]bool{}
	for _, n := range state.Enabled {
		enabled[n] = true
	}
	for _, def := range services.All() {
		status := "disabled"
		if enabled[def.Name] {
			status = "enabled"
		}
		fmt.Fprintf(tw, "%s\t%s\n", strings.ToUpper(def.Title), status)
	}
}

func printRuns(w io.Writer, runs []journal.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTACK\tTRANSITION\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		took := "-"
		if !r.FinishedAt.IsZero() {
			took = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Stack, r.Transition, r.Status, r.StartedAt.Format(time.RFC3339), took, firstLine(r.Error))
	}
	return tw.Flush()
}

func printEntries(w io.Writer, entries []journal.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tTASK\tMESSAGE")
	for _, e := range entries {
		task := e.Task
		if task == "" {
			task = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Time.Format(time.RFC3339), e.Type, task, firstLine(e.Message))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// fixedZones selects operator-provided zones for a new stack.
type fixedZones []string

func (z fixedZones) SelectZones(_ context.Context, region string, count int) ([]string, error) {
	if len(z) != count {
		return nil, errs.Configuration("--zones lists %d zones, a services stack in %s needs %d", len(z), region, count)
	}
	out := make([]string, len(z))
	for i, zone := range z {
		out[i] = strings.TrimSpace(zone)
	}
	return out, nil
}
