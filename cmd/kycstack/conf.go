// File: cmd/kycstack/conf.go
// Brief: `kycstack conf push` command wiring.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/kycstack/internal/cloud"
	"github.com/example/kycstack/internal/config"
	"github.com/example/kycstack/internal/confpush"
	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/logging"
	"github.com/example/kycstack/internal/ui"
)

func newConfCommand(logLevel *string) (*cobra.Command, *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "conf",
		Short: "Manage the primary application's configuration",
		Args:  cobra.NoArgs,
	}
	opts := &config.ConfPushOptions{}
	push := &cobra.Command{
		Use:   "push",
		Short: "Push bot, models, style and terms to the primary application",
		Args:  cobra.NoArgs,
		Example: `  # Push everything to the deployed stack
  kycstack conf push -b -m -s -t --stack acme

  # Push models to a local serverless project under the debugger
  kycstack conf push -m --local --project ../app --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfPush(cmd, opts, *logLevel)
		},
	}
	opts.AddFlags(push)
	cmd.AddCommand(push)
	return cmd, push
}

func runConfPush(cmd *cobra.Command, opts *config.ConfPushOptions, logLevel string) error {
	log, err := logging.New(logLevel)
	if err != nil {
		return err
	}
	dest, err := opts.Destination(config.Truthy(os.Getenv(config.LocalEnv)))
	if err != nil {
		return err
	}
	confDir, err := opts.ConfDirPath()
	if err != nil {
		return err
	}
	payload, err := confpush.Assemble(confDir, opts.Items())
	if err != nil {
		return errs.Configuration("%v", err)
	}
	deployer := &confpush.Deployer{Runner: confpush.ExecRunner{}, Log: log.WithName("confpush")}
	if !dest.Local {
		clients, err := cloud.Load(cmd.Context(), cloud.Options{Region: opts.AWS.Region, Profile: opts.AWS.Profile})
		if err != nil {
			return errs.Configuration("%v", err)
		}
		deployer.Invoker = clients.Functions()
	}

	stop := ui.StartSpinner(cmd.ErrOrStderr(), "pushing configuration")
	out, err := deployer.Deliver(cmd.Context(), payload, dest)
	stop(err == nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), confpush.Pretty(out))
	return nil
}
