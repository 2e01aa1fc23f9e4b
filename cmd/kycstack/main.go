// main.go bootstraps kycstack: it builds the root Cobra command and executes it with a
// signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/ui"
)

const (
	envPrefix     = "KYCSTACK"
	configFileEnv = "KYCSTACK_CONFIG"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	// The first signal cancels ctx; stack waits keep running on an uncancellable context, so
	// restore default handling to let a second signal kill the process.
	go func() {
		<-ctx.Done()
		cancel()
	}()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	logLevel := "info"
	cmd := &cobra.Command{
		Use:           "kycstack",
		Short:         "Manage the KYC services stack next to a primary application stack",
		Long:          "kycstack creates, updates and deletes the optional KYC services stack (spoof detection, face matching, liveness check) and pushes configuration to the primary application.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for kycstack output (debug, info, warn, error)")

	servicesCmd, servicesSubs := newServicesCommand(&logLevel)
	confCmd, pushCmd := newConfCommand(&logLevel)
	cmd.AddCommand(servicesCmd, confCmd, newVersionCommand())
	cmd.Example = `  # Enable spoof detection and face matching for the acme stack
  kycstack services configure --stack acme --spoof-detection --face-match --liveness-check=false \
    --template-url https://example-bucket.s3.amazonaws.com/kyc-services/stack.yml

  # Show the services stack
  kycstack services status --stack acme

  # Push bot and style configuration to the deployed stack
  kycstack conf push -b -s --stack acme`
	bindViper(cmd, append([]*cobra.Command{cmd, servicesCmd, pushCmd}, servicesSubs...)...)
	return cmd
}

// bindViper overlays environment variables (KYCSTACK_ prefix) and an optional config file on
// every flag the user did not set explicitly. The overlay runs before any command executes.
func bindViper(root *cobra.Command, commands ...*cobra.Command) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	configFile := os.Getenv(configFileEnv)
	configureConfigFile(v, configFile)

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		for _, c := range commands {
			if err := v.BindPFlags(c.Flags()); err != nil {
				return err
			}
			if err := v.BindPFlags(c.PersistentFlags()); err != nil {
				return err
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		for _, c := range commands {
			for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
				if err := applyViper(v, fs); err != nil {
					return errs.Configuration("%v", err)
				}
			}
		}
		return nil
	}
}

func applyViper(v *viper.Viper, fs *pflag.FlagSet) error {
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if firstErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		var vals []string
		switch raw := v.Get(f.Name).(type) {
		case []any:
			for _, item := range raw {
				vals = append(vals, fmt.Sprintf("%v", item))
			}
		case []string:
			vals = raw
		default:
			if s := fmt.Sprintf("%v", raw); s != "" {
				vals = []string{s}
			}
		}
		// Set through the FlagSet so overlaid values count as given, like a typed flag.
		for _, val := range vals {
			if err := fs.Set(f.Name, val); err != nil {
				firstErr = fmt.Errorf("invalid value %q for --%s from %s_%s or the config file: %w",
					val, f.Name, envPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err)
				return
			}
		}
	})
	return firstErr
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		if expanded, err := homedir.Expand(explicitPath); err == nil {
			explicitPath = expanded
		}
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "kycstack"))
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "kycstack"))
		add(filepath.Join(home, ".kycstack"))
	}
	return dirs
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch kind := errs.KindOf(err); {
	case kind == errs.ErrPreconditionDeclined:
		message = fmt.Sprintf("%s\nNothing was changed after the declined prompt.", err)
	case errors.Is(err, ui.ErrConfirmationRequired):
		message = fmt.Sprintf("%s\nHint: run in a terminal or pass --yes (or set %s=1).", err, ui.ApproveEnv)
	case kind == errs.ErrConfiguration:
		message = fmt.Sprintf("%s\nHint: see 'kycstack <command> --help' for the required flags.", err)
	case kind == errs.ErrProviderOperationFailed:
		message = fmt.Sprintf("%s\nHint: inspect the stack events in the CloudFormation console and 'kycstack services runs --id <run>'.", err)
	case kind == errs.ErrNotFound:
		message = fmt.Sprintf("%s\nHint: check --stack, --region and --profile point at the primary stack's account.", err)
	case errors.Is(err, context.Canceled):
		message = fmt.Sprintf("%s\nHint: interrupted; a stack operation already submitted keeps running in AWS.", err)
	}
	prefix := color.New(color.FgRed)
	if !ui.IsTerminalWriter(w) {
		prefix.DisableColor()
	}
	prefix.Fprint(w, "Error: ")
	fmt.Fprintf(w, "%s\n", message)
}
