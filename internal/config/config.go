// File: internal/config/config.go
// Brief: CLI options for the services and config push commands.

// Package config defines the flag plumbing shared by kycstack's commands, translating Cobra/Viper
// flag values into typed structs the orchestrator and the config deployer consume.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/kycstack/internal/confpush"
	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/params"
	"github.com/example/kycstack/internal/services"
)

// AWSOptions selects credentials and region.
type AWSOptions struct {
	Profile string
	Region  string
}

// BindFlags attaches the AWS flags. Profile keeps the -p shorthand used by conf push.
func (o *AWSOptions) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Profile, "profile", "p", "", "AWS shared config profile")
	fs.StringVar(&o.Region, "region", "", "AWS region of the primary stack (defaults to the profile's region)")
}

// ApprovalOptions controls prompting.
type ApprovalOptions struct {
	Yes            bool
	NonInteractive bool
}

func (o *ApprovalOptions) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.Yes, "yes", "y", false, "Answer yes to every confirmation prompt")
	fs.BoolVar(&o.NonInteractive, "non-interactive", false, "Never prompt; requires --yes")
}

// Flag names of the per-service toggles.
var serviceFlags = map[services.Name]string{
	services.SpoofDetection: "spoof-detection",
	services.FaceMatch:      "face-match",
	services.LivenessCheck:  "liveness-check",
}

// ServicesOptions holds the flags of the services commands.
type ServicesOptions struct {
	AWS      AWSOptions
	Approval ApprovalOptions

	PrimaryStack   string
	Bucket         string
	TemplateURL    string
	Wait           time.Duration
	JournalPath    string
	NoJournal      bool
	ElasticIPLimit int

	SpoofDetection bool
	FaceMatch      bool
	LivenessCheck  bool
	SSH            bool
	SSHKey         string
	Zones          []string

	Parameters     []string
	ParametersFile string
	RunsLimit      int
	RunID          string
}

// NewServicesOptions returns ServicesOptions with defaults applied.
func NewServicesOptions() *ServicesOptions {
	return &ServicesOptions{
		Wait:      2 * time.Hour,
		RunsLimit: 20,
	}
}

// BindPersistentFlags attaches the flags shared by every services subcommand.
func (o *ServicesOptions) BindPersistentFlags(fs *pflag.FlagSet) {
	o.AWS.BindFlags(fs)
	fs.StringVarP(&o.PrimaryStack, "stack", "n", "", "Name of the primary application stack")
	fs.StringVar(&o.JournalPath, "journal", "", "Path of the run journal (default ~/.kycstack/journal.sqlite)")
	fs.BoolVar(&o.NoJournal, "no-journal", false, "Do not record runs in the journal")
}

// BindMutationFlags attaches the flags of commands that change the services stack.
func (o *ServicesOptions) BindMutationFlags(fs *pflag.FlagSet) {
	o.Approval.BindFlags(fs)
	fs.DurationVar(&o.Wait, "wait", o.Wait, "Maximum time to wait for a stack operation")
}

// BindConfigureFlags attaches the flags of services configure.
func (o *ServicesOptions) BindConfigureFlags(fs *pflag.FlagSet) {
	o.BindMutationFlags(fs)
	fs.BoolVar(&o.SpoofDetection, serviceFlags[services.SpoofDetection], false, "Enable spoof detection")
	fs.BoolVar(&o.FaceMatch, serviceFlags[services.FaceMatch], false, "Enable face matching")
	fs.BoolVar(&o.LivenessCheck, serviceFlags[services.LivenessCheck], false, "Enable liveness check")
	fs.BoolVar(&o.SSH, "ssh", false, "Enable SSH access to the service hosts")
	fs.StringVar(&o.SSHKey, "ssh-key", "", "EC2 key pair granting SSH access (implies --ssh)")
	fs.StringVar(&o.Bucket, "bucket", "", "Private configuration bucket (default: discovered from the primary stack)")
	fs.StringVar(&o.TemplateURL, "template-url", "", "URL of the services stack template")
	fs.StringSliceVar(&o.Zones, "zones", nil, "Availability zones for a new services stack (default: first available)")
	fs.IntVar(&o.ElasticIPLimit, "eip-limit", 0, "Elastic IP limit of the account (default 5)")
	fs.StringArrayVar(&o.Parameters, "parameter", nil, "Extra stack parameter KEY=VALUE (repeatable, applied last)")
	fs.StringVar(&o.ParametersFile, "parameters-file", "", "YAML mapping of extra stack parameters")
}

// Enablement builds the operator intent. It is explicit only when every service toggle was set.
func (o *ServicesOptions) Enablement(fs *pflag.FlagSet) (services.Enablement, error) {
	e := services.Enablement{
		SpoofDetection: o.SpoofDetection,
		FaceMatch:      o.FaceMatch,
		LivenessCheck:  o.LivenessCheck,
		SSH:            o.SSH || strings.TrimSpace(o.SSHKey) != "",
		Explicit:       true,
	}
	for _, def := range services.All() {
		f := fs.Lookup(serviceFlags[def.Name])
		if f == nil || !f.Changed {
			e.Explicit = false
		}
	}
	var overrides []services.Override
	if path := strings.TrimSpace(o.ParametersFile); path != "" {
		fromFile, err := params.LoadOverridesFile(path)
		if err != nil {
			return services.Enablement{}, err
		}
		overrides = append(overrides, fromFile...)
	}
	fromFlags, err := params.ParseOverrides(o.Parameters)
	if err != nil {
		return services.Enablement{}, err
	}
	e.Overrides = append(overrides, fromFlags...)
	return e, nil
}

// Validate checks flag combinations that do not need AWS and expands ~ in path flags.
func (o *ServicesOptions) Validate() error {
	for flag, path := range map[string]*string{"--journal": &o.JournalPath, "--parameters-file": &o.ParametersFile} {
		expanded, err := expandPath(*path)
		if err != nil {
			return errs.Configuration("%s: %v", flag, err)
		}
		*path = expanded
	}
	if strings.TrimSpace(o.PrimaryStack) == "" {
		return errs.Configuration("--stack is required")
	}
	if o.Wait < 0 {
		return errs.Configuration("--wait must not be negative")
	}
	if o.ElasticIPLimit < 0 {
		return errs.Configuration("--eip-limit must not be negative")
	}
	for _, z := range o.Zones {
		if strings.TrimSpace(z) == "" {
			return errs.Configuration("--zones contains an empty zone")
		}
	}
	return nil
}

// ConfPushOptions holds the flags of conf push.
type ConfPushOptions struct {
	AWS AWSOptions

	Bot      bool
	Models   bool
	Style    bool
	Terms    bool
	Local    bool
	Project  string
	Stack    string
	Inspect  bool
	Debug    bool
	DebugBrk bool
	Node     string
	ConfDir  string
}

// LocalEnv selects local delivery when set to a truthy value.
const LocalEnv = "KYCSTACK_LOCAL"

// AddFlags binds conf push flags to the provided Cobra command.
func (o *ConfPushOptions) AddFlags(cmd *cobra.Command) {
	o.BindFlags(cmd.Flags())
}

func (o *ConfPushOptions) BindFlags(fs *pflag.FlagSet) {
	o.AWS.BindFlags(fs)
	fs.BoolVarP(&o.Bot, "bot", "b", false, "Push the bot configuration ("+confpush.BotFile+")")
	fs.BoolVarP(&o.Models, "models", "m", false, "Push the models pack ("+confpush.ModelsFile+", "+confpush.LensesFile+")")
	fs.BoolVarP(&o.Style, "style", "s", false, "Push the style ("+confpush.StyleFile+")")
	fs.BoolVarP(&o.Terms, "terms", "t", false, "Push the terms and conditions ("+confpush.TermsFile+")")
	fs.BoolVarP(&o.Local, "local", "l", false, "Deliver to a local development deployment (env "+LocalEnv+")")
	fs.StringVarP(&o.Project, "project", "x", "", "Project directory of the local deployment")
	fs.StringVarP(&o.Stack, "stack", "n", "", "Name of the primary application stack (remote delivery)")
	fs.BoolVar(&o.Inspect, "inspect", false, "Run the local function with the node inspector")
	fs.BoolVar(&o.Debug, "debug", false, "Run the local function with --debug (implies --inspect)")
	fs.BoolVar(&o.DebugBrk, "debug-brk", false, "Run the local function with --debug-brk (implies --inspect)")
	fs.StringVar(&o.Node, "node", "node", "Command used to run node for local delivery")
	fs.StringVar(&o.ConfDir, "conf-dir", "conf", "Directory holding the configuration files")
}

// Items returns the selected payload items.
func (o *ConfPushOptions) Items() confpush.Items {
	return confpush.Items{Bot: o.Bot, Models: o.Models, Style: o.Style, Terms: o.Terms}
}

// Destination resolves where the payload goes.
func (o *ConfPushOptions) Destination(localFromEnv bool) (confpush.Destination, error) {
	local := o.Local || localFromEnv
	project, err := expandPath(o.Project)
	if err != nil {
		return confpush.Destination{}, errs.Configuration("--project: %v", err)
	}
	dest := confpush.Destination{
		StackName:   strings.TrimSpace(o.Stack),
		Local:       local,
		Dir:         project,
		NodeCommand: o.Node,
		NodeFlags:   confpush.NodeFlags{Inspect: o.Inspect, Debug: o.Debug, DebugBrk: o.DebugBrk},
	}
	if !o.Items().Any() {
		return dest, errs.Configuration("nothing to push: select at least one of --bot, --models, --style, --terms")
	}
	if !local && dest.StackName == "" {
		return dest, errs.Configuration("--stack is required for remote delivery")
	}
	return dest, nil
}

// ConfDirPath is the configuration directory with ~ expanded.
func (o *ConfPushOptions) ConfDirPath() (string, error) {
	dir, err := expandPath(o.ConfDir)
	if err != nil {
		return "", errs.Configuration("--conf-dir: %v", err)
	}
	return dir, nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	return homedir.Expand(path)
}

// Truthy parses environment booleans the way the approval variables do.
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// String renders the services options for debug logs.
func (o *ServicesOptions) String() string {
	return fmt.Sprintf("stack=%s region=%s profile=%s wait=%s", o.PrimaryStack, o.AWS.Region, o.AWS.Profile, o.Wait)
}
