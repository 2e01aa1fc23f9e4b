// config_test.go verifies flag parsing and validation for the services and conf push commands.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"

	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/services"
)

func configureFlags(t *testing.T, args ...string) (*ServicesOptions, *pflag.FlagSet) {
	t.Helper()
	opts := NewServicesOptions()
	fs := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	opts.BindPersistentFlags(fs)
	opts.BindConfigureFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return opts, fs
}

func TestServicesDefaults(t *testing.T) {
	opts, _ := configureFlags(t)
	if opts.Wait != 2*time.Hour {
		t.Fatalf("wait default mismatch, got %s", opts.Wait)
	}
	if err := opts.Validate(); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("missing --stack must be a configuration error, got %v", err)
	}
}

func TestEnablementExplicitOnlyWhenEveryToggleSet(t *testing.T) {
	opts, fs := configureFlags(t, "--stack", "acme", "--spoof-detection", "--face-match=false")
	e, err := opts.Enablement(fs)
	if err != nil {
		t.Fatalf("enablement: %v", err)
	}
	if e.Explicit {
		t.Fatalf("liveness toggle missing, enablement must not be explicit")
	}
	if !e.SpoofDetection || e.FaceMatch || e.LivenessCheck {
		t.Fatalf("unexpected enablement %+v", e)
	}

	opts, fs = configureFlags(t, "--stack", "acme", "--spoof-detection", "--face-match=false", "--liveness-check=false")
	e, err = opts.Enablement(fs)
	if err != nil {
		t.Fatalf("enablement: %v", err)
	}
	if !e.Explicit {
		t.Fatalf("all toggles given, enablement must be explicit")
	}
}

func TestEnablementSSHKeyImpliesSSH(t *testing.T) {
	opts, fs := configureFlags(t, "--ssh-key", "ops")
	e, err := opts.Enablement(fs)
	if err != nil {
		t.Fatalf("enablement: %v", err)
	}
	if !e.SSH {
		t.Fatalf("--ssh-key must imply SSH")
	}
}

func TestEnablementOverridesFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	if err := os.WriteFile(path, []byte("Zeta: one\nAlpha: two\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	opts, fs := configureFlags(t, "--parameters-file", path, "--parameter", "Alpha=three")
	e, err := opts.Enablement(fs)
	if err != nil {
		t.Fatalf("enablement: %v", err)
	}
	want := []services.Override{{Key: "Zeta", Value: "one"}, {Key: "Alpha", Value: "two"}, {Key: "Alpha", Value: "three"}}
	if diff := cmp.Diff(want, e.Overrides); diff != "" {
		t.Fatalf("overrides mismatch (-want +got):\n%s", diff)
	}
}

func TestEnablementRejectsMalformedParameter(t *testing.T) {
	opts, fs := configureFlags(t, "--parameter", "novalue")
	if _, err := opts.Enablement(fs); err == nil {
		t.Fatalf("expected malformed parameter error")
	}
}

func TestValidateRejectsEmptyZone(t *testing.T) {
	opts, _ := configureFlags(t, "--stack", "acme", "--zones", "us-east-1a,,us-east-1b")
	if err := opts.Validate(); err == nil {
		t.Fatalf("expected empty zone error")
	}
}

func TestPathFlagsExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	opts, _ := configureFlags(t, "--stack", "acme", "--journal", "~/runs.sqlite", "--parameters-file", "~/params.yaml")
	if err := opts.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if want := filepath.Join(home, "runs.sqlite"); opts.JournalPath != want {
		t.Fatalf("journal path = %q, want %q", opts.JournalPath, want)
	}
	if want := filepath.Join(home, "params.yaml"); opts.ParametersFile != want {
		t.Fatalf("parameters file = %q, want %q", opts.ParametersFile, want)
	}

	push := &ConfPushOptions{Models: true, Local: true, Project: "~/app", ConfDir: "~/conf"}
	dest, err := push.Destination(false)
	if err != nil {
		t.Fatalf("destination: %v", err)
	}
	if want := filepath.Join(home, "app"); dest.Dir != want {
		t.Fatalf("project dir = %q, want %q", dest.Dir, want)
	}
	dir, err := push.ConfDirPath()
	if err != nil {
		t.Fatalf("conf dir: %v", err)
	}
	if want := filepath.Join(home, "conf"); dir != want {
		t.Fatalf("conf dir = %q, want %q", dir, want)
	}
}

func TestConfPushDestination(t *testing.T) {
	parse := func(args ...string) *ConfPushOptions {
		t.Helper()
		o := &ConfPushOptions{}
		fs := pflag.NewFlagSet("push", pflag.ContinueOnError)
		o.BindFlags(fs)
		if err := fs.Parse(args); err != nil {
			t.Fatalf("parse: %v", err)
		}
		return o
	}

	if _, err := parse("-n", "acme").Destination(false); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("no items selected must fail, got %v", err)
	}
	if _, err := parse("-b").Destination(false); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("remote without stack must fail, got %v", err)
	}

	dest, err := parse("-b", "-m", "-l", "-x", "/srv/app", "--debug").Destination(false)
	if err != nil {
		t.Fatalf("local destination: %v", err)
	}
	if !dest.Local || dest.Dir != "/srv/app" || !dest.NodeFlags.Debug {
		t.Fatalf("unexpected destination %+v", dest)
	}

	dest, err = parse("-t", "-x", "/srv/app").Destination(true)
	if err != nil || !dest.Local {
		t.Fatalf("env must select local delivery, got %+v %v", dest, err)
	}

	o := parse("-b", "-s", "-p", "prod", "-n", "acme")
	if o.AWS.Profile != "prod" || o.ConfDir != "conf" {
		t.Fatalf("unexpected options %+v", o)
	}
	if got := o.Items(); !got.Bot || !got.Style || got.Models || got.Terms {
		t.Fatalf("unexpected items %+v", got)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		if !Truthy(v) {
			t.Fatalf("%q should be truthy", v)
		}
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		if Truthy(v) {
			t.Fatalf("%q should not be truthy", v)
		}
	}
}
