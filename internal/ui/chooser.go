package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/errs"
)

// KeyPairChooser picks the EC2 key pair for SSH access. A preset name wins; a single existing
// key pair is used without asking.
type KeyPairChooser struct {
	List   func(ctx context.Context) ([]string, error)
	Preset string
	Prompt *Prompter
	Log    logr.Logger
}

func (c *KeyPairChooser) ChooseKeyPair(ctx context.Context) (string, error) {
	names, err := c.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list key pairs: %w", err)
	}
	if preset := strings.TrimSpace(c.Preset); preset != "" {
		for _, n := range names {
			if n == preset {
				return preset, nil
			}
		}
		return "", errs.NotFound("key pair %q (available: %s)", preset, strings.Join(names, ", "))
	}
	switch len(names) {
	case 0:
		return "", errs.Configuration("SSH access requested but the account has no EC2 key pairs")
	case 1:
		c.Log.Info("using the only EC2 key pair", "keyPair", names[0])
		return names[0], nil
	}
	if c.Prompt == nil {
		return "", errs.Configuration("several EC2 key pairs exist; pass --ssh-key")
	}
	return c.Prompt.Choose(ctx, "which key pair should grant SSH access?", names)
}
