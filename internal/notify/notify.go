// Package notify tells the primary application to reload its configuration after the services
// stack changed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/confpush"
)

// DefaultFunction is the primary stack's control function suffix.
const DefaultFunction = "cli"

// Client sends the reboot signal.
type Client struct {
	Invoker confpush.Invoker
	// Function overrides DefaultFunction.
	Function string
	Log      logr.Logger
}

type command struct {
	Name string `json:"name"`
}

// Notify invokes <primaryStack>-<function> with a reboot command and waits for the result.
func (c *Client) Notify(ctx context.Context, primaryStack string) error {
	fn := strings.TrimSpace(c.Function)
	if fn == "" {
		fn = DefaultFunction
	}
	target := primaryStack + "-" + fn
	body, err := json.Marshal(command{Name: "reboot"})
	if err != nil {
		return err
	}
	c.Log.Info("asking primary stack to reload configuration", "function", target)
	resp, err := c.Invoker.Invoke(ctx, target, body)
	if err != nil {
		return fmt.Errorf("notify %s: %w", primaryStack, err)
	}
	return confpush.CheckResponse(target, resp)
}
