// File: internal/discovery/discovery.go
// Brief: Read-only queries against the cloud provider.

// Package discovery resolves facts about the primary and services stacks. Nothing here mutates
// provider state, so calls may be issued freely and concurrently.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/params"
	"github.com/example/kycstack/internal/services"
)

// Output keys published by the stacks.
const (
	OutputRegion            = "Region"
	OutputAvailabilityZones = "AvailabilityZones"
	OutputPrivateBucket     = "PrivateConfBucket"
)

// QuotaKind names a provider resource whose usage is counted.
type QuotaKind string

const ElasticIP QuotaKind = "elastic-ip"

// StackReader is the read side of the stack provider.
type StackReader interface {
	FindStackID(ctx context.Context, name string) (string, bool, error)
	Outputs(ctx context.Context, stackID string) (map[string]string, error)
	Parameters(ctx context.Context, stackID string) (params.List, error)
}

// QuotaReader counts resources in use.
type QuotaReader interface {
	CountElasticIPs(ctx context.Context) (int, error)
}

// KeyReader looks up bucket default encryption.
type KeyReader interface {
	BucketEncryptionKey(ctx context.Context, bucket string) (string, bool, error)
}

// Info is what the services stack reports about itself.
type Info struct {
	Region            string
	AvailabilityZones []string
}

// Client answers discovery queries.
type Client struct {
	Stacks StackReader
	Quota  QuotaReader
	Keys   KeyReader
	Log    logr.Logger
}

// ServicesStackName is the services stack name for a primary stack.
func ServicesStackName(primary string) string {
	return strings.TrimSpace(primary) + "-kyc-services"
}

// FindStackID returns the id of the live stack called name. Absence is not an error.
func (c *Client) FindStackID(ctx context.Context, name string) (string, bool, error) {
	id, ok, err := c.Stacks.FindStackID(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("look up stack %s: %w", name, err)
	}
	c.Log.V(1).Info("stack lookup", "name", name, "found", ok, "stackId", id)
	return id, ok, nil
}

// StackInfo reads region and zones from the stack outputs. Missing outputs are NotFound.
func (c *Client) StackInfo(ctx context.Context, stackID string) (Info, error) {
	outputs, err := c.Stacks.Outputs(ctx, stackID)
	if err != nil {
		return Info{}, fmt.Errorf("describe stack %s: %w", stackID, err)
	}
	region, err := requireOutput(outputs, stackID, OutputRegion)
	if err != nil {
		return Info{}, err
	}
	rawZones, err := requireOutput(outputs, stackID, OutputAvailabilityZones)
	if err != nil {
		return Info{}, err
	}
	var zones []string
	for _, z := range strings.Split(rawZones, ",") {
		if z = strings.TrimSpace(z); z != "" {
			zones = append(zones, z)
		}
	}
	if len(zones) == 0 {
		return Info{}, errs.NotFound("stack %s: output %s is empty", stackID, OutputAvailabilityZones)
	}
	return Info{Region: region, AvailabilityZones: zones}, nil
}

// StackParameters returns the parameters the live stack was last deployed with.
func (c *Client) StackParameters(ctx context.Context, stackID string) (params.List, error) {
	ps, err := c.Stacks.Parameters(ctx, stackID)
	if err != nil {
		return nil, fmt.Errorf("describe stack %s parameters: %w", stackID, err)
	}
	return ps, nil
}

// EnabledServices reports the services a live stack has switched on.
func (c *Client) EnabledServices(ctx context.Context, stackID string) ([]services.Name, error) {
	ps, err := c.StackParameters(ctx, stackID)
	if err != nil {
		return nil, err
	}
	var live services.Enablement
	for _, p := range ps.Collapse() {
		def, ok := services.ByEnableParam(p.Key)
		if !ok {
			continue
		}
		if err := live.Set(def.Name, strings.EqualFold(strings.TrimSpace(p.Value), "true")); err != nil {
			return nil, errs.Invariant("stack %s: %v", stackID, err)
		}
	}
	var out []services.Name
	for _, def := range live.EnabledServices() {
		out = append(out, def.Name)
	}
	return out, nil
}

// UsedQuotaCount returns how many resources of kind are in use in the current region.
func (c *Client) UsedQuotaCount(ctx context.Context, kind QuotaKind) (int, error) {
	switch kind {
	case ElasticIP:
		n, err := c.Quota.CountElasticIPs(ctx)
		if err != nil {
			return 0, fmt.Errorf("count elastic IPs: %w", err)
		}
		return n, nil
	default:
		return 0, errs.Invariant("unsupported quota kind %q", kind)
	}
}

// EncryptionKey returns the bucket's default KMS key reference. Absence is valid.
func (c *Client) EncryptionKey(ctx context.Context, bucket string) (string, bool, error) {
	key, ok, err := c.Keys.BucketEncryptionKey(ctx, bucket)
	if err != nil {
		return "", false, fmt.Errorf("bucket %s encryption: %w", bucket, err)
	}
	return key, ok, nil
}

// PrivateBucket resolves the primary stack's private configuration bucket.
func (c *Client) PrivateBucket(ctx context.Context, primary string) (string, error) {
	id, ok, err := c.FindStackID(ctx, primary)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.NotFound("primary stack %s", primary)
	}
	outputs, err := c.Stacks.Outputs(ctx, id)
	if err != nil {
		return "", fmt.Errorf("describe stack %s: %w", primary, err)
	}
	return requireOutput(outputs, primary, OutputPrivateBucket)
}

func requireOutput(outputs map[string]string, stack, key string) (string, error) {
	v, ok := outputs[key]
	if !ok {
		return "", errs.NotFound("stack %s: output %s", stack, key)
	}
	return strings.TrimSpace(v), nil
}
