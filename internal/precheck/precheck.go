// File: internal/precheck/precheck.go
// Brief: License and quota preconditions for the services stack.

// Package precheck validates operator intent against required artifacts and account limits
// before any mutating call is made.
package precheck

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/example/kycstack/internal/discovery"
	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/services"
)

// DefaultElasticIPLimit is the provider's base per-region elastic IP allowance.
const DefaultElasticIPLimit = 5

const quotaIncreaseURL = "https://console.aws.amazon.com/support/v1#/case/create?issueType=service-limit-increase&limitType=service-code-vpc"

// ObjectChecker reports whether an object exists in storage.
type ObjectChecker interface {
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
}

// QuotaCounter reports resource usage.
type QuotaCounter interface {
	UsedQuotaCount(ctx context.Context, kind discovery.QuotaKind) (int, error)
}

// Checker runs the preconditions.
type Checker struct {
	Storage  ObjectChecker
	Quota    QuotaCounter
	Confirm  Confirmer
	EIPLimit int
	Log      logr.Logger
}

// CheckLicenses verifies every enabled, license gated service has its license uploaded. All
// services are checked; the error names every missing license.
func (c *Checker) CheckLicenses(ctx context.Context, enabled []services.Definition, bucket string) error {
	var required []services.Definition
	for _, def := range enabled {
		if def.RequiresLicense() {
			required = append(required, def)
		}
	}
	if len(required) == 0 {
		return nil
	}

	listing := make([]string, 0, len(required))
	for _, def := range required {
		listing = append(listing, fmt.Sprintf("%s:\n\n  bucket: %s\n  key: %s", def.Name, bucket, def.LicensePath))
	}
	if err := ConfirmOrAbort(ctx, c.Confirm, "have you uploaded the following licenses?\n\n"+strings.Join(listing, "\n\n")+"\n"); err != nil {
		return err
	}

	var (
		mu       sync.Mutex
		missing  []string
		failures error
	)
	var g errgroup.Group
	for _, def := range required {
		def := def
		g.Go(func() error {
			ok, err := c.Storage.ObjectExists(ctx, bucket, def.LicensePath)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = multierr.Append(failures, fmt.Errorf("%s (%s/%s): %w", def.Name, bucket, def.LicensePath, err))
			case !ok:
				missing = append(missing, fmt.Sprintf("%s (%s/%s)", def.Name, bucket, def.LicensePath))
			}
			// Never fail the group: every license is checked.
			return nil
		})
	}
	_ = g.Wait()

	if len(missing) == 0 && failures == nil {
		c.Log.V(1).Info("licenses present", "bucket", bucket, "count", len(required))
		return nil
	}
	sort.Strings(missing)
	if len(missing) == 0 {
		return fmt.Errorf("check license files: %w", failures)
	}
	return &errs.Error{
		Kind:    errs.ErrNotFound,
		Message: "missing license file(s): " + strings.Join(missing, ", "),
		Err:     failures,
	}
}

// CheckQuota gates creating a new stack on elastic IP headroom. It never blocks on its own: an
// insufficient headroom asks the operator to confirm.
func (c *Checker) CheckQuota(ctx context.Context, exists bool, zoneCount int, region string) error {
	if exists {
		return nil
	}
	used, err := c.Quota.UsedQuotaCount(ctx, discovery.ElasticIP)
	if err != nil {
		return err
	}
	limit := c.EIPLimit
	if limit <= 0 {
		limit = DefaultElasticIPLimit
	}
	c.Log.V(1).Info("elastic IP usage", "region", region, "used", used, "limit", limit, "needed", zoneCount)
	if limit-used >= zoneCount {
		return nil
	}
	return ConfirmOrAbort(ctx, c.Confirm, fmt.Sprintf(`WARNING: your account has %d Elastic IPs in use in region %s.
This stack will create %d more. The base limit is %d per region, so this stack may fail.
You can request a limit increase here: %s
Continue?`, used, region, zoneCount, limit, quotaIncreaseURL))
}
