// File: internal/params/params.go
// Brief: Services stack parameter builder.

// Package params computes the ordered parameter list submitted with a services stack create or
// update. Build is pure: identical inputs always produce an identical list.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/kycstack/internal/services"
)

const (
	DiscoveryPathParam = "S3PathToWriteDiscovery"
	KeyNameParam       = "KeyName"
	KMSKeyParam        = "S3KMSKey"

	discoveryObject = "discovery/ecs-services.json"
)

// Parameter is a single stack parameter.
type Parameter struct {
	Key   string
	Value string
}

func (p Parameter) String() string {
	return p.Key + "=" + p.Value
}

// Discovery is what the orchestrator resolved about the environment.
type Discovery struct {
	Zones     []string
	Bucket    string
	Region    string
	AccountID string
	// EncryptionKey is the bucket's KMS key reference (for example "key/1234"), empty if none.
	EncryptionKey string
}

// Inputs gathers everything Build needs.
type Inputs struct {
	Enablement services.Enablement
	Discovery  Discovery
	// SSHKey is the chosen key pair name; only used when Enablement.SSH is set.
	SSHKey string
}

// ZoneParam returns the parameter key for the 1-based zone slot.
func ZoneParam(slot int) string {
	return fmt.Sprintf("AZ%d", slot)
}

// ZoneSlot parses a zone parameter key back to its 1-based slot.
func ZoneSlot(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "AZ")
	if !ok {
		return 0, false
	}
	slot, err := strconv.Atoi(rest)
	if err != nil || slot < 1 || strconv.Itoa(slot) != rest {
		return 0, false
	}
	return slot, true
}

// DiscoveryPath is where the services stack writes its discovery document.
func DiscoveryPath(bucket string) string {
	return strings.TrimSuffix(bucket, "/") + "/" + discoveryObject
}

// LicensePath is the bucket-qualified license location for def.
func LicensePath(bucket string, def services.Definition) string {
	return strings.TrimSuffix(bucket, "/") + "/" + def.LicensePath
}

// KMSKeyARN builds the ARN the template expects for the bucket encryption key.
func KMSKeyARN(region, accountID, keyRef string) string {
	return fmt.Sprintf("arn:aws:kms:%s:%s:%s", region, accountID, keyRef)
}

// Build returns the parameter list for in.
func Build(in Inputs) List {
	d := in.Discovery
	out := make(List, 0, len(d.Zones)+8+len(in.Enablement.Overrides))
	for i, zone := range d.Zones {
		out = append(out, Parameter{Key: ZoneParam(i + 1), Value: zone})
	}
	out = append(out, Parameter{Key: DiscoveryPathParam, Value: DiscoveryPath(d.Bucket)})
	for _, def := range in.Enablement.EnabledServices() {
		out = append(out,
			Parameter{Key: def.EnableParam, Value: "true"},
			Parameter{Key: def.LicenseParam, Value: LicensePath(d.Bucket, def)},
		)
	}
	if in.Enablement.SSH && in.SSHKey != "" {
		out = append(out, Parameter{Key: KeyNameParam, Value: in.SSHKey})
	}
	if d.EncryptionKey != "" {
		out = append(out, Parameter{Key: KMSKeyParam, Value: KMSKeyARN(d.Region, d.AccountID, d.EncryptionKey)})
	}
	for _, o := range in.Enablement.Overrides {
		out = append(out, Parameter{Key: o.Key, Value: o.Value})
	}
	return out
}
