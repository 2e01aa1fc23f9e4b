// File: internal/services/services.go
// Brief: Fixed vocabulary of paid services and their stack parameters.

// Package services holds the closed table of paid recognition services the services stack can
// host. Keys here must match the services stack template; extend both together.
package services

import (
	"fmt"
	"strings"
)

// Name identifies a paid service.
type Name string

const (
	SpoofDetection Name = "spoofDetection"
	FaceMatch      Name = "faceMatch"
	LivenessCheck  Name = "livenessCheck"
)

// Definition describes how a service maps onto the services stack template.
type Definition struct {
	Name         Name
	Title        string
	EnableParam  string
	LicenseParam string
	// LicensePath is the object key of the license inside the private bucket.
	LicensePath string
	Repository  string
}

// ProxyRepository is always deployed in front of the enabled services.
const ProxyRepository = "kyc-services/nginx"

// catalog order is the parameter order.
var catalog = []Definition{
	{
		Name:         SpoofDetection,
		Title:        "Spoof Detection",
		EnableParam:  "EnableSpoofDetection",
		LicenseParam: "S3PathToSpoofLicense",
		LicensePath:  "kyc-services/licenses/spoof-detection.lic",
		Repository:   "kyc-services/spoof-detection",
	},
	{
		Name:         FaceMatch,
		Title:        "Face Match",
		EnableParam:  "EnableFaceMatch",
		LicenseParam: "S3PathToFaceMatchLicense",
		LicensePath:  "kyc-services/licenses/face-match.lic",
		Repository:   "kyc-services/face-match",
	},
	{
		Name:         LivenessCheck,
		Title:        "Liveness Check",
		EnableParam:  "EnableLivenessCheck",
		LicenseParam: "S3PathToLivenessLicense",
		LicensePath:  "kyc-services/licenses/liveness-check.lic",
		Repository:   "kyc-services/liveness-check",
	},
}

// All returns every definition in catalog order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition for name.
func Lookup(name Name) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// ByEnableParam maps a stack parameter key back to the service it enables.
func ByEnableParam(key string) (Definition, bool) {
	for _, def := range catalog {
		if def.EnableParam == key {
			return def, true
		}
	}
	return Definition{}, false
}

// RequiresLicense reports whether the service is license gated. Every paid service is.
func (d Definition) RequiresLicense() bool {
	return strings.TrimSpace(d.LicensePath) != ""
}

// Override is a caller supplied stack parameter.
type Override struct {
	Key   string
	Value string
}

// Enablement is the operator's desired state for the services stack.
type Enablement struct {
	SpoofDetection bool
	FaceMatch      bool
	LivenessCheck  bool
	// Explicit is true when the operator set every toggle rather than relying on defaults.
	Explicit bool
	// SSH requests an EC2 key pair on the service instances.
	SSH       bool
	Overrides []Override
}

// Enabled reports the toggle for name.
func (e Enablement) Enabled(name Name) bool {
	switch name {
	case SpoofDetection:
		return e.SpoofDetection
	case FaceMatch:
		return e.FaceMatch
	case LivenessCheck:
		return e.LivenessCheck
	default:
		return false
	}
}

// EnabledServices returns the enabled definitions in catalog order.
func (e Enablement) EnabledServices() []Definition {
	var out []Definition
	for _, def := range catalog {
		if e.Enabled(def.Name) {
			out = append(out, def)
		}
	}
	return out
}

// Any reports whether at least one paid service is enabled.
func (e Enablement) Any() bool {
	return len(e.EnabledServices()) > 0
}

// Repositories lists the image repositories the stack will pull from.
func (e Enablement) Repositories() []string {
	repos := []string{ProxyRepository}
	for _, def := range e.EnabledServices() {
		repos = append(repos, def.Repository)
	}
	return repos
}

// Summary renders the toggles as a sentence for confirmation prompts.
func (e Enablement) Summary() string {
	parts := make([]string, 0, len(catalog))
	for _, def := range catalog {
		verb := "disable"
		if e.Enabled(def.Name) {
			verb = "enable"
		}
		parts = append(parts, fmt.Sprintf("%s %s", verb, def.Title))
	}
	return strings.Join(parts, ", ")
}

// Set toggles name. Unknown names are rejected.
func (e *Enablement) Set(name Name, on bool) error {
	switch name {
	case SpoofDetection:
		e.SpoofDetection = on
	case FaceMatch:
		e.FaceMatch = on
	case LivenessCheck:
		e.LivenessCheck = on
	default:
		return fmt.Errorf("unknown service %q", name)
	}
	return nil
}
