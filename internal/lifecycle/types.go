// File: internal/lifecycle/types.go
// Brief: Collaborator contracts and state types for the services stack lifecycle.

package lifecycle

import (
	"context"

	"github.com/example/kycstack/internal/discovery"
	"github.com/example/kycstack/internal/params"
	"github.com/example/kycstack/internal/services"
)

// DefaultZoneCount is the number of availability zones a services stack spans. It cannot change
// once the stack exists.
const DefaultZoneCount = 3

// Transition is the state change selected for a run.
type Transition string

const (
	TransitionNoop   Transition = "noop"
	TransitionCreate Transition = "create"
	TransitionUpdate Transition = "update"
	TransitionDelete Transition = "delete"
)

// Decide picks the transition from current existence and whether any paid service is wanted.
func Decide(exists, wantAny bool) Transition {
	switch {
	case !exists && !wantAny:
		return TransitionNoop
	case !exists:
		return TransitionCreate
	case !wantAny:
		return TransitionDelete
	default:
		return TransitionUpdate
	}
}

// OpKind is the provider mutation an Operation tracks.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is an opaque handle to an in-flight provider mutation.
type Operation struct {
	Kind    OpKind
	StackID string
	// NoChange marks an update the provider accepted without changes; awaiting it returns
	// immediately.
	NoChange bool
}

// StackInput is a create or update request.
type StackInput struct {
	Name        string
	StackID     string
	TemplateURL string
	Parameters  params.List
	// DisableRollback keeps a failed create around for inspection.
	DisableRollback bool
}

// Stacks is the mutating side of the stack provider.
type Stacks interface {
	// ValidateTemplate returns the parameter keys the template declares.
	ValidateTemplate(ctx context.Context, templateURL string) ([]string, error)
	CreateStack(ctx context.Context, in StackInput) (Operation, error)
	UpdateStack(ctx context.Context, in StackInput) (Operation, error)
	DeleteStack(ctx context.Context, stackID string) (Operation, error)
	// Await blocks until the operation reaches a terminal state.
	Await(ctx context.Context, op Operation) error
}

// Discovery is the read-only view the orchestrator needs.
type Discovery interface {
	FindStackID(ctx context.Context, name string) (string, bool, error)
	StackInfo(ctx context.Context, stackID string) (discovery.Info, error)
	EnabledServices(ctx context.Context, stackID string) ([]services.Name, error)
	EncryptionKey(ctx context.Context, bucket string) (string, bool, error)
}

// Prechecks gates mutations on licenses and quota.
type Prechecks interface {
	CheckLicenses(ctx context.Context, enabled []services.Definition, bucket string) error
	CheckQuota(ctx context.Context, exists bool, zoneCount int, region string) error
}

// ZoneSelector picks fresh availability zones for a new stack.
type ZoneSelector interface {
	SelectZones(ctx context.Context, region string, count int) ([]string, error)
}

// KeyChooser picks the EC2 key pair used for SSH access.
type KeyChooser interface {
	ChooseKeyPair(ctx context.Context) (string, error)
}

// Notifier tells the primary application to reload its configuration.
type Notifier interface {
	Notify(ctx context.Context, primaryStack string) error
}

// Environment is what the caller knows about the primary stack.
type Environment struct {
	PrimaryStack string
	Region       string
	AccountID    string
	// Bucket is the primary stack's private configuration bucket.
	Bucket      string
	TemplateURL string
}

// StackState is the observed services stack.
type StackState struct {
	Name              string
	StackID           string
	Exists            bool
	Region            string
	AvailabilityZones []string
	Enabled           []services.Name
}

// Result describes a completed run.
type Result struct {
	Transition Transition
	StackName  string
	StackID    string
	Parameters params.List
	// Committed is true once the provider reported the mutation succeeded.
	Committed bool
}
