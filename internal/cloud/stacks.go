package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/go-logr/logr"

	"github.com/example/kycstack/internal/errs"
	"github.com/example/kycstack/internal/lifecycle"
	"github.com/example/kycstack/internal/params"
)

// DefaultMaxWait bounds a single create/update/delete wait.
const DefaultMaxWait = 2 * time.Hour

const maxFailureEvents = 5

// CloudFormationAPI is the subset of the CloudFormation client Stacks uses.
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackEvents(ctx context.Context, in *cloudformation.DescribeStackEventsInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackEventsOutput, error)
	ValidateTemplate(ctx context.Context, in *cloudformation.ValidateTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ValidateTemplateOutput, error)
	CreateStack(ctx context.Context, in *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, in *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
	DeleteStack(ctx context.Context, in *cloudformation.DeleteStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteStackOutput, error)
}

// Stacks implements stack discovery and mutation on CloudFormation.
type Stacks struct {
	API     CloudFormationAPI
	MaxWait time.Duration
	Log     logr.Logger
}

func (s *Stacks) describe(ctx context.Context, nameOrID string) (*cfntypes.Stack, error) {
	out, err := s.API.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(nameOrID)})
	if err != nil {
		return nil, err
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	return &out.Stacks[0], nil
}

// FindStackID returns the id of the live stack called name.
func (s *Stacks) FindStackID(ctx context.Context, name string) (string, bool, error) {
	st, err := s.describe(ctx, name)
	if isStackMissing(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if st == nil || st.StackStatus == cfntypes.StackStatusDeleteComplete {
		return "", false, nil
	}
	return aws.ToString(st.StackId), true, nil
}

// Outputs returns the stack outputs keyed by output key.
func (s *Stacks) Outputs(ctx context.Context, stackID string) (map[string]string, error) {
	st, err := s.describe(ctx, stackID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errs.NotFound("stack %s", stackID)
	}
	out := make(map[string]string, len(st.Outputs))
	for _, o := range st.Outputs {
		out[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return out, nil
}

// Parameters returns the parameters the stack was last deployed with.
func (s *Stacks) Parameters(ctx context.Context, stackID string) (params.List, error) {
	st, err := s.describe(ctx, stackID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errs.NotFound("stack %s", stackID)
	}
	out := make(params.List, 0, len(st.Parameters))
	for _, p := range st.Parameters {
		out = append(out, params.Parameter{Key: aws.ToString(p.ParameterKey), Value: aws.ToString(p.ParameterValue)})
	}
	return out, nil
}

// ValidateTemplate validates the template and returns its declared parameter keys.
func (s *Stacks) ValidateTemplate(ctx context.Context, templateURL string) ([]string, error) {
	out, err := s.API.ValidateTemplate(ctx, &cloudformation.ValidateTemplateInput{TemplateURL: aws.String(templateURL)})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(out.Parameters))
	for _, p := range out.Parameters {
		keys = append(keys, aws.ToString(p.ParameterKey))
	}
	return keys, nil
}

// CreateStack submits a create and returns its handle.
func (s *Stacks) CreateStack(ctx context.Context, in lifecycle.StackInput) (lifecycle.Operation, error) {
	out, err := s.API.CreateStack(ctx, &cloudformation.CreateStackInput{
		StackName:       aws.String(in.Name),
		TemplateURL:     aws.String(in.TemplateURL),
		Parameters:      toCFN(in.Parameters),
		Capabilities:    []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
		DisableRollback: aws.Bool(in.DisableRollback),
	})
	if err != nil {
		return lifecycle.Operation{}, errs.ProviderFailed("create stack "+in.Name, "", err)
	}
	id := aws.ToString(out.StackId)
	s.Log.Info("stack create submitted", "stackId", id)
	return lifecycle.Operation{Kind: lifecycle.OpCreate, StackID: id}, nil
}

// UpdateStack submits an update. An update with nothing to change is a no-op handle.
func (s *Stacks) UpdateStack(ctx context.Context, in lifecycle.StackInput) (lifecycle.Operation, error) {
	if in.StackID == "" {
		return lifecycle.Operation{}, errs.Invariant("update of %s without a stack id", in.Name)
	}
	out, err := s.API.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:    aws.String(in.StackID),
		TemplateURL:  aws.String(in.TemplateURL),
		Parameters:   toCFN(in.Parameters),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
	})
	if isNoUpdates(err) {
		s.Log.Info("stack is already up to date", "stackId", in.StackID)
		return lifecycle.Operation{Kind: lifecycle.OpUpdate, StackID: in.StackID, NoChange: true}, nil
	}
	if err != nil {
		return lifecycle.Operation{}, errs.ProviderFailed("update stack "+in.StackID, "", err)
	}
	return lifecycle.Operation{Kind: lifecycle.OpUpdate, StackID: aws.ToString(out.StackId)}, nil
}

// DeleteStack submits a delete.
func (s *Stacks) DeleteStack(ctx context.Context, stackID string) (lifecycle.Operation, error) {
	if stackID == "" {
		return lifecycle.Operation{}, errs.Invariant("delete without a stack id")
	}
	if _, err := s.API.DeleteStack(ctx, &cloudformation.DeleteStackInput{StackName: aws.String(stackID)}); err != nil {
		return lifecycle.Operation{}, errs.ProviderFailed("delete stack "+stackID, "", err)
	}
	return lifecycle.Operation{Kind: lifecycle.OpDelete, StackID: stackID}, nil
}

// Await blocks until op reaches a terminal state. Failures carry the stack status reason and
// the failed resource events.
func (s *Stacks) Await(ctx context.Context, op lifecycle.Operation) error {
	if op.NoChange {
		return nil
	}
	if op.StackID == "" {
		return errs.Invariant("await %s without a stack id", op.Kind)
	}
	maxWait := s.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	in := &cloudformation.DescribeStacksInput{StackName: aws.String(op.StackID)}
	started := time.Now()
	var err error
	switch op.Kind {
	case lifecycle.OpCreate:
		err = cloudformation.NewStackCreateCompleteWaiter(s.API).Wait(ctx, in, maxWait)
	case lifecycle.OpUpdate:
		err = cloudformation.NewStackUpdateCompleteWaiter(s.API).Wait(ctx, in, maxWait)
	case lifecycle.OpDelete:
		err = cloudformation.NewStackDeleteCompleteWaiter(s.API).Wait(ctx, in, maxWait)
	default:
		return errs.Invariant("unknown operation kind %q", op.Kind)
	}
	if err != nil {
		return errs.ProviderFailed(fmt.Sprintf("%s stack %s", op.Kind, op.StackID), s.failureDetail(ctx, op.StackID), err)
	}
	s.Log.Info("stack operation complete", "operation", op.Kind, "stackId", op.StackID, "elapsed", time.Since(started).Round(time.Second).String())
	return nil
}

func (s *Stacks) failureDetail(ctx context.Context, stackID string) string {
	var parts []string
	if st, err := s.describe(ctx, stackID); err == nil && st != nil {
		status := string(st.StackStatus)
		if reason := aws.ToString(st.StackStatusReason); reason != "" {
			status += " (" + reason + ")"
		}
		parts = append(parts, status)
	}
	events, err := s.API.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{StackName: aws.String(stackID)})
	if err == nil {
		n := 0
		for _, ev := range events.StackEvents {
			if n >= maxFailureEvents {
				break
			}
			if !strings.HasSuffix(string(ev.ResourceStatus), "_FAILED") {
				continue
			}
			reason := aws.ToString(ev.ResourceStatusReason)
			if reason == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s: %s", aws.ToString(ev.LogicalResourceId), ev.ResourceStatus, reason))
			n++
		}
	}
	return strings.Join(parts, "; ")
}

func toCFN(list params.List) []cfntypes.Parameter {
	out := make([]cfntypes.Parameter, 0, len(list))
	for _, p := range list {
		out = append(out, cfntypes.Parameter{
			ParameterKey:   aws.String(p.Key),
			ParameterValue: aws.String(p.Value),
		})
	}
	return out
}
