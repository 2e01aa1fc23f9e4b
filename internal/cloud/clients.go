// File: internal/cloud/clients.go
// Brief: AWS client construction shared by every provider collaborator.

// Package cloud implements the stack, storage, quota, identity and invocation collaborators on
// top of aws-sdk-go-v2. Clients are built once per invocation and passed explicitly.
package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-logr/logr"
)

// Options selects the AWS credentials and region.
type Options struct {
	Region  string
	Profile string
}

// Clients bundles the service clients kycstack talks to.
type Clients struct {
	Config         aws.Config
	CloudFormation *cloudformation.Client
	S3             *s3.Client
	EC2            *ec2.Client
	KMS            *kms.Client
	STS            *sts.Client
	Lambda         *lambda.Client
}

// Load resolves the default credential chain with the given overrides.
func Load(ctx context.Context, opts Options) (*Clients, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(opts.Region); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if profile := strings.TrimSpace(opts.Profile); profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("AWS region is not configured (set --region or AWS_REGION)")
	}
	return New(cfg), nil
}

// New builds every service client from cfg.
func New(cfg aws.Config) *Clients {
	return &Clients{
		Config:         cfg,
		CloudFormation: cloudformation.NewFromConfig(cfg),
		S3:             s3.NewFromConfig(cfg),
		EC2:            ec2.NewFromConfig(cfg),
		KMS:            kms.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
		Lambda:         lambda.NewFromConfig(cfg),
	}
}

// Region is the region every client targets.
func (c *Clients) Region() string {
	return c.Config.Region
}

// Stacks returns the CloudFormation collaborator.
func (c *Clients) Stacks(log logr.Logger) *Stacks {
	return &Stacks{API: c.CloudFormation, Log: log}
}

// Storage returns the S3/KMS collaborator.
func (c *Clients) Storage() *Storage {
	return &Storage{S3: c.S3, KMS: c.KMS}
}

// Compute returns the EC2 collaborator.
func (c *Clients) Compute() *Compute {
	return &Compute{API: c.EC2}
}

// Identity returns the STS collaborator.
func (c *Clients) Identity() *Identity {
	return &Identity{API: c.STS}
}

// Functions returns the Lambda collaborator.
func (c *Clients) Functions() *Functions {
	return &Functions{API: c.Lambda}
}
