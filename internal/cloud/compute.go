package cloud

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type EC2API interface {
	DescribeAddresses(ctx context.Context, in *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	DescribeAvailabilityZones(ctx context.Context, in *ec2.DescribeAvailabilityZonesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error)
	DescribeKeyPairs(ctx context.Context, in *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
}

// Compute answers EC2 questions: elastic IP usage, zones and key pairs.
type Compute struct {
	API EC2API
}

// CountElasticIPs returns the number of allocated elastic IPs in the client's region.
func (c *Compute) CountElasticIPs(ctx context.Context) (int, error) {
	out, err := c.API.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return 0, err
	}
	return len(out.Addresses), nil
}

// AvailableZones lists zones in the available state, sorted by name.
func (c *Compute) AvailableZones(ctx context.Context) ([]string, error) {
	out, err := c.API.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{
		Filters: []ec2types.Filter{{Name: aws.String("state"), Values: []string{"available"}}},
	})
	if err != nil {
		return nil, err
	}
	zones := make([]string, 0, len(out.AvailabilityZones))
	for _, z := range out.AvailabilityZones {
		if name := aws.ToString(z.ZoneName); name != "" {
			zones = append(zones, name)
		}
	}
	sort.Strings(zones)
	return zones, nil
}

// KeyPairs lists the EC2 key pair names, sorted.
func (c *Compute) KeyPairs(ctx context.Context) ([]string, error) {
	out, err := c.API.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.KeyPairs))
	for _, kp := range out.KeyPairs {
		if name := aws.ToString(kp.KeyName); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SelectZones picks the first count available zones. region is informational: the client is
// already bound to the primary stack's region.
func (c *Compute) SelectZones(ctx context.Context, region string, count int) ([]string, error) {
	zones, err := c.AvailableZones(ctx)
	if err != nil {
		return nil, err
	}
	if len(zones) < count {
		return nil, fmt.Errorf("region %s has %d available zones, need %d", region, len(zones), count)
	}
	return zones[:count], nil
}

type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity resolves the caller's account.
type Identity struct {
	API STSAPI
}

func (i *Identity) AccountID(ctx context.Context) (string, error) {
	out, err := i.API.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}
