package cloud

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetBucketEncryption(ctx context.Context, in *s3.GetBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.GetBucketEncryptionOutput, error)
}

type KMSAPI interface {
	DescribeKey(ctx context.Context, in *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
}

// Storage answers object existence and bucket encryption questions.
type Storage struct {
	S3  S3API
	KMS KMSAPI
}

// ObjectExists reports whether bucket/key exists.
func (s *Storage) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.S3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) || hasCode(err, "NotFound", "NoSuchKey") {
		return false, nil
	}
	return false, err
}

// BucketEncryptionKey returns "key/<id>" for a bucket encrypted with a KMS key by default.
func (s *Storage) BucketEncryptionKey(ctx context.Context, bucket string) (string, bool, error) {
	out, err := s.S3.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: aws.String(bucket)})
	if hasCode(err, "ServerSideEncryptionConfigurationNotFoundError") {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if out.ServerSideEncryptionConfiguration == nil {
		return "", false, nil
	}
	for _, rule := range out.ServerSideEncryptionConfiguration.Rules {
		def := rule.ApplyServerSideEncryptionByDefault
		if def == nil || !strings.HasPrefix(string(def.SSEAlgorithm), "aws:kms") {
			continue
		}
		ref := aws.ToString(def.KMSMasterKeyID)
		if ref == "" {
			// aws:kms without a key id uses the AWS managed aws/s3 key.
			ref = "alias/aws/s3"
		}
		keyID, err := s.resolveKeyID(ctx, ref)
		if err != nil {
			return "", false, err
		}
		return "key/" + keyID, true, nil
	}
	return "", false, nil
}

func (s *Storage) resolveKeyID(ctx context.Context, ref string) (string, error) {
	out, err := s.KMS.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(ref)})
	if err != nil {
		return "", err
	}
	if out.KeyMetadata == nil || aws.ToString(out.KeyMetadata.KeyId) == "" {
		return "", errors.New("kms: key " + ref + " has no id")
	}
	return aws.ToString(out.KeyMetadata.KeyId), nil
}
