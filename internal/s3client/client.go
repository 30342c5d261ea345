// Package s3client builds AWS SDK S3 clients for the S3 config store and the
// S3 backend status check.
package s3client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultMaxRetries is used when Config.MaxRetries is zero.
const DefaultMaxRetries = 5

// Config describes how to reach an S3 compatible service.
type Config struct {
	// Region is required by the SDK even for S3 compatible services.
	Region string

	// Endpoint overrides the AWS endpoint (MinIO, Localstack, Ceph, ...).
	// Setting it also switches to path-style addressing unless
	// VirtualHostStyle is set.
	Endpoint string

	// VirtualHostStyle keeps bucket-in-hostname addressing with a custom
	// endpoint.
	VirtualHostStyle bool

	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string

	// MaxRetries bounds retries of transient failures. Negative disables
	// retrying.
	MaxRetries int
}

// New creates an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*s3.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 client: region is required")
	}

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxAttempts := cfg.MaxRetries + 1
	switch {
	case cfg.MaxRetries == 0:
		maxAttempts = DefaultMaxRetries + 1
	case cfg.MaxRetries < 0:
		maxAttempts = 1
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = !cfg.VirtualHostStyle
		}
	}), nil
}
