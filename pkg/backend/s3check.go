package backend

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/extmounts/internal/s3client"
)

// s3Options mirrors the option keys of the "s3" backend.
type s3Options struct {
	Key          string `mapstructure:"key"`
	Secret       string `mapstructure:"secret"`
	Bucket       string `mapstructure:"bucket"`
	Hostname     string `mapstructure:"hostname"`
	Port         int    `mapstructure:"port"`
	Region       string `mapstructure:"region"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// endpoint returns the custom endpoint URL, or "" for AWS itself.
func (o s3Options) endpoint() string {
	if o.Hostname == "" {
		return ""
	}

	scheme := "http"
	if o.UseSSL {
		scheme = "https"
	}
	host := o.Hostname
	if o.Port > 0 {
		host = net.JoinHostPort(o.Hostname, strconv.Itoa(o.Port))
	}
	return scheme + "://" + host
}

func (o s3Options) clientConfig() s3client.Config {
	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	return s3client.Config{
		Region:           region,
		Endpoint:         o.endpoint(),
		VirtualHostStyle: o.Hostname != "" && !o.UsePathStyle,
		AccessKeyID:      o.Key,
		SecretAccessKey:  o.Secret,
		MaxRetries:       -1,
	}
}

// checkS3 issues a HeadBucket with the mount's credentials. It does not
// use dialer: the SDK manages its own connections.
func checkS3(ctx context.Context, _ Dialer, options map[string]any) error {
	var opts s3Options
	if err := decodeOptions(options, &opts); err != nil {
		return err
	}
	if opts.Bucket == "" {
		return fmt.Errorf("%w: bucket", ErrMissingOption)
	}

	client, err := s3client.New(ctx, opts.clientConfig())
	if err != nil {
		return err
	}

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(opts.Bucket)})
	if err != nil {
		return fmt.Errorf("bucket %q not accessible: %w", opts.Bucket, err)
	}
	return nil
}

func s3Endpoint(options map[string]any) string {
	var opts s3Options
	if err := decodeOptions(options, &opts); err != nil {
		return ""
	}
	if endpoint := opts.endpoint(); endpoint != "" {
		return endpoint
	}
	return "aws:" + opts.Region
}
