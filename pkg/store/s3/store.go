// Package s3 stores mount tables as JSON objects in an S3 compatible bucket.
//
// Object layout under the configured prefix:
//
//	<prefix>mount.json          global mounts
//	<prefix><user>/mount.json   personal mounts of <user>
//
// Objects use the same legacy JSON format as the filesystem store, so a data
// directory can be synced to a bucket as is.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/extmounts/internal/s3client"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
)

const objectName = "mount.json"

// API is the subset of *s3.Client used by the store.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds the S3 store options.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`

	// VirtualHostStyle keeps bucket-in-hostname addressing with a custom
	// endpoint. Path-style is used otherwise.
	VirtualHostStyle bool `mapstructure:"virtual_host_style"`
}

// Store reads and writes mount tables as S3 objects.
type Store struct {
	client API
	bucket string
	prefix string
	closed atomic.Bool
}

// New builds an S3 client from cfg and returns a store using it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store: bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := s3client.New(ctx, s3client.Config{
		Region:           region,
		Endpoint:         cfg.Endpoint,
		VirtualHostStyle: cfg.VirtualHostStyle,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		MaxRetries:       cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient returns a store using an existing client. A non-empty prefix
// is terminated with "/".
func NewWithClient(client API, bucket, prefix string) *Store {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key of scope.
func (s *Store) Key(scope mount.Scope) (string, error) {
	if scope.IsGlobal() {
		return s.prefix + objectName, nil
	}
	if err := store.ValidateOwner(scope.Owner); err != nil {
		return "", err
	}
	return s.prefix + scope.Owner + "/" + objectName, nil
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, store.ErrClosed
	}

	key, err := s.Key(scope)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return mount.RawMountTable{}, nil
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}

	table, err := mount.UnmarshalTable(data)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return table, nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrClosed
	}

	key, err := s.Key(scope)
	if err != nil {
		return err
	}

	data, err := mount.MarshalTable(table)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Close marks the store closed. The client holds no resources to release.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// isNotFound reports whether err means the object does not exist. Some S3
// compatible services answer a bare 404 instead of NoSuchKey.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var responseErr *awshttp.ResponseError
	return errors.As(err, &responseErr) && responseErr.HTTPStatusCode() == 404
}
