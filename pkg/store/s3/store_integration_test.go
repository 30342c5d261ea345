//go:build integration
// +build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/extmounts/internal/s3client"
	"github.com/marmos91/extmounts/pkg/store"
	storetesting "github.com/marmos91/extmounts/pkg/store/testing"
	"github.com/stretchr/testify/require"
)

// TestS3Store_Integration runs the store suite against Localstack.
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/store/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := s3client.New(ctx, s3client.Config{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)

	bucket := fmt.Sprintf("extmounts-test-%d", time.Now().UnixNano())
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err, "is Localstack running at %s?", endpoint)

	t.Cleanup(func() {
		cleanupBucket(ctx, client, bucket)
	})

	var n int
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			n++
			return NewWithClient(client, bucket, fmt.Sprintf("run-%d", n))
		},
	}
	suite.Run(t)
}

func cleanupBucket(ctx context.Context, client *s3.Client, bucket string) {
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return
		}
		for _, obj := range page.Contents {
			_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
		}
	}
	_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
}
