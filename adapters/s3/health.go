package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gostratum/core"
)

// s3HealthCheck implements core.Check for S3 connectivity. The client manager
// is resolved lazily because the storage is constructed during fx OnStart.
type s3HealthCheck struct {
	client func() *ClientManager
}

func (s *s3HealthCheck) Name() string { return "blobx.s3" }

func (s *s3HealthCheck) Kind() core.Kind { return core.Readiness }

func (s *s3HealthCheck) Check(ctx context.Context) error {
	cm := s.client()
	if cm == nil {
		return fmt.Errorf("storage not started")
	}

	// Use a short timeout for health checks
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// Attempt to head the bucket
	_, err := cm.GetS3Client().HeadBucket(ctx, &awsS3.HeadBucketInput{
		Bucket: aws.String(cm.GetConfig().Bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 head bucket failed: %w", err)
	}
	return nil
}
