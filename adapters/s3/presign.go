package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gostratum/blobx"
)

const maxPresignExpiry = 7 * 24 * time.Hour // AWS limit

// clampExpiry bounds a presign validity to what S3 accepts.
func clampExpiry(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		return 15 * time.Minute
	}
	if expiry > maxPresignExpiry {
		return maxPresignExpiry
	}
	return expiry
}

// presignGet generates a presigned URL for downloading an object.
func (s *Storage) presignGet(ctx context.Context, key, p string, expiry time.Duration) (string, error) {
	expiry = clampExpiry(expiry)

	s.debug("Generating presigned GET URL", "path", p, "key", key, "expiry", expiry)

	req, err := s.client.GetPresignClient().PresignGetObject(ctx, &awsS3.GetObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	}, func(presignOpts *awsS3.PresignOptions) {
		presignOpts.Expires = expiry
	})
	if err != nil {
		return "", &blobx.StorageError{
			Op:   "url",
			Path: p,
			Err:  fmt.Errorf("failed to generate presigned GET URL: %w", err),
		}
	}

	return req.URL, nil
}

// PresignPut generates a presigned URL for uploading an object. This is not
// part of the blobx.Storage contract; callers holding the concrete type can
// hand the URL to clients that upload directly.
func (s *Storage) PresignPut(ctx context.Context, p string, expiry time.Duration) (string, error) {
	key, err := resolveKey("presign_put", p)
	if err != nil {
		return "", err
	}
	expiry = clampExpiry(expiry)

	s.debug("Generating presigned PUT URL", "path", p, "key", key, "expiry", expiry)

	req, err := s.client.GetPresignClient().PresignPutObject(ctx, &awsS3.PutObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	}, func(presignOpts *awsS3.PresignOptions) {
		presignOpts.Expires = expiry
	})
	if err != nil {
		return "", &blobx.StorageError{
			Op:   "presign_put",
			Path: p,
			Err:  fmt.Errorf("failed to generate presigned PUT URL: %w", err),
		}
	}

	return req.URL, nil
}
