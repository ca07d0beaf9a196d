package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/gostratum/blobx"
)

// MapS3Error converts S3 SDK errors to domain errors
func MapS3Error(err error, op, path string) error {
	if err == nil {
		return nil
	}

	// Handle context errors
	if errors.Is(err, context.Canceled) {
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrAborted,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrTimeout,
		}
	}

	// Handle specific S3 error types
	var (
		noSuchBucket       *types.NoSuchBucket
		noSuchKey          *types.NoSuchKey
		notFound           *types.NotFound
		bucketExists       *types.BucketAlreadyExists
		bucketOwned        *types.BucketAlreadyOwnedByYou
		invalidObjectState *types.InvalidObjectState
	)
	switch {
	case errors.As(err, &noSuchBucket):
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%w: bucket does not exist", blobx.ErrNotFound),
		}

	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrNotFound,
		}

	case errors.As(err, &bucketExists):
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%w: bucket already exists", blobx.ErrConflict),
		}

	case errors.As(err, &bucketOwned):
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%w: bucket already owned by you", blobx.ErrConflict),
		}

	case errors.As(err, &invalidObjectState):
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%w: invalid object state", blobx.ErrConflict),
		}
	}

	// Generic smithy API errors carry the service error code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if mapped := mapAPIErrorCode(apiErr.ErrorCode(), op, path); mapped != nil {
			return mapped
		}
	}

	// Map by HTTP status when the response is available
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		if mapped := mapHTTPStatus(respErr.HTTPStatusCode(), op, path); mapped != nil {
			return mapped
		}
	}

	// String-based matching as a last resort
	if mapped := mapByErrorMessage(err, op, path); mapped != nil {
		return mapped
	}

	// Default: wrap the original error
	return &blobx.StorageError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// mapAPIErrorCode maps service error codes to domain errors
func mapAPIErrorCode(code, op, path string) error {
	switch code {
	case "NoSuchBucket", "NoSuchKey", "NotFound":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrNotFound,
		}

	case "BucketAlreadyExists", "BucketAlreadyOwnedByYou":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrConflict,
		}

	case "InvalidBucketName", "AccessDenied", "InvalidAccessKeyId",
		"SignatureDoesNotMatch", "MalformedXML", "InvalidRequest":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%s: %w", code, blobx.ErrInvalidConfig),
		}

	case "EntityTooLarge":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrTooLarge,
		}

	case "TokenRefreshRequired", "RequestTimeTooSkewed", "SlowDown",
		"ServiceUnavailable", "InternalError", "RequestTimeout":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("%s: %w", code, blobx.ErrTimeout),
		}

	case "InvalidPart", "InvalidPartOrder", "NoSuchUpload":
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("multipart upload error %s: %w", code, blobx.ErrAborted),
		}
	}

	return nil
}

// mapHTTPStatus maps HTTP status codes to domain errors
func mapHTTPStatus(status int, op, path string) error {
	switch status {
	case 404:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrNotFound,
		}

	case 403:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("access denied: %w", blobx.ErrInvalidConfig),
		}

	case 409:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrConflict,
		}

	case 413:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  blobx.ErrTooLarge,
		}

	case 429:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("rate limited: %w", blobx.ErrTimeout),
		}

	case 500, 502, 503, 504:
		return &blobx.StorageError{
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("server error (%d): %w", status, blobx.ErrTimeout),
		}
	}

	return nil
}

// mapByErrorMessage performs string-based error matching as a fallback
func mapByErrorMessage(err error, op, path string) error {
	errStr := strings.ToLower(err.Error())

	notFoundPatterns := []string{
		"not found",
		"does not exist",
		"no such",
		"nosuchkey",
		"nosuchbucket",
	}

	for _, pattern := range notFoundPatterns {
		if strings.Contains(errStr, pattern) {
			return &blobx.StorageError{
				Op:   op,
				Path: path,
				Err:  blobx.ErrNotFound,
			}
		}
	}

	conflictPatterns := []string{
		"already exists",
		"conflict",
		"bucketalreadyexists",
	}

	for _, pattern := range conflictPatterns {
		if strings.Contains(errStr, pattern) {
			return &blobx.StorageError{
				Op:   op,
				Path: path,
				Err:  blobx.ErrConflict,
			}
		}
	}

	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"request timeout",
		"service unavailable",
	}

	for _, pattern := range timeoutPatterns {
		if strings.Contains(errStr, pattern) {
			return &blobx.StorageError{
				Op:   op,
				Path: path,
				Err:  blobx.ErrTimeout,
			}
		}
	}

	tooLargePatterns := []string{
		"too large",
		"entity too large",
		"exceeds maximum",
	}

	for _, pattern := range tooLargePatterns {
		if strings.Contains(errStr, pattern) {
			return &blobx.StorageError{
				Op:   op,
				Path: path,
				Err:  blobx.ErrTooLarge,
			}
		}
	}

	return nil // No mapping found
}

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Don't retry context cancellation
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Don't retry validation errors
	if errors.Is(err, blobx.ErrInvalidConfig) ||
		errors.Is(err, blobx.ErrInvalidPath) {
		return false
	}

	// Don't retry not found errors
	if errors.Is(err, blobx.ErrNotFound) {
		return false
	}

	// Don't retry conflict errors (usually)
	if errors.Is(err, blobx.ErrConflict) {
		return false
	}

	// Retry timeout and server errors
	if errors.Is(err, blobx.ErrTimeout) {
		return true
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case 429, 500, 502, 503, 504: // Rate limit or server errors
			return true
		case 400, 401, 403, 404, 409: // Client errors
			return false
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ServiceUnavailable", "InternalError", "SlowDown", "RequestTimeout":
			return true
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch",
			"NoSuchBucket", "NoSuchKey", "InvalidBucketName":
			return false
		}
	}

	// Default to retryable for unknown errors
	return true
}

// WrapError creates a StorageError with context
func WrapError(err error, op, path string) error {
	if err == nil {
		return nil
	}

	// If it's already a StorageError, don't double-wrap
	var storageErr *blobx.StorageError
	if errors.As(err, &storageErr) {
		return err
	}

	return &blobx.StorageError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
