package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/gostratum/blobx"
	"github.com/gostratum/core/logx"
)

// multipartUploader streams large payloads as concurrent part uploads.
type multipartUploader struct {
	client   *awsS3.Client
	bucket   string
	partSize int64
	parallel int
	logger   logx.Logger
}

func newMultipartUploader(s *Storage) *multipartUploader {
	return &multipartUploader{
		client:   s.client.GetS3Client(),
		bucket:   s.bucket(),
		partSize: s.partSize,
		parallel: s.partParallel,
		logger:   s.logger,
	}
}

// upload chunks src into parts and uploads them with a worker pool. The
// upload is aborted on any failure so no orphaned parts are left behind.
func (mu *multipartUploader) upload(ctx context.Context, key string, src io.Reader) (err error) {
	if mu.partSize < 5<<20 { // 5MB minimum for S3
		mu.partSize = 5 << 20
	}
	if mu.parallel <= 0 {
		mu.parallel = 4
	}

	uploadToken := uuid.New().String()
	mu.logger.Info("Starting multipart upload", blobx.ArgsToFields(
		"key", key,
		"upload_token", uploadToken,
		"part_size_mb", mu.partSize/(1<<20),
		"concurrency", mu.parallel,
	)...)

	output, err := mu.client.CreateMultipartUpload(ctx, &awsS3.CreateMultipartUploadInput{
		Bucket: aws.String(mu.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return MapS3Error(err, "create_multipart", key)
	}
	uploadID := aws.ToString(output.UploadId)

	// Ensure cleanup on failure
	defer func() {
		if err != nil {
			if abortErr := mu.abort(ctx, key, uploadID); abortErr != nil {
				mu.logger.Warn("Failed to abort multipart upload", blobx.ArgsToFields(
					"key", key,
					"upload_id", uploadID,
					"error", abortErr,
				)...)
			}
		}
	}()

	parts, err := mu.uploadParts(ctx, key, uploadID, src)
	if err != nil {
		return fmt.Errorf("failed to upload parts: %w", err)
	}

	completed := make([]types.CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(part.etag),
			PartNumber: aws.Int32(part.partNumber),
		}
	}

	_, err = mu.client.CompleteMultipartUpload(ctx, &awsS3.CompleteMultipartUploadInput{
		Bucket:   aws.String(mu.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return MapS3Error(err, "complete_multipart", key)
	}

	mu.logger.Info("Multipart upload completed successfully", blobx.ArgsToFields(
		"key", key,
		"upload_id", uploadID,
		"parts", len(parts),
	)...)

	return nil
}

// partUploadTask represents a part to be uploaded
type partUploadTask struct {
	partNumber int32
	data       []byte
}

// partUploadResult represents the result of uploading a part
type partUploadResult struct {
	partNumber int32
	etag       string
	err        error
}

// uploadParts uploads all parts concurrently with proper error handling
func (mu *multipartUploader) uploadParts(ctx context.Context, key, uploadID string, src io.Reader) ([]partUploadResult, error) {
	partChan := make(chan partUploadTask, mu.parallel*2)
	resultChan := make(chan partUploadResult, mu.parallel*2)
	readErrChan := make(chan error, 1)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < mu.parallel; i++ {
		wg.Add(1)
		go mu.partUploadWorker(ctx, key, uploadID, partChan, resultChan, &wg)
	}

	// Start reader goroutine to chunk the input
	go mu.chunkReader(ctx, src, partChan, readErrChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var parts []partUploadResult
	var uploadErr error

	for result := range resultChan {
		if result.err != nil {
			if uploadErr == nil {
				uploadErr = result.err
				mu.logger.Error("Part upload failed", blobx.ArgsToFields(
					"part_number", result.partNumber,
					"error", result.err,
				)...)
			}
			continue
		}

		parts = append(parts, result)
		mu.logger.Debug("Part uploaded successfully", blobx.ArgsToFields(
			"part_number", result.partNumber,
			"etag", result.etag,
		)...)
	}

	if uploadErr != nil {
		return nil, uploadErr
	}

	// A source read failure must fail the whole upload; completing with only
	// the parts read so far would store a truncated object.
	if readErr := <-readErrChan; readErr != nil {
		return nil, fmt.Errorf("failed to read source: %w", readErr)
	}

	// Parts may complete out of order
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].partNumber < parts[j].partNumber
	})

	return parts, nil
}

// partUploadWorker uploads parts from the channel
func (mu *multipartUploader) partUploadWorker(ctx context.Context, key, uploadID string, partChan <-chan partUploadTask, resultChan chan<- partUploadResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			resultChan <- partUploadResult{err: ctx.Err()}
			return

		case task, ok := <-partChan:
			if !ok {
				return // Channel closed, worker finished
			}

			etag, err := mu.uploadPart(ctx, key, uploadID, task.partNumber, task.data)
			resultChan <- partUploadResult{
				partNumber: task.partNumber,
				etag:       etag,
				err:        err,
			}
		}
	}
}

// chunkReader reads from src and sends chunks to the part channel. A non-EOF
// read error is reported on readErrChan before the part channel closes.
func (mu *multipartUploader) chunkReader(ctx context.Context, src io.Reader, partChan chan<- partUploadTask, readErrChan chan<- error) {
	defer close(partChan)
	defer close(readErrChan)

	partNumber := int32(1)
	buffer := make([]byte, mu.partSize)

	for {
		select {
		case <-ctx.Done():
			return

		default:
			n, err := io.ReadFull(src, buffer)
			if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
				mu.logger.Error("Error reading from source", blobx.ArgsToFields("error", err)...)
				readErrChan <- err
				return
			}

			if n == 0 {
				return // No more data
			}

			// Create a copy of the data for this part
			partData := make([]byte, n)
			copy(partData, buffer[:n])

			select {
			case <-ctx.Done():
				return
			case partChan <- partUploadTask{
				partNumber: partNumber,
				data:       partData,
			}:
				partNumber++
			}

			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return // Finished reading
			}
		}
	}
}

// uploadPart uploads a single part
func (mu *multipartUploader) uploadPart(ctx context.Context, key, uploadID string, partNumber int32, data []byte) (string, error) {
	output, err := mu.client.UploadPart(ctx, &awsS3.UploadPartInput{
		Bucket:     aws.String(mu.bucket),
		Key:        aws.String(key),
		PartNumber: aws.Int32(partNumber),
		UploadId:   aws.String(uploadID),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return "", MapS3Error(err, "upload_part", key)
	}

	return aws.ToString(output.ETag), nil
}

// abort cancels a multipart upload and cleans up parts
func (mu *multipartUploader) abort(ctx context.Context, key, uploadID string) error {
	_, err := mu.client.AbortMultipartUpload(ctx, &awsS3.AbortMultipartUploadInput{
		Bucket:   aws.String(mu.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return MapS3Error(err, "abort_multipart", key)
	}
	return nil
}
