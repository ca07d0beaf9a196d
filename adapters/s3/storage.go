package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gostratum/blobx"
	"github.com/gostratum/core/logx"
)

func init() {
	blobx.Register(blobx.BackendS3, func(ctx context.Context, cfg *blobx.Config, opts ...blobx.Option) (blobx.Storage, error) {
		return New(ctx, cfg, opts...)
	})
}

// Storage implements blobx.Storage on an S3-compatible object store.
type Storage struct {
	client        *ClientManager
	logger        logx.Logger
	verbose       bool
	partSize      int64
	partParallel  int
	presignExpiry time.Duration
}

var _ blobx.Storage = (*Storage)(nil)

// New creates an S3 storage implementation. It builds the SDK client,
// resolves credentials and validates bucket connectivity before returning.
func New(ctx context.Context, cfg *blobx.Config, opts ...blobx.Option) (*Storage, error) {
	config, options := blobx.GetEffectiveConfig(cfg, opts...)

	clientManager, err := NewClientManager(ctx, ClientConfig{
		Config: config,
		Logger: options.GetLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client manager: %w", err)
	}

	return NewWithClient(clientManager), nil
}

// NewWithClient creates an S3 storage around an existing client manager.
// Useful for tests that point the client at a fake S3 endpoint.
func NewWithClient(cm *ClientManager) *Storage {
	cfg := cm.GetConfig()
	return &Storage{
		client:        cm,
		logger:        cm.GetLogger(),
		verbose:       cfg.EnableLogging,
		partSize:      cfg.PartSize,
		partParallel:  cfg.PartParallel,
		presignExpiry: cfg.PresignExpiry,
	}
}

// Close releases the underlying client manager.
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) debug(msg string, args ...any) {
	if s.verbose {
		s.logger.Debug(msg, blobx.ArgsToFields(args...)...)
	}
}

func (s *Storage) bucket() string {
	return s.client.GetConfig().Bucket
}

// resolveKey normalizes a blob path into an object key.
func resolveKey(op, p string) (string, error) {
	key, err := blobx.CleanPath(p)
	if err != nil {
		return "", &blobx.StorageError{Op: op, Path: p, Err: err}
	}
	return key, nil
}

func (s *Storage) location(key string) string {
	return "s3://" + s.bucket() + "/" + key
}

func (s *Storage) Save(ctx context.Context, p string, data []byte) (string, error) {
	key, err := resolveKey("save", p)
	if err != nil {
		return "", err
	}

	s.debug("Putting object", "path", p, "key", key, "size", len(data))

	input := &awsS3.PutObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.GetS3Client().PutObject(ctx, input); err != nil {
		return "", MapS3Error(err, "save", p)
	}

	s.debug("Object put successfully", "path", p, "size", len(data))
	return s.location(key), nil
}

// SaveStream uploads an open byte stream. Payloads that fit in a single part
// go through PutObject; larger streams use a concurrent multipart upload so
// the whole payload is never buffered at once.
func (s *Storage) SaveStream(ctx context.Context, p string, r io.Reader) (string, error) {
	key, err := resolveKey("save_stream", p)
	if err != nil {
		return "", err
	}

	// Read up to one part to decide between single-shot and multipart.
	head := make([]byte, s.partSize)
	n, rerr := io.ReadFull(r, head)
	switch rerr {
	case nil:
		// A full part was read and more may follow: multipart.
		uploader := newMultipartUploader(s)
		if err := uploader.upload(ctx, key, io.MultiReader(bytes.NewReader(head[:n]), r)); err != nil {
			return "", err
		}
		return s.location(key), nil

	case io.EOF, io.ErrUnexpectedEOF:
		return s.Save(ctx, p, head[:n])

	default:
		return "", &blobx.StorageError{
			Op:   "save_stream",
			Path: p,
			Err:  fmt.Errorf("failed to read source: %w", rerr),
		}
	}
}

func (s *Storage) Load(ctx context.Context, p string) ([]byte, error) {
	rc, err := s.LoadStream(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &blobx.StorageError{
			Op:   "load",
			Path: p,
			Err:  fmt.Errorf("failed to read object body: %w", err),
		}
	}

	s.debug("Object retrieved successfully", "path", p, "size", len(data))
	return data, nil
}

func (s *Storage) LoadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	key, err := resolveKey("load_stream", p)
	if err != nil {
		return nil, err
	}

	s.debug("Getting object", "path", p, "key", key)

	output, err := s.client.GetS3Client().GetObject(ctx, &awsS3.GetObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, MapS3Error(err, "load_stream", p)
	}

	return output.Body, nil
}

// Delete removes the object and reports whether it existed. A missing path
// is (false, nil); backend faults are returned as errors.
func (s *Storage) Delete(ctx context.Context, p string) (bool, error) {
	key, err := resolveKey("delete", p)
	if err != nil {
		return false, err
	}

	// DeleteObject succeeds on missing keys, so probe first to honor the
	// removed-anything contract.
	exists, err := s.objectExists(ctx, key)
	if err != nil {
		return false, MapS3Error(err, "delete", p)
	}
	if !exists {
		return false, nil
	}

	_, err = s.client.GetS3Client().DeleteObject(ctx, &awsS3.DeleteObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, MapS3Error(err, "delete", p)
	}

	s.debug("Object deleted successfully", "path", p)
	return true, nil
}

func (s *Storage) Exists(ctx context.Context, p string) (bool, error) {
	key, err := resolveKey("exists", p)
	if err != nil {
		return false, err
	}

	exists, err := s.objectExists(ctx, key)
	if err != nil {
		return false, MapS3Error(err, "exists", p)
	}
	return exists, nil
}

// List enumerates every object key under prefix using paginated
// ListObjectsV2 calls.
func (s *Storage) List(ctx context.Context, prefix string) ([]string, error) {
	key, err := resolveKey("list", prefix)
	if err != nil {
		return nil, err
	}

	input := &awsS3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket()),
		MaxKeys: aws.Int32(1000),
	}
	if key != "" {
		input.Prefix = aws.String(key)
	}

	paths := []string{}
	paginator := awsS3.NewListObjectsV2Paginator(s.client.GetS3Client(), input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, MapS3Error(err, "list", prefix)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				paths = append(paths, aws.ToString(obj.Key))
			}
		}
	}

	s.debug("Objects listed successfully", "prefix", prefix, "count", len(paths))
	return paths, nil
}

// URL returns a presigned GET URL for the object.
func (s *Storage) URL(ctx context.Context, p string, opts *blobx.URLOptions) (string, error) {
	key, err := resolveKey("url", p)
	if err != nil {
		return "", err
	}

	expiry := s.presignExpiry
	if opts != nil && opts.Expiry > 0 {
		expiry = opts.Expiry
	}

	return s.presignGet(ctx, key, p, expiry)
}

func (s *Storage) Stat(ctx context.Context, p string) (blobx.Stat, error) {
	key, err := resolveKey("stat", p)
	if err != nil {
		return blobx.Stat{}, err
	}

	s.debug("Head object", "path", p, "key", key)

	output, err := s.client.GetS3Client().HeadObject(ctx, &awsS3.HeadObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		return blobx.Stat{}, MapS3Error(err, "stat", p)
	}

	stat := blobx.Stat{
		Path:     p,
		Location: s.location(key),
	}
	if output.ContentLength != nil {
		stat.Size = aws.ToInt64(output.ContentLength)
	}
	if output.ETag != nil {
		stat.ETag = aws.ToString(output.ETag)
	}
	if output.ContentType != nil {
		stat.ContentType = aws.ToString(output.ContentType)
	}
	if output.LastModified != nil {
		stat.ModifiedAt = *output.LastModified
	}

	s.debug("Object head successful", "path", p, "size", stat.Size, "etag", stat.ETag)
	return stat, nil
}

// objectExists checks if an object exists
func (s *Storage) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.GetS3Client().HeadObject(ctx, &awsS3.HeadObjectInput{
		Bucket: aws.String(s.bucket()),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
