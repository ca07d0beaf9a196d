package testutil

import (
	"github.com/gostratum/blobx"
	"go.uber.org/fx"
)

// TestModule provides a module for testing with mock/test implementations.
// It provides a test configuration and an in-memory Storage so unit tests
// need no external configuration or backend.
//
// Example usage:
//
//	func TestMyApp(t *testing.T) {
//	    app := fx.New(
//	        testutil.TestModule,
//	        fx.Invoke(func(storage blobx.Storage) {
//	            // Use mock storage
//	        }),
//	    )
//	    // ...
//	}
var TestModule = fx.Module("blobx-test",
	fx.Provide(
		NewTestConfig,
		func() blobx.Storage { return NewMockStorage() },
	),
)

// NewTestConfig creates a test configuration suitable for unit tests.
// The S3 fields point to a local MinIO instance with default credentials.
func NewTestConfig() *blobx.Config {
	cfg := blobx.DefaultConfig()
	cfg.Bucket = "test-bucket"
	cfg.Endpoint = "http://localhost:9000"
	cfg.UsePathStyle = true
	cfg.AccessKey = "minioadmin"
	cfg.SecretKey = "minioadmin"
	cfg.DisableSSL = true
	cfg.EnableLogging = true
	return cfg
}
