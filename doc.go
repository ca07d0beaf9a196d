// Package blobx provides a dependency-injectable blob storage abstraction
// with interchangeable backends: local filesystem, NAS mounts and
// S3-compatible object stores (AWS S3, MinIO).
//
// The package is designed to be imported from the module root:
//
//	import "github.com/gostratum/blobx"
//
// Use the Fx module (`blobx.Module`) or the programmatic factory
// (`blobx.New`) to obtain a `blobx.Storage` implementation. Concrete
// backends live under `adapters/` and register themselves when imported
// with a blank import, e.g.:
//
//	import (
//	    "github.com/gostratum/blobx"
//	    _ "github.com/gostratum/blobx/adapters/local"
//	    _ "github.com/gostratum/blobx/adapters/s3"
//	)
//
// Applications blank-import only the backends they deploy, so a local-only
// deployment never links the AWS SDK.
package blobx
