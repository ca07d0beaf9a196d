package blobx

import (
	"context"
	"io"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
)

// Instrumenter wraps storage operations with metrics and tracing
type Instrumenter struct {
	metrics metricsx.Metrics
	tracer  tracingx.Tracer
}

// NewInstrumenter creates a new instrumenter with optional metrics and tracing
func NewInstrumenter(metrics metricsx.Metrics, tracer tracingx.Tracer) *Instrumenter {
	return &Instrumenter{
		metrics: metrics,
		tracer:  tracer,
	}
}

// TraceOperation wraps an operation with tracing and metrics
func (i *Instrumenter) TraceOperation(ctx context.Context, operation, path string, fn func(ctx context.Context) error) error {
	// Start tracing if available
	var span tracingx.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, "storage."+operation,
			tracingx.WithSpanKind(tracingx.SpanKindClient),
			tracingx.WithAttributes(map[string]any{
				"storage.operation": operation,
				"storage.path":      path,
			}),
		)
		defer span.End()
	}

	// Track operation duration for metrics
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	// Record metrics if available
	if i.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}

		i.metrics.Counter("storage_operations_total",
			metricsx.WithHelp("Total number of storage operations"),
			metricsx.WithLabels("operation", "status"),
		).Inc(operation, status)

		i.metrics.Histogram("storage_operation_duration_seconds",
			metricsx.WithHelp("Storage operation duration in seconds"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
		).Observe(duration, operation)
	}

	// Update span status if tracing
	if span != nil {
		if err != nil {
			span.SetError(err)
		}
	}

	return err
}

// RecordOperationSize records the size of data transferred
func (i *Instrumenter) RecordOperationSize(operation string, size int64) {
	if i.metrics != nil {
		i.metrics.Histogram("storage_operation_bytes",
			metricsx.WithHelp("Storage operation data size in bytes"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(1024, 10240, 102400, 1024000, 10240000, 104857600, 1073741824), // 1KB to 1GB
		).Observe(float64(size), operation)
	}
}

// RecordMultipartOperation records multipart upload metrics
func (i *Instrumenter) RecordMultipartOperation(operation string, partCount int) {
	if i.metrics != nil {
		i.metrics.Counter("storage_multipart_operations_total",
			metricsx.WithHelp("Total number of multipart upload operations"),
			metricsx.WithLabels("operation"),
		).Inc(operation)

		if partCount > 0 {
			i.metrics.Counter("storage_multipart_parts_total",
				metricsx.WithHelp("Total number of multipart upload parts"),
			).Add(float64(partCount))
		}
	}
}

// RecordListOperation records list operation metrics
func (i *Instrumenter) RecordListOperation(itemCount int) {
	if i.metrics != nil {
		i.metrics.Histogram("storage_list_items",
			metricsx.WithHelp("Number of items returned in list operations"),
			metricsx.WithBuckets(1, 10, 50, 100, 500, 1000, 5000, 10000),
		).Observe(float64(itemCount))
	}
}

// RecordPresignOperation records presigned URL generation metrics
func (i *Instrumenter) RecordPresignOperation(operation string) {
	if i.metrics != nil {
		i.metrics.Counter("storage_presign_operations_total",
			metricsx.WithHelp("Total number of presigned URL operations"),
			metricsx.WithLabels("operation"),
		).Inc(operation)
	}
}

// Instrument decorates a Storage with per-operation metrics and spans. A nil
// instrumenter returns the storage unchanged.
func Instrument(s Storage, ins *Instrumenter) Storage {
	if ins == nil {
		return s
	}
	return &instrumentedStorage{next: s, ins: ins}
}

type instrumentedStorage struct {
	next Storage
	ins  *Instrumenter
}

func (s *instrumentedStorage) Save(ctx context.Context, path string, data []byte) (string, error) {
	var location string
	err := s.ins.TraceOperation(ctx, "save", path, func(ctx context.Context) error {
		var err error
		location, err = s.next.Save(ctx, path, data)
		return err
	})
	if err == nil {
		s.ins.RecordOperationSize("save", int64(len(data)))
	}
	return location, err
}

func (s *instrumentedStorage) SaveStream(ctx context.Context, path string, r io.Reader) (string, error) {
	var location string
	err := s.ins.TraceOperation(ctx, "save_stream", path, func(ctx context.Context) error {
		var err error
		location, err = s.next.SaveStream(ctx, path, r)
		return err
	})
	return location, err
}

func (s *instrumentedStorage) Load(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.ins.TraceOperation(ctx, "load", path, func(ctx context.Context) error {
		var err error
		data, err = s.next.Load(ctx, path)
		return err
	})
	if err == nil {
		s.ins.RecordOperationSize("load", int64(len(data)))
	}
	return data, err
}

func (s *instrumentedStorage) LoadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := s.ins.TraceOperation(ctx, "load_stream", path, func(ctx context.Context) error {
		var err error
		rc, err = s.next.LoadStream(ctx, path)
		return err
	})
	return rc, err
}

func (s *instrumentedStorage) Delete(ctx context.Context, path string) (bool, error) {
	var deleted bool
	err := s.ins.TraceOperation(ctx, "delete", path, func(ctx context.Context) error {
		var err error
		deleted, err = s.next.Delete(ctx, path)
		return err
	})
	return deleted, err
}

func (s *instrumentedStorage) Exists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := s.ins.TraceOperation(ctx, "exists", path, func(ctx context.Context) error {
		var err error
		exists, err = s.next.Exists(ctx, path)
		return err
	})
	return exists, err
}

func (s *instrumentedStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := s.ins.TraceOperation(ctx, "list", prefix, func(ctx context.Context) error {
		var err error
		paths, err = s.next.List(ctx, prefix)
		return err
	})
	if err == nil {
		s.ins.RecordListOperation(len(paths))
	}
	return paths, err
}

func (s *instrumentedStorage) URL(ctx context.Context, path string, opts *URLOptions) (string, error) {
	var u string
	err := s.ins.TraceOperation(ctx, "url", path, func(ctx context.Context) error {
		var err error
		u, err = s.next.URL(ctx, path, opts)
		return err
	})
	if err == nil {
		s.ins.RecordPresignOperation("url")
	}
	return u, err
}

func (s *instrumentedStorage) Stat(ctx context.Context, path string) (Stat, error) {
	var st Stat
	err := s.ins.TraceOperation(ctx, "stat", path, func(ctx context.Context) error {
		var err error
		st, err = s.next.Stat(ctx, path)
		return err
	})
	return st, err
}
