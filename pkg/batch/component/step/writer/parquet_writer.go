package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	"github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// StorageRef names the storage connection receiving the files.
	StorageRef string
	// Bucket overrides the connection's default bucket.
	Bucket string
	// OutputBaseDir is the object prefix of the exported files (e.g. "reports/people").
	OutputBaseDir string
	// CompressionType is "SNAPPY", "GZIP" or "NONE".
	CompressionType string
}

// PartitionKeyFunc returns the Hive-style partition directory of an item (e.g. "dt=2024-01-31").
type PartitionKeyFunc[T any] func(T) (string, error)

// ParquetWriter buffers items and, on Close, writes one Parquet file per partition and
// uploads it through a storage connection. T must carry parquet struct tags.
type ParquetWriter[T any] struct {
	name             string
	config           ParquetWriterConfig
	resolver         storage.StorageConnectionResolver
	partitionKeyFunc PartitionKeyFunc[T]
	now              func() time.Time

	storageConn   storage.StorageConnection
	bufferedItems map[string][]T
	totalBuffered int
	uploaded      []string
}

// NewParquetWriter creates a ParquetWriter. A nil partitionKeyFunc writes a single file
// directly under OutputBaseDir.
func NewParquetWriter[T any](name string, config ParquetWriterConfig, resolver storage.StorageConnectionResolver, partitionKeyFunc PartitionKeyFunc[T]) (*ParquetWriter[T], error) {
	if config.StorageRef == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires a storage ref", name), nil, false, false)
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires an output base dir", name), nil, false, false)
	}
	if resolver == nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires a storage connection resolver", name), nil, false, false)
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s'", name), err, false, false)
	}
	if partitionKeyFunc == nil {
		partitionKeyFunc = func(T) (string, error) { return "", nil }
	}
	return &ParquetWriter[T]{
		name:             name,
		config:           config,
		resolver:         resolver,
		partitionKeyFunc: partitionKeyFunc,
		now:              time.Now,
		bufferedItems:    make(map[string][]T),
	}, nil
}

// Open resolves the storage connection and clears the buffers.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	conn, err := w.resolver.ResolveStorageConnection(ctx, w.config.StorageRef)
	if err != nil {
		return exception.NewBatchError("writer", fmt.Sprintf("failed to resolve storage connection '%s' for ParquetWriter '%s'", w.config.StorageRef, w.name), err, false, false)
	}
	w.storageConn = conn
	w.bufferedItems = make(map[string][]T)
	w.totalBuffered = 0
	w.uploaded = nil
	logger.Debugf("ParquetWriter '%s' opened. Target storage: %s, base directory: %s", w.name, w.config.StorageRef, w.config.OutputBaseDir)
	return nil
}

// Write buffers items by partition. Nothing is uploaded before Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, items []T) error {
	for _, item := range items {
		key, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("failed to get partition key in ParquetWriter '%s'", w.name), err, false, false)
		}
		w.bufferedItems[key] = append(w.bufferedItems[key], item)
		w.totalBuffered++
	}
	return nil
}

// Close encodes and uploads every buffered partition. Failures of individual partitions
// are aggregated; the remaining partitions are still attempted.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	defer func() {
		w.bufferedItems = make(map[string][]T)
		w.totalBuffered = 0
	}()
	if w.totalBuffered == 0 {
		logger.Infof("ParquetWriter '%s': no records buffered, skipping Parquet file generation.", w.name)
		return nil
	}
	if w.storageConn == nil {
		return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' closed without being opened", w.name), nil, false, false)
	}
	codec, _ := compressionCodec(w.config.CompressionType)

	keys := make([]string, 0, len(w.bufferedItems))
	for k := range w.bufferedItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs *multierror.Error
	for _, key := range keys {
		objectName, err := w.flushPartition(ctx, key, w.bufferedItems[key], codec)
		if err != nil {
			errs = multierror.Append(errs, exception.NewBatchError("writer", fmt.Sprintf("failed to export partition '%s' in ParquetWriter '%s'", key, w.name), err, false, false))
			continue
		}
		w.uploaded = append(w.uploaded, objectName)
		logger.Infof("ParquetWriter '%s': uploaded %d records to %s", w.name, len(w.bufferedItems[key]), objectName)
	}
	return errs.ErrorOrNil()
}

func (w *ParquetWriter[T]) flushPartition(ctx context.Context, key string, items []T, codec parquet.CompressionCodec) (objectName string, err error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(T), 1)
	if err != nil {
		return "", fmt.Errorf("failed to create Parquet writer: %w", err)
	}
	pw.CompressionType = codec
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return "", fmt.Errorf("failed to encode record: %w", err)
		}
	}
	// WriteStop panics on some schema mismatches.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return "", fmt.Errorf("failed to finalize Parquet file: %w", err)
	}

	fileName := fmt.Sprintf("data_%s_%s.parquet", w.now().Format("20060102150405"), uuid.NewString()[:8])
	objectName = path.Join(w.config.OutputBaseDir, key, fileName)
	if err := w.storageConn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// Uploaded returns the object names written by the last Close.
func (w *ParquetWriter[T]) Uploaded() []string {
	return w.uploaded
}

// compressionCodec maps a compression name to its Parquet codec.
func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var (
	_ port.ItemWriter[any] = (*ParquetWriter[any])(nil)
	_ port.ItemStream      = (*ParquetWriter[any])(nil)
)
