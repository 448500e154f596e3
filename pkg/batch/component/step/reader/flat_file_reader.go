// Package reader provides ItemReader implementations for delimited files and SQL cursors.
package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/importuser/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/importuser/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/importuser/pkg/batch/core/application/port"
	"github.com/tigerroll/importuser/pkg/batch/support/util/exception"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// FieldSetMapper maps the tokenised fields of one line to an item.
// An error is reported as a ParseError for that line.
type FieldSetMapper[T any] func(fields []string) (T, error)

// FlatFileOption configures a FlatFileItemReader.
type FlatFileOption func(*flatFileSettings)

type flatFileSettings struct {
	name        string
	delimiter   rune
	comment     rune
	linesToSkip int
	trimSpace   bool
	fieldCount  int
	resolver    storage.StorageConnectionResolver
	storageRef  string
}

// WithReaderName sets the name used in logs.
func WithReaderName(name string) FlatFileOption {
	return func(s *flatFileSettings) { s.name = name }
}

// WithDelimiter sets the field separator. The default is a comma.
func WithDelimiter(r rune) FlatFileOption {
	return func(s *flatFileSettings) { s.delimiter = r }
}

// WithComment makes lines starting with r be ignored.
func WithComment(r rune) FlatFileOption {
	return func(s *flatFileSettings) { s.comment = r }
}

// WithLinesToSkip ignores the first n lines of the resource, e.g. a header.
func WithLinesToSkip(n int) FlatFileOption {
	return func(s *flatFileSettings) { s.linesToSkip = n }
}

// WithTrimSpace trims surrounding white space from every field.
func WithTrimSpace(trim bool) FlatFileOption {
	return func(s *flatFileSettings) { s.trimSpace = trim }
}

// WithFieldCount rejects lines that do not have exactly n fields. Zero accepts any count.
func WithFieldCount(n int) FlatFileOption {
	return func(s *flatFileSettings) { s.fieldCount = n }
}

// WithStorage sets the resolver and connection name used for gs:// and s3:// resources.
func WithStorage(resolver storage.StorageConnectionResolver, storageRef string) FlatFileOption {
	return func(s *flatFileSettings) {
		s.resolver = resolver
		s.storageRef = storageRef
	}
}

// FlatFileItemReader reads one item per line of a delimited text resource.
// Blank lines are ignored. A malformed line yields a *exception.ParseError and the
// reader moves on to the next line.
type FlatFileItemReader[T any] struct {
	resource string
	mapper   FieldSetMapper[T]
	settings flatFileSettings

	rc   io.ReadCloser
	buf  *bufio.Reader
	line int
	done bool
}

var _ port.ItemReader[any] = (*FlatFileItemReader[any])(nil)

// NewFlatFileItemReader creates a reader over resource, a local path or a file://, gs:// or
// s3:// URI. Nothing is opened until Open.
func NewFlatFileItemReader[T any](resource string, mapper FieldSetMapper[T], opts ...FlatFileOption) (*FlatFileItemReader[T], error) {
	if mapper == nil {
		return nil, exception.NewBatchError("reader", "FlatFileItemReader requires a FieldSetMapper", nil, false, false)
	}
	s := flatFileSettings{name: "flatFileItemReader", delimiter: ','}
	for _, opt := range opts {
		opt(&s)
	}
	if s.delimiter == '\n' || s.delimiter == '\r' || s.delimiter == '"' || !utf8.ValidRune(s.delimiter) {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("invalid delimiter %q", s.delimiter), nil, false, false)
	}
	if s.linesToSkip < 0 {
		return nil, exception.NewBatchError("reader", fmt.Sprintf("lines to skip must not be negative, got %d", s.linesToSkip), nil, false, false)
	}
	return &FlatFileItemReader[T]{resource: resource, mapper: mapper, settings: s}, nil
}

// Resource returns the resource location the reader was created with.
func (r *FlatFileItemReader[T]) Resource() string {
	return r.resource
}

// Open acquires a read handle on the resource and positions the reader at its first line.
// Opening an already open reader restarts it from the beginning.
func (r *FlatFileItemReader[T]) Open(ctx context.Context) error {
	if r.rc != nil {
		if err := r.Close(ctx); err != nil {
			logger.Warnf("%s: failed to close previous handle on %s: %v", r.settings.name, r.resource, err)
		}
	}

	loc, err := storage.ParseLocation(r.resource)
	if err != nil {
		return exception.NewResourceError(r.resource, err)
	}
	rc, err := r.openLocation(ctx, loc)
	if err != nil {
		return exception.NewResourceError(r.resource, err)
	}

	r.rc = rc
	r.buf = bufio.NewReader(rc)
	r.line = 0
	r.done = false
	for i := 0; i < r.settings.linesToSkip; i++ {
		if _, err := r.nextLine(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			r.Close(ctx)
			return exception.NewResourceError(r.resource, err)
		}
	}
	logger.Debugf("%s: opened %s.", r.settings.name, loc)
	return nil
}

func (r *FlatFileItemReader[T]) openLocation(ctx context.Context, loc storage.Location) (io.ReadCloser, error) {
	if loc.IsLocal() {
		info, err := os.Stat(loc.Object)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", loc.Object)
		}
		adapter, err := local.NewAdapter(storageConfig.StorageConfig{Type: local.ProviderType, BaseDir: filepath.Dir(loc.Object)}, r.settings.name)
		if err != nil {
			return nil, err
		}
		return adapter.Download(ctx, "", filepath.Base(loc.Object))
	}

	if r.settings.resolver == nil || r.settings.storageRef == "" {
		return nil, fmt.Errorf("no storage connection configured for %s resources", loc.Scheme)
	}
	conn, err := r.settings.resolver.ResolveStorageConnection(ctx, r.settings.storageRef)
	if err != nil {
		return nil, err
	}
	if conn.Type() != loc.StorageType() {
		return nil, fmt.Errorf("storage connection '%s' is of type '%s', resource needs '%s'", r.settings.storageRef, conn.Type(), loc.StorageType())
	}
	return conn.Download(ctx, loc.Bucket, loc.Object)
}

// Read returns the next item, io.EOF at the end of the resource, or a *exception.ParseError
// for a line that cannot be mapped.
func (r *FlatFileItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.buf == nil {
		return zero, exception.NewBatchError("reader", fmt.Sprintf("%s: reader not opened", r.settings.name), nil, false, false)
	}
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		raw, err := r.nextLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return zero, io.EOF
			}
			return zero, exception.NewResourceError(r.resource, err)
		}
		if r.ignorable(raw) {
			continue
		}
		return r.mapLine(raw)
	}
}

func (r *FlatFileItemReader[T]) ignorable(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	return r.settings.comment != 0 && strings.HasPrefix(raw, string(r.settings.comment))
}

func (r *FlatFileItemReader[T]) mapLine(raw string) (T, error) {
	var zero T
	if !utf8.ValidString(raw) {
		return zero, exception.NewParseError(r.line, raw, errors.New("invalid UTF-8 encoding"))
	}

	tokenizer := csv.NewReader(strings.NewReader(raw))
	tokenizer.Comma = r.settings.delimiter
	tokenizer.FieldsPerRecord = -1
	tokenizer.TrimLeadingSpace = r.settings.trimSpace
	fields, err := tokenizer.Read()
	if err != nil {
		return zero, exception.NewParseError(r.line, raw, err)
	}
	if r.settings.trimSpace {
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
	}
	if n := r.settings.fieldCount; n > 0 && len(fields) != n {
		return zero, exception.NewParseError(r.line, raw, fmt.Errorf("expected %d fields, found %d", n, len(fields)))
	}

	item, err := r.mapper(fields)
	if err != nil {
		return zero, exception.NewParseError(r.line, raw, err)
	}
	return item, nil
}

// byteOrderMark is dropped from the start of the first line.
const byteOrderMark = "\ufeff"

// nextLine returns the next physical line without its terminator.
func (r *FlatFileItemReader[T]) nextLine() (string, error) {
	if r.done {
		return "", io.EOF
	}
	s, err := r.buf.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		r.done = true
		if s == "" {
			return "", io.EOF
		}
	}
	r.line++
	s = strings.TrimRight(s, "\r\n")
	if r.line == 1 {
		s = strings.TrimPrefix(s, byteOrderMark)
	}
	return s, nil
}

// Close releases the read handle. It is safe to call more than once.
func (r *FlatFileItemReader[T]) Close(ctx context.Context) error {
	if r.rc == nil {
		return nil
	}
	err := r.rc.Close()
	r.rc = nil
	r.buf = nil
	if err != nil {
		return fmt.Errorf("%s: failed to close %s: %w", r.settings.name, r.resource, err)
	}
	logger.Debugf("%s: closed %s after %d lines.", r.settings.name, r.resource, r.line)
	return nil
}
