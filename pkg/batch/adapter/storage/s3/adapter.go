// Package s3 provides an Amazon S3 implementation of the storage adapter interfaces.
// Any S3-compatible server can be targeted through the endpoint setting.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	storageAdapter "github.com/tigerroll/importuser/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/importuser/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/importuser/pkg/batch/core/config"
	"github.com/tigerroll/importuser/pkg/batch/support/util/logger"
)

// ProviderType is the storage type served by this package.
const ProviderType = "s3"

// Adapter implements storage.StorageConnection on an S3 client.
type Adapter struct {
	client *awss3.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*Adapter)(nil)

// NewClient builds an S3 client from cfg. Static credentials are used when an access key is
// configured, otherwise the default credential chain applies.
func NewClient(ctx context.Context, cfg storageConfig.StorageConfig) (*awss3.Client, error) {
	var loadOpts []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsConfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewAdapter creates an S3 adapter for cfg.
func NewAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (*Adapter, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("s3 storage adapter '%s': %w", name, err)
	}
	return &Adapter{client: client, cfg: cfg, name: name}, nil
}

// NewConnection is the storage.ConnectionFactory of this package.
func NewConnection(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	return NewAdapter(context.Background(), cfg, name)
}

// Close implements coreAdapter.ResourceConnection. The S3 client holds no closable resources.
func (a *Adapter) Close() error {
	logger.Debugf("S3 storage adapter '%s' closed.", a.name)
	return nil
}

// Type implements coreAdapter.ResourceConnection.
func (a *Adapter) Type() string { return ProviderType }

// Name implements coreAdapter.ResourceConnection.
func (a *Adapter) Name() string { return a.name }

// Upload puts data at bucket/objectName. Non-seekable readers are buffered first since
// request signing needs a seekable body.
func (a *Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	body, ok := data.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(data)
		if err != nil {
			return fmt.Errorf("failed to buffer upload of s3://%s/%s: %w", bucket, objectName, err)
		}
		body = bytes.NewReader(buf)
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded s3://%s/%s (s3 adapter '%s').", bucket, objectName, a.name)
	return nil
}

// Download opens the body of bucket/objectName.
func (a *Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return nil, err
	}
	out, err := a.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, objectName, err)
	}
	return out.Body, nil
}

// ListObjects pages through the keys under prefix.
func (a *Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	paginator := awss3.NewListObjectsV2Paginator(a.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if err := fn(aws.ToString(obj.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteObject deletes bucket/objectName.
func (a *Adapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	_, err = a.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectName),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			logger.Warnf("Attempted to delete non-existent object s3://%s/%s.", bucket, objectName)
			return nil
		}
		return fmt.Errorf("failed to delete s3://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

func (a *Adapter) bucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return "", fmt.Errorf("s3 storage adapter '%s': no bucket given and bucket_name is not configured", a.name)
	}
	return bucket, nil
}

// NewProvider creates the provider of S3 connections.
func NewProvider(cfg *coreConfig.Config) storageAdapter.StorageProvider {
	return storageAdapter.NewBaseProvider(cfg, ProviderType, NewConnection)
}
