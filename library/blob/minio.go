package blob

import (
	"context"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/minidrive/storage/library/log"
)

// MinioStore keeps blobs in a single S3-compatible bucket.
// Locators are object keys `scope/<uuid><ext>`.
type MinioStore struct {
	cli    *minio.Client
	bucket string
}

// MinioOptions is the dial configuration for the backing bucket.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinioStore dials the endpoint and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opt MinioOptions) (*MinioStore, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dial minio %q", opt.Endpoint)
	}

	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %q", opt.Bucket)
	}
	if !exists {
		if err = cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "make bucket %q", opt.Bucket)
		}
	}

	log.Logger.Info("minio blob store initialized",
		zap.String("endpoint", opt.Endpoint),
		zap.String("bucket", opt.Bucket))
	return &MinioStore{cli: cli, bucket: opt.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, scope, name string, r io.Reader, size int64) (string, error) {
	locator, err := newLocator(scope, name)
	if err != nil {
		return "", err
	}

	if _, err = s.cli.PutObject(ctx, s.bucket, locator, r, size,
		minio.PutObjectOptions{},
	); err != nil {
		return "", errors.Wrapf(err, "put object %q", locator)
	}

	return locator, nil
}

func (s *MinioStore) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	// StatObject first: GetObject defers errors until the first read.
	if _, err := s.cli.StatObject(ctx, s.bucket, locator, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Wrapf(ErrNotExist, "object %q", locator)
		}

		return nil, errors.Wrapf(err, "stat object %q", locator)
	}

	obj, err := s.cli.GetObject(ctx, s.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get object %q", locator)
	}

	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, locator string) error {
	if err := s.cli.RemoveObject(ctx, s.bucket, locator,
		minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "remove object %q", locator)
	}

	return nil
}

func (s *MinioStore) Exists(ctx context.Context, locator string) (bool, error) {
	if _, err := s.cli.StatObject(ctx, s.bucket, locator, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}

		return false, errors.Wrapf(err, "stat object %q", locator)
	}

	return true, nil
}
