package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectUploader pushes a local file to object storage.
type ObjectUploader interface {
	Upload(ctx context.Context, key, localPath string) error
}

// S3Config holds the object storage settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Uploader uploads report files to an S3 compatible bucket, creating it on first use.
type S3Uploader struct {
	client *minio.Client
	bucket string

	initOnce sync.Once
	initErr  error
}

var _ ObjectUploader = &S3Uploader{} // Compile-time check

// NewS3Uploader creates an uploader. No request is made until the first upload.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Uploader{client: client, bucket: bucket}, nil
}

func (u *S3Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.initErr = err
			return
		}
		if !exists {
			u.initErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{})
		}
	})
	return u.initErr
}

// Upload implements ObjectUploader.
func (u *S3Uploader) Upload(ctx context.Context, key, localPath string) error {
	if err := u.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", u.bucket, err)
	}
	_, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/vnd.apache.parquet",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	return nil
}
