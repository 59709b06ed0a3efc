package storagesvc

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

type minioStorage struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

var _ core.FileStorage = (*minioStorage)(nil) // interface compliance check

// NewMinioStorage connects to the S3-compatible object store and creates the bucket if needed.
func NewMinioStorage(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	client, err := minio.New(conf.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Storage.AccessKey, conf.Storage.SecretKey, ""),
		Secure: conf.Storage.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Storage.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Storage.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}

	return &minioStorage{
		client: client,
		bucket: conf.Storage.Bucket,
		expiry: conf.Storage.PresignExpiry,
	}, nil
}

// translateError maps missing objects to core.ErrFileNotFound.
func translateError(err error, msg string) error {
	if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
		return core.ErrFileNotFound
	}
	return errors.Wrap(err, msg)
}

func (s *minioStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrap(err, "uploading object")
}

func (s *minioStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err, "getting object")
	}
	// GetObject is lazy, Stat surfaces missing objects
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translateError(err, "getting object")
	}
	return obj, nil
}

func (s *minioStorage) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	return errors.Wrap(err, "removing object")
}

func (s *minioStorage) URL(ctx context.Context, key, filename string) (string, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", `attachment; filename="`+filename+`"`)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, params)
	if err != nil {
		return "", translateError(err, "presigning object URL")
	}
	return u.String(), nil
}

// New returns the object store configured by conf.Storage.
func New(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	if conf.Storage.IsLocal() {
		return NewDiskStorage(conf)
	}
	return NewMinioStorage(ctx, conf)
}
