package core

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var ErrFileNotFound = errors.New("file not found")

// FileStorage is any object store holding uploaded files under slash-separated keys.
type FileStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns a URL the client can download the file from; filename is suggested for the download.
	URL(ctx context.Context, key, filename string) (string, error)
}
