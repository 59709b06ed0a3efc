package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
)

// diskStorage keeps files under a local directory, served by the API under baseURL.
// Keys resolve inside a billy chroot, so they can never escape Storage.LocalDir.
type diskStorage struct {
	fs      billy.Filesystem
	baseURL string
}

var _ core.FileStorage = (*diskStorage)(nil) // interface compliance check

func NewDiskStorage(conf *core.Config) (core.FileStorage, error) {
	fs := osfs.New(conf.Storage.LocalDir)
	if err := fs.MkdirAll(".", 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &diskStorage{fs: fs, baseURL: strings.TrimSuffix(conf.Storage.LocalURL, "/")}, nil
}

func cleanKey(key string) (string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" {
		return "", errors.Errorf("invalid key %q", key)
	}
	return key, nil
}

func (s *diskStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	f, err := s.fs.Create(key) // creates missing parent directories
	if err != nil {
		return errors.Wrapf(err, "creating file %q", key)
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(key)
		return errors.Wrap(err, "writing file")
	}
	return errors.Wrap(f.Close(), "closing file")
}

func (s *diskStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *diskStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err = s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

func (s *diskStorage) URL(_ context.Context, key, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if _, err = s.fs.Stat(key); err != nil {
		if os.IsNotExist(err) {
			return "", core.ErrFileNotFound
		}
		return "", errors.Wrap(err, "checking file")
	}
	return s.baseURL + "/" + strings.TrimPrefix(path.Clean("/"+key), "/"), nil
}
