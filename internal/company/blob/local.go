// Package blob stores uploaded company logos on the local filesystem,
// addressed by flat filenames.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	e "github.com/gartstein/companies/internal/company/errors"
	"go.uber.org/zap"
)

// ErrInvalidName is returned for names that are empty or would escape the
// storage directory.
var ErrInvalidName = errors.New("invalid blob name")

// LocalStore keeps every blob as a file directly under basePath.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStore creates basePath if needed and returns a store rooted there.
func NewLocalStore(basePath string, logger *zap.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStore{
		basePath: abs,
		logger:   logger.Named("blob_store"),
	}, nil
}

// Put writes r under name. The content lands in a temporary file first and
// is renamed into place, so readers never observe a partial logo.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return &e.BlobError{Op: "put", Name: name, Err: err}
	}

	s.logger.Debug("Stored blob", zap.String("name", name))
	return nil
}

// Open returns a reader for name. A missing blob yields an error matching
// errors.ErrNotFound.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, &e.BlobError{Op: "open", Name: name, Err: fmt.Errorf("%w: %v", e.ErrNotFound, err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &e.BlobError{Op: "open", Name: name, Err: err}
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &e.BlobError{Op: "open", Name: name, Err: e.ErrNotFound}
		}
		return nil, &e.BlobError{Op: "open", Name: name, Err: err}
	}
	return file, nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return false, &e.BlobError{Op: "stat", Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &e.BlobError{Op: "stat", Name: name, Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// Delete removes name. Deleting a blob that is already gone succeeds.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return &e.BlobError{Op: "delete", Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &e.BlobError{Op: "delete", Name: name, Err: err}
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &e.BlobError{Op: "delete", Name: name, Err: err}
	}

	s.logger.Debug("Deleted blob", zap.String("name", name))
	return nil
}

func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || name[0] == '.' {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.basePath, name), nil
}
