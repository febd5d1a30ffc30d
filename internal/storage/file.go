package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileGateway stores each key as a file below Root.
type FileGateway struct {
	root string
}

// NewFileGateway returns a gateway rooted at dir. The directory is created lazily on write.
func NewFileGateway(dir string) *FileGateway {
	return &FileGateway{root: dir}
}

// Root returns the storage directory.
func (g *FileGateway) Root() string {
	return g.root
}

func (g *FileGateway) path(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	clean := filepath.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return filepath.Join(g.root, clean), nil
}

// ReadFile returns the content stored under key, or ErrNotFound.
func (g *FileGateway) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := g.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", key)
		}
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

// WriteFile replaces the content under key via a temp file and os.Rename,
// so readers never observe a partially written file.
func (g *FileGateway) WriteFile(ctx context.Context, key string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := g.path(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create storage directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	return nil
}
