package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Local stores blobs as files under a root directory. Keys map directly to
// relative paths; content types are derived from extensions on read since
// the filesystem keeps none.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}

	return &Local{root: root}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w", key, err)
}

func (l *Local) ReadText(_ context.Context, key string) (string, error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		return "", fmt.Errorf("read %s: %w", key, err)
	}

	return string(data), nil
}

func (l *Local) WriteText(ctx context.Context, key, content, contentType string) error {
	return l.Write(ctx, key, strings.NewReader(content), contentType)
}

func (l *Local) Write(_ context.Context, key string, r io.Reader, _ string) error {
	dest := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}

	return nil
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		return nil, "", fmt.Errorf("open %s: %w", key, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return f, contentType, nil
}

func (l *Local) ListPrefix(_ context.Context, prefix string) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list prefix %s: %w", prefix, err)
	}

	sort.Strings(keys)

	return keys, nil
}

func (l *Local) ListDirs(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(l.path(prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("list dirs %s: %w", prefix, err)
	}

	var dirs []string

	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, prefix+entry.Name())
		}
	}

	sort.Strings(dirs)

	return dirs, nil
}

func (l *Local) Ping(_ context.Context) error {
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("archive root unavailable: %w", err)
	}

	return nil
}
