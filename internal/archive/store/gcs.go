package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS stores blobs in a Google Cloud Storage bucket. Credentials come from
// the application default chain, so Cloud Run needs no key file.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
}

var _ Store = (*GCS)(nil)

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCS{
		client: client,
		bucket: client.Bucket(bucket),
	}, nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("attrs %s: %w", key, err)
}

func (g *GCS) ReadText(ctx context.Context, key string) (string, error) {
	r, _, err := g.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}

	return string(data), nil
}

func (g *GCS) WriteText(ctx context.Context, key, content, contentType string) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.WriteString(w, content); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}

	return nil
}

func (g *GCS) Write(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}

	return nil
}

func (g *GCS) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		return nil, "", fmt.Errorf("open %s: %w", key, err)
	}

	return r, r.Attrs.ContentType, nil
}

func (g *GCS) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("list prefix %s: %w", prefix, err)
		}

		keys = append(keys, attrs.Name)
	}

	sort.Strings(keys)

	return keys, nil
}

func (g *GCS) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	var dirs []string

	// The delimiter makes GCS return synthetic prefixes instead of
	// enumerating every blob below them.
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix, Delimiter: "/"})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("list dirs %s: %w", prefix, err)
		}

		if attrs.Prefix != "" {
			dirs = append(dirs, strings.TrimSuffix(attrs.Prefix, "/"))
		}
	}

	sort.Strings(dirs)

	return dirs, nil
}

func (g *GCS) Ping(ctx context.Context) error {
	if _, err := g.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("bucket unavailable: %w", err)
	}

	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
