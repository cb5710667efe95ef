// Package artifact stores raw downloaded archives and pipeline run logs in an
// object store, for provenance. A MinIO/S3 backend is used when configured;
// otherwise objects land on the local filesystem so dev setups and tests need
// no external services.
package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
)

// ErrObjectNotFound reports a Get against a key that does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Store abstracts the minimal object-store operations the pipeline needs.
type Store interface {
	Ping(ctx context.Context) error
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, data []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Config selects and configures the backing store. When EndpointURL and both
// credentials are set the S3 backend is used; otherwise objects are written
// under LocalDir.
type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
	LocalDir        string
}

// NewStore builds the store the config describes.
func NewStore(cfg Config) (Store, error) {
	if cfg.EndpointURL != "" && cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return NewS3Store(cfg)
	}
	return NewLocalStore(cfg.LocalDir), nil
}

// LocalStore persists objects on disk, mimicking bucket/key layout for tests
// and single-node deployments.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a local object store rooted at dir.
func NewLocalStore(root string) *LocalStore {
	if root == "" {
		root = filepath.Join(os.TempDir(), "gaiacore-artifacts")
	}
	_ = os.MkdirAll(root, 0o755)
	return &LocalStore{root: root}
}

func (s *LocalStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.root, 0o755)
}

func (s *LocalStore) EnsureBucket(ctx context.Context, bucket string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" {
		return errors.New("bucket name is required")
	}
	return os.MkdirAll(filepath.Join(s.root, bucket), 0o755)
}

func (s *LocalStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := s.EnsureBucket(ctx, bucket); err != nil {
		return err
	}
	fullPath := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, data, 0o644)
}

func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, bucket, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bucketPath := filepath.Join(s.root, bucket)
	root := filepath.Join(bucketPath, filepath.FromSlash(prefix))

	var keys []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(bucketPath, path)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
