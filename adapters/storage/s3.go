package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/cobalthq/respimg/core"
	apperrors "github.com/cobalthq/respimg/errors"
)

// S3Client defines the minimal object-store interface used by the adapter.
// Inject a real aws-sdk-go-v2 client in production, or a test double.
type S3Client interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	HeadObject(ctx context.Context, bucket, key string) (bool, error)
}

// S3 stores variants in an S3-compatible bucket, one key prefix per
// category. For deployments serving uploads from object storage; orphan
// reclamation is delegated to a bucket lifecycle rule rather than the
// local sweep.
type S3 struct {
	client     S3Client
	bucket     string
	categories map[core.Category]string
}

// NewS3 creates an S3 adapter. client must not be nil.
func NewS3(client S3Client, bucket string, categories map[core.Category]string) (*S3, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 storage: client must not be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket must not be empty")
	}
	if len(categories) == 0 {
		categories = core.DefaultCategories()
	}
	return &S3{client: client, bucket: bucket, categories: categories}, nil
}

func (s *S3) objectKey(key core.StorageKey) (string, error) {
	prefix, ok := s.categories[key.Category]
	if !ok {
		return "", apperrors.New(apperrors.CategoryStorage, "s3.key", apperrors.ErrUnknownCategory)
	}
	return path.Join(prefix, key.Name), nil
}

func (s *S3) Put(ctx context.Context, key core.StorageKey, r io.Reader) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.client.PutObject(ctx, s.bucket, k, r); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "s3.put", err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.GetObject(ctx, s.bucket, k)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "s3.get", err)
	}
	return rc, nil
}

func (s *S3) Delete(ctx context.Context, key core.StorageKey) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if err := s.client.DeleteObject(ctx, s.bucket, k); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "s3.delete", err)
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	ok, err := s.client.HeadObject(ctx, s.bucket, k)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "s3.head", err)
	}
	return ok, nil
}
