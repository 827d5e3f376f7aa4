// Package artifact stores uploaded run inputs in a blob bucket so workflow
// steps can consume them by id
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

type (
	// Store persists artifacts through gocloud.dev/blob, supporting local
	// files, S3, GCS, and Azure Blob Storage. Each artifact is a data blob
	// plus a JSON metadata sidecar
	Store struct {
		bucket *blob.Bucket
		prefix string
	}

	// Meta describes a stored artifact
	Meta struct {
		CreatedAt   time.Time `json:"created_at"`
		ID          string    `json:"id"`
		Name        string    `json:"name,omitempty"`
		ContentType string    `json:"content_type,omitempty"`
		Size        int64     `json:"size"`
	}
)

const metaSuffix = ".meta.json"

var ErrNotFound = errors.New("artifact not found")

// NewStore opens the bucket at bucketURL. The URL scheme selects the driver
// (file://, s3://, gs://, azblob://, mem:// in tests)
func NewStore(ctx context.Context, bucketURL, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Store{bucket: bucket, prefix: prefix}, nil
}

// Put stores data under a fresh id and writes the metadata sidecar
func (s *Store) Put(
	ctx context.Context, name, contentType string, data []byte,
) (*Meta, error) {
	meta := &Meta{
		CreatedAt:   time.Now().UTC(),
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
	}

	if err := s.bucket.WriteAll(ctx, s.dataKey(meta.ID), data, nil); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := s.bucket.WriteAll(
		ctx, s.metaKey(meta.ID), encoded, nil,
	); err != nil {
		_ = s.bucket.Delete(ctx, s.dataKey(meta.ID))
		return nil, err
	}
	return meta, nil
}

// Stat returns an artifact's metadata without reading its data
func (s *Store) Stat(ctx context.Context, id string) (*Meta, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	encoded, err := s.bucket.ReadAll(ctx, s.metaKey(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var meta Meta
	if err := json.Unmarshal(encoded, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Get returns an artifact's data and metadata
func (s *Store) Get(ctx context.Context, id string) ([]byte, *Meta, error) {
	meta, err := s.Stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.bucket.ReadAll(ctx, s.dataKey(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, err
	}
	return data, meta, nil
}

// Delete removes an artifact and its sidecar. Deleting a missing artifact
// is not an error
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	if err := s.bucket.Delete(ctx, s.dataKey(id)); err != nil &&
		gcerrors.Code(err) != gcerrors.NotFound {
		return err
	}

	err := s.bucket.Delete(ctx, s.metaKey(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) dataKey(id string) string {
	return s.prefix + id
}

func (s *Store) metaKey(id string) string {
	return s.prefix + id + metaSuffix
}

// validID accepts uuid keys only, keeping request-supplied ids from
// addressing anything outside the artifact space
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
