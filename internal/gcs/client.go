// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/auth/credentials"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BucketAPI is the subset of Cloud Storage used by [Service].
type BucketAPI interface {
	// ListBuckets returns the names of all buckets in the project.
	ListBuckets(ctx context.Context, projectID string) ([]string, error)

	// CreateBucket creates a bucket with the given attributes.
	CreateBucket(ctx context.Context, projectID, name string, attrs *storage.BucketAttrs) error

	// Upload writes the content of r to bucket/object.
	Upload(ctx context.Context, bucket, object string, r io.Reader) error

	// Close releases the underlying connections.
	Close() error
}

// storageAPI implements [BucketAPI] on top of [*storage.Client].
type storageAPI struct {
	client *storage.Client
}

var _ BucketAPI = (*storageAPI)(nil)

// newStorageAPI creates a Cloud Storage client from Application Default Credentials.
func newStorageAPI(ctx context.Context, opts ...option.ClientOption) (*storageAPI, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		Scopes: []string{
			storage.ScopeFullControl,
			storage.ScopeReadWrite,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get credentials for storage: %w", err)
	}

	opts = append([]option.ClientOption{option.WithAuthCredentials(creds)}, opts...)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &storageAPI{client: client}, nil
}

// ListBuckets implements [BucketAPI].
func (a *storageAPI) ListBuckets(ctx context.Context, projectID string) ([]string, error) {
	it := a.client.Buckets(ctx, projectID)

	var names []string
	for {
		attrs, err := it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, err
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// CreateBucket implements [BucketAPI].
func (a *storageAPI) CreateBucket(ctx context.Context, projectID, name string, attrs *storage.BucketAttrs) error {
	return a.client.Bucket(name).Create(ctx, projectID, attrs)
}

// Upload implements [BucketAPI].
func (a *storageAPI) Upload(ctx context.Context, bucket, object string, r io.Reader) error {
	w := a.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// Close implements [BucketAPI].
func (a *storageAPI) Close() error {
	return a.client.Close()
}
