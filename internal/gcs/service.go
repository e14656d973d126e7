// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package gcs makes local files available to Vertex AI Vector Search through Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/go-a2a/cms-search/internal/provision"
	"github.com/go-a2a/cms-search/pkg/logging"
)

// DefaultConcurrency is the number of files uploaded in parallel.
const DefaultConcurrency = 4

// UploadResult reports the outcome of uploading one local file.
type UploadResult struct {
	Path   string
	Bucket string
	Object string
	Err    error
}

// Service ensures buckets exist and uploads files into them.
type Service struct {
	api         BucketAPI
	projectID   string
	concurrency int
	logger      *slog.Logger
	clientOpts  []option.ClientOption
}

// Option is a functional option for configuring [Service].
type Option func(*Service)

// WithLogger sets the logger for the [Service].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConcurrency sets how many files [Service.UploadFiles] uploads at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClientOptions passes extra options to the Cloud Storage client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Service) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithBucketAPI replaces the Cloud Storage transport.
func WithBucketAPI(api BucketAPI) Option {
	return func(s *Service) {
		s.api = api
	}
}

// NewService creates a new [Service] for projectID.
func NewService(ctx context.Context, projectID string, opts ...Option) (*Service, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}

	s := &Service{
		projectID:   projectID,
		concurrency: DefaultConcurrency,
		logger:      logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.api == nil {
		api, err := newStorageAPI(ctx, s.clientOpts...)
		if err != nil {
			return nil, err
		}
		s.api = api
	}

	return s, nil
}

// Close closes the underlying Cloud Storage client.
func (s *Service) Close() error {
	if s.api == nil {
		return nil
	}
	if err := s.api.Close(); err != nil {
		return fmt.Errorf("failed to close storage client: %w", err)
	}
	return nil
}

// EnsureBucket creates the bucket name in location with storageClass unless it already exists.
//
// Buckets are matched by name only; the location and class of an existing bucket are left as is.
func (s *Service) EnsureBucket(ctx context.Context, name, location, storageClass string) error {
	kind := provision.Kind[string]{
		Name: "bucket",
		List: func(ctx context.Context) ([]string, error) {
			return s.api.ListBuckets(ctx, s.projectID)
		},
		Key: func(n string) string { return n },
		Create: func(ctx context.Context) (string, error) {
			attrs := &storage.BucketAttrs{
				Location:     location,
				StorageClass: strings.ToUpper(storageClass),
			}
			if err := s.api.CreateBucket(ctx, s.projectID, name, attrs); err != nil {
				return "", err
			}
			return name, nil
		},
	}

	_, state, err := provision.Ensure(logging.NewContext(ctx, s.logger), kind, name)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Cloud Storage bucket ready",
		slog.String("bucket", name),
		slog.String("state", state.String()),
	)
	return nil
}

// UploadFiles uploads each path into bucket under its base name.
//
// Uploads run with bounded concurrency. A failing file does not stop the others: every file gets
// an [UploadResult] in input order, and the returned error joins all per-file failures.
func (s *Service) UploadFiles(ctx context.Context, bucket string, paths []string) ([]UploadResult, error) {
	results := make([]UploadResult, len(paths))

	var eg errgroup.Group
	eg.SetLimit(s.concurrency)
	for i, path := range paths {
		results[i] = UploadResult{
			Path:   path,
			Bucket: bucket,
			Object: filepath.Base(path),
		}
		eg.Go(func() error {
			results[i].Err = s.uploadFile(ctx, bucket, results[i].Object, path)
			return nil
		})
	}
	_ = eg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("upload %q: %w", r.Path, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (s *Service) uploadFile(ctx context.Context, bucket, object, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s.api.Upload(ctx, bucket, object, f); err != nil {
		s.logger.ErrorContext(ctx, "Failed to upload file to Cloud Storage bucket",
			slog.String("file", path),
			slog.String("bucket", bucket),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.logger.InfoContext(ctx, "Uploaded file to Cloud Storage bucket",
		slog.String("file", path),
		slog.String("bucket", bucket),
		slog.String("object", object),
	)
	return nil
}
