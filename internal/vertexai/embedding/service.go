// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-a2a/cms-search/internal/record"
	"github.com/go-a2a/cms-search/pkg/logging"
)

const (
	// DefaultModel is the text embedding model used when none is configured.
	DefaultModel = "textembedding-gecko@001"

	// DefaultPublisher owns [DefaultModel].
	DefaultPublisher = "google"

	// DefaultDimension is the vector size produced by [DefaultModel].
	DefaultDimension = 768
)

var (
	// ErrEmptyInput is returned when no sentences are given.
	ErrEmptyInput = errors.New("at least one sentence is required")

	// ErrPredictionCount is returned when the service answers with a different number of vectors.
	ErrPredictionCount = errors.New("prediction count does not match input count")

	// ErrDimension is returned when a vector does not have the configured dimension.
	ErrDimension = errors.New("unexpected embedding dimension")
)

// Predictor is the subset of [aiplatform.PredictionClient] used by [Service].
type Predictor interface {
	Predict(ctx context.Context, req *aiplatformpb.PredictRequest, opts ...gax.CallOption) (*aiplatformpb.PredictResponse, error)
	Close() error
}

var _ Predictor = (*aiplatform.PredictionClient)(nil)

// Service generates text embeddings.
type Service struct {
	predictor  Predictor
	projectID  string
	location   string
	publisher  string
	model      string
	dimension  int
	logger     *slog.Logger
	clientOpts []option.ClientOption
}

// Option is a functional option for configuring [Service].
type Option func(*Service)

// WithLogger sets the logger for the [Service].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithModel sets the publisher and model name.
func WithModel(publisher, model string) Option {
	return func(s *Service) {
		if publisher != "" {
			s.publisher = publisher
		}
		if model != "" {
			s.model = model
		}
	}
}

// WithDimension sets the expected vector size.
func WithDimension(dim int) Option {
	return func(s *Service) {
		if dim > 0 {
			s.dimension = dim
		}
	}
}

// WithClientOptions passes options, such as the regional API endpoint, to the prediction client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Service) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithPredictor replaces the prediction transport.
func WithPredictor(p Predictor) Option {
	return func(s *Service) {
		s.predictor = p
	}
}

// NewService creates a new embedding [Service].
func NewService(ctx context.Context, projectID, location string, opts ...Option) (*Service, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}

	s := &Service{
		projectID: projectID,
		location:  location,
		publisher: DefaultPublisher,
		model:     DefaultModel,
		dimension: DefaultDimension,
		logger:    logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.predictor == nil {
		client, err := aiplatform.NewPredictionClient(ctx, s.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create prediction service client: %w", err)
		}
		s.predictor = client
	}

	s.logger.InfoContext(ctx, "Embedding service initialized successfully",
		slog.String("model", s.ModelName()),
		slog.Int("dimension", s.dimension),
	)

	return s, nil
}

// Close closes the prediction client.
func (s *Service) Close() error {
	if s.predictor == nil {
		return nil
	}
	if err := s.predictor.Close(); err != nil {
		return fmt.Errorf("failed to close prediction service client: %w", err)
	}
	return nil
}

// Dimension returns the vector size produced by the model.
func (s *Service) Dimension() int {
	return s.dimension
}

// ModelName returns the full resource name of the embedding model.
func (s *Service) ModelName() string {
	return fmt.Sprintf("projects/%s/locations/%s/publishers/%s/models/%s", s.projectID, s.location, s.publisher, s.model)
}

// GenerateEmbeddings returns one vector per sentence, in input order.
func (s *Service) GenerateEmbeddings(ctx context.Context, sentences []string) ([][]float32, error) {
	if len(sentences) == 0 {
		return nil, ErrEmptyInput
	}

	instances := make([]*structpb.Value, len(sentences))
	for i, sentence := range sentences {
		v, err := structpb.NewValue(map[string]any{
			"content": sentence,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build instance %d: %w", i, err)
		}
		instances[i] = v
	}

	parameters, err := structpb.NewValue(map[string]any{
		"temperature":     1,
		"maxOutputTokens": 256,
		"topP":            0,
		"topK":            1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build parameters: %w", err)
	}

	s.logger.InfoContext(ctx, "Generating embeddings",
		slog.String("model", s.ModelName()),
		slog.Int("sentences", len(sentences)),
	)

	resp, err := s.predictor.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   s.ModelName(),
		Instances:  instances,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to predict embeddings: %w", err)
	}

	predictions := resp.GetPredictions()
	if len(predictions) != len(sentences) {
		return nil, fmt.Errorf("%w: got %d predictions for %d sentences", ErrPredictionCount, len(predictions), len(sentences))
	}

	embeddings := make([][]float32, len(predictions))
	for i, prediction := range predictions {
		vec := decodePrediction(prediction)
		if len(vec) != s.dimension {
			return nil, fmt.Errorf("%w: prediction %d has %d values, want %d", ErrDimension, i, len(vec), s.dimension)
		}
		embeddings[i] = vec
	}

	s.logger.InfoContext(ctx, "Generated embeddings",
		slog.Int("count", len(embeddings)),
		slog.Int("dimension", s.dimension),
	)

	return embeddings, nil
}

// decodePrediction extracts embeddings.values from a text embedding prediction.
func decodePrediction(prediction *structpb.Value) []float32 {
	values := prediction.GetStructValue().GetFields()["embeddings"].
		GetStructValue().GetFields()["values"].
		GetListValue().GetValues()

	vec := make([]float32, len(values))
	for i, v := range values {
		vec[i] = float32(v.GetNumberValue())
	}
	return vec
}

// WriteToFile truncates path and writes one record per sentence and vector.
//
// A count mismatch is logged and returned as [record.ErrLengthMismatch]; the aligned prefix is
// still written.
func (s *Service) WriteToFile(ctx context.Context, path string, embeddings [][]float32, sentences []string) error {
	records, mismatch := record.New(sentences, embeddings)
	if mismatch != nil {
		s.logger.ErrorContext(ctx, "Sentences and embeddings are not aligned",
			slog.Int("sentences", len(sentences)),
			slog.Int("embeddings", len(embeddings)),
		)
	}

	if err := record.WriteFile(path, records); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write embeddings file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return errors.Join(mismatch, err)
	}

	s.logger.InfoContext(ctx, "Wrote embeddings file",
		slog.String("path", path),
		slog.Int("records", len(records)),
	)
	return mismatch
}
