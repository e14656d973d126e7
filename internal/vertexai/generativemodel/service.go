// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package generativemodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"google.golang.org/genai"

	"github.com/go-a2a/cms-search/pkg/logging"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-1.5-pro-001"

	// MaxOutputTokens caps the length of a generated answer.
	MaxOutputTokens = 256
)

const roleUser = "user"

// ErrEmptyPrompt is returned when the prompt is empty.
var ErrEmptyPrompt = errors.New("prompt is required")

// ContentGenerator is the subset of [genai.Models] used by [Service].
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ ContentGenerator = (*genai.Models)(nil)

// Service generates answers with a Gemini model.
type Service struct {
	models    ContentGenerator
	projectID string
	location  string
	model     string
	logger    *slog.Logger
}

// Option is a functional option for configuring [Service].
type Option func(*Service)

// WithLogger sets the logger for the [Service].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithModel sets the Gemini model name.
func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

// WithContentGenerator replaces the genai transport.
func WithContentGenerator(g ContentGenerator) Option {
	return func(s *Service) {
		s.models = g
	}
}

// NewService creates a new generative model [Service] on the Vertex AI backend.
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
		model:     DefaultModel,
		logger:    logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.models == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  projectID,
			Location: location,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		s.models = client.Models
	}

	s.logger.InfoContext(ctx, "Generative model service initialized successfully",
		slog.String("project_id", projectID),
		slog.String("location", location),
		slog.String("model", s.model),
	)

	return s, nil
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.model
}

// GenerateAnswer sends prompt as a single user message and returns the text parts of each candidate.
func (s *Service) GenerateAnswer(ctx context.Context, prompt string) ([][]string, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	contents := []*genai.Content{
		{
			Role:  roleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	s.logger.InfoContext(ctx, "Generating answer",
		slog.String("model", s.model),
		slog.Int("prompt_length", len(prompt)),
	)

	resp, err := s.models.GenerateContent(ctx, s.model, contents, GenerateConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		if out, err := sonic.MarshalString(resp); err == nil {
			s.logger.DebugContext(ctx, "response", slog.String("body", out))
		}
	}

	answers := CandidateTexts(resp)
	s.logger.InfoContext(ctx, "Generated answer",
		slog.Int("candidates", len(answers)),
	)

	return answers, nil
}

// GenerateConfig returns the generation settings used for every answer.
func GenerateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: MaxOutputTokens,
		SafetySettings: []*genai.SafetySetting{
			{
				Category:  genai.HarmCategoryDangerousContent,
				Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
			},
		},
	}
}

// CandidateTexts collects the text parts of every candidate in resp.
//
// Candidates without content yield an empty slice so indexes line up with resp.Candidates.
func CandidateTexts(resp *genai.GenerateContentResponse) [][]string {
	if resp == nil {
		return nil
	}

	answers := make([][]string, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		texts := []string{}
		if cand != nil && cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part != nil && part.Text != "" {
					texts = append(texts, part.Text)
				}
			}
		}
		answers = append(answers, texts)
	}
	return answers
}
