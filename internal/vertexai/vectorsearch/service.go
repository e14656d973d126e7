// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vectorsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/bytedance/sonic"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"

	"github.com/go-a2a/cms-search/internal/provision"
	"github.com/go-a2a/cms-search/pkg/logging"
)

const (
	// DefaultNeighborCount is the number of neighbors requested by [Service.FindNeighbors].
	DefaultNeighborCount = 3

	// DefaultReadyTimeout bounds how long [Service.DeployIndex] waits for the endpoint.
	DefaultReadyTimeout = 2 * time.Minute

	// DefaultPollInterval is the delay between endpoint readiness checks.
	DefaultPollInterval = 2 * time.Second
)

var (
	// ErrNotFound is returned when a resource looked up by name does not exist.
	ErrNotFound = provision.ErrNotFound

	// ErrEndpointNotReady is returned when an index endpoint does not expose a public domain in time.
	ErrEndpointNotReady = errors.New("index endpoint is not ready")
)

// Neighbor is one result of a nearest-neighbor query.
type Neighbor struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// NeighborIDs returns the datapoint ids of neighbors, keeping their order.
func NeighborIDs(neighbors []Neighbor) []string {
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
	}
	return ids
}

// Service provisions and queries Vertex AI Vector Search resources of one project and location.
type Service struct {
	indexes   IndexAPI
	endpoints EndpointAPI
	matcher   MatchAPI

	projectID string
	location  string
	parent    string

	readyTimeout time.Duration
	pollInterval time.Duration
	resyncIndex  bool

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

// WithClientOptions passes options, such as the regional API endpoint, to the index and
// index endpoint clients. The match client receives them too, with its endpoint replaced by the
// public domain of the queried index endpoint.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(s *Service) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithReadiness sets the bound and the poll interval used while waiting for an index endpoint.
func WithReadiness(timeout, interval time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.readyTimeout = timeout
		}
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithIndexResync makes [Service.EnsureIndex] resubmit the metadata of an existing index, which
// asks Vector Search to ingest the contents of the bucket again.
func WithIndexResync(resync bool) Option {
	return func(s *Service) {
		s.resyncIndex = resync
	}
}

// WithAPIs replaces the remote transports. Nil arguments keep the default gRPC clients.
func WithAPIs(indexes IndexAPI, endpoints EndpointAPI, matcher MatchAPI) Option {
	return func(s *Service) {
		s.indexes = indexes
		s.endpoints = endpoints
		s.matcher = matcher
	}
}

// NewService creates a new Vector Search [Service].
func NewService(ctx context.Context, projectID, location string, opts ...Option) (*Service, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}

	s := &Service{
		projectID:    projectID,
		location:     location,
		parent:       fmt.Sprintf("projects/%s/locations/%s", projectID, location),
		readyTimeout: DefaultReadyTimeout,
		pollInterval: DefaultPollInterval,
		logger:       logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.indexes == nil {
		client, err := aiplatform.NewIndexClient(ctx, s.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create index service client: %w", err)
		}
		s.indexes = &indexAPI{client: client}
	}
	if s.endpoints == nil {
		client, err := aiplatform.NewIndexEndpointClient(ctx, s.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create index endpoint service client: %w", err)
		}
		s.endpoints = &endpointAPI{client: client}
	}
	if s.matcher == nil {
		s.matcher = newMatchAPI(s.clientOpts...)
	}

	s.logger.InfoContext(ctx, "Vector Search service initialized successfully",
		slog.String("project_id", projectID),
		slog.String("location", location),
	)

	return s, nil
}

// Close closes every underlying client.
func (s *Service) Close() error {
	var errs []error
	if err := s.indexes.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close index service client: %w", err))
	}
	if err := s.endpoints.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close index endpoint service client: %w", err))
	}
	if err := s.matcher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close match service clients: %w", err))
	}
	return errors.Join(errs...)
}

// Parent returns "projects/<project>/locations/<location>".
func (s *Service) Parent() string {
	return s.parent
}

// EnsureIndex returns the index displayed as name, creating it over the records in bucketName
// when absent.
//
// An existing index is returned untouched unless [WithIndexResync] is set.
func (s *Service) EnsureIndex(ctx context.Context, name, bucketName string, dimension int) (*aiplatformpb.Index, error) {
	metadata, err := IndexMetadata(bucketName, DefaultIndexConfig(dimension))
	if err != nil {
		return nil, err
	}

	kind := provision.Kind[*aiplatformpb.Index]{
		Name: "index",
		List: func(ctx context.Context) ([]*aiplatformpb.Index, error) {
			return s.indexes.ListIndexes(ctx, s.parent)
		},
		Key: (*aiplatformpb.Index).GetDisplayName,
		Create: func(ctx context.Context) (*aiplatformpb.Index, error) {
			return s.indexes.CreateIndex(ctx, s.parent, &aiplatformpb.Index{
				DisplayName: name,
				Metadata:    metadata,
			})
		},
		Reconcile: func(ctx context.Context, existing *aiplatformpb.Index) (*aiplatformpb.Index, error) {
			if !s.resyncIndex {
				s.logger.InfoContext(ctx, "Skipping update of existing index",
					slog.String("name", existing.GetName()),
				)
				return existing, nil
			}
			s.logger.InfoContext(ctx, "Resubmitting metadata of existing index",
				slog.String("name", existing.GetName()),
			)
			if _, err := s.indexes.UpdateIndex(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		},
	}

	index, state, err := provision.Ensure(logging.NewContext(ctx, s.logger), kind, name)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vector Search index ready",
		slog.String("name", index.GetName()),
		slog.String("display_name", name),
		slog.String("state", state.String()),
	)
	return index, nil
}

// endpointKind lists index endpoints by display name; create is nil for lookups only.
func (s *Service) endpointKind(create func(ctx context.Context) (*aiplatformpb.IndexEndpoint, error)) provision.Kind[*aiplatformpb.IndexEndpoint] {
	return provision.Kind[*aiplatformpb.IndexEndpoint]{
		Name: "index endpoint",
		List: func(ctx context.Context) ([]*aiplatformpb.IndexEndpoint, error) {
			return s.endpoints.ListIndexEndpoints(ctx, s.parent)
		},
		Key:    (*aiplatformpb.IndexEndpoint).GetDisplayName,
		Create: create,
	}
}

// GetIndexEndpoint returns the index endpoint displayed as name, or an error wrapping [ErrNotFound].
func (s *Service) GetIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error) {
	return provision.Find(ctx, s.endpointKind(nil), name)
}

// EnsureIndexEndpoint returns the index endpoint displayed as name, creating a public one when absent.
func (s *Service) EnsureIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error) {
	kind := s.endpointKind(func(ctx context.Context) (*aiplatformpb.IndexEndpoint, error) {
		return s.endpoints.CreateIndexEndpoint(ctx, s.parent, &aiplatformpb.IndexEndpoint{
			DisplayName:           name,
			PublicEndpointEnabled: true,
		})
	})

	endpoint, state, err := provision.Ensure(logging.NewContext(ctx, s.logger), kind, name)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Vector Search index endpoint ready",
		slog.String("name", endpoint.GetName()),
		slog.String("display_name", name),
		slog.String("state", state.String()),
	)
	return endpoint, nil
}

// DeployIndex deploys index on endpoint under the id derived from deployedName, unless a
// deployment with that id already exists.
//
// It first waits, bounded by [WithReadiness], for the endpoint to expose its public domain. The
// public domain and the deployed index id are returned in both cases.
func (s *Service) DeployIndex(ctx context.Context, deployedName string, index *aiplatformpb.Index, endpoint *aiplatformpb.IndexEndpoint) (publicDomain, deployedID string, err error) {
	deployedID = SanitizeDeployedIndexID(deployedName)

	current, err := s.waitEndpointReady(ctx, endpoint.GetName())
	if err != nil {
		return "", "", err
	}

	kind := provision.Kind[*aiplatformpb.DeployedIndex]{
		Name: "deployed index",
		List: func(context.Context) ([]*aiplatformpb.DeployedIndex, error) {
			return current.GetDeployedIndexes(), nil
		},
		Key: (*aiplatformpb.DeployedIndex).GetId,
		Create: func(ctx context.Context) (*aiplatformpb.DeployedIndex, error) {
			return s.endpoints.DeployIndex(ctx, current.GetName(), &aiplatformpb.DeployedIndex{
				Id:          deployedID,
				DisplayName: deployedName,
				Index:       index.GetName(),
			})
		},
	}

	_, state, err := provision.Ensure(logging.NewContext(ctx, s.logger), kind, deployedID)
	if err != nil {
		return "", "", err
	}

	publicDomain = current.GetPublicEndpointDomainName()
	s.logger.InfoContext(ctx, "Index deployed to endpoint",
		slog.String("deployed_index_id", deployedID),
		slog.String("index_endpoint", current.GetName()),
		slog.String("public_domain", publicDomain),
		slog.String("state", state.String()),
	)
	return publicDomain, deployedID, nil
}

// waitEndpointReady polls the endpoint until it reports a public domain name.
func (s *Service) waitEndpointReady(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error) {
	var ready *aiplatformpb.IndexEndpoint

	b := retry.WithMaxDuration(s.readyTimeout, retry.NewConstant(s.pollInterval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		endpoint, err := s.endpoints.GetIndexEndpoint(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to get index endpoint %q: %w", name, err)
		}
		if endpoint.GetPublicEndpointDomainName() == "" {
			s.logger.DebugContext(ctx, "Index endpoint not ready yet", slog.String("name", name))
			return retry.RetryableError(ErrEndpointNotReady)
		}
		ready = endpoint
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEndpointNotReady) {
			return nil, fmt.Errorf("%w: %s has no public domain after %s", ErrEndpointNotReady, name, s.readyTimeout)
		}
		return nil, err
	}
	return ready, nil
}

// FindNeighbors returns at most k neighbors of vector, nearest first, from the index deployed on
// endpoint as deployedName. k <= 0 means [DefaultNeighborCount].
//
// The deployment is looked up by its sanitized id; deployments whose id was chosen elsewhere are
// matched by display name.
func (s *Service) FindNeighbors(ctx context.Context, endpoint *aiplatformpb.IndexEndpoint, deployedName string, vector []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		k = DefaultNeighborCount
	}

	deployed := findDeployedIndex(endpoint, deployedName)
	if deployed == nil {
		return nil, fmt.Errorf("deployed index %q on %s: %w", deployedName, endpoint.GetName(), ErrNotFound)
	}

	domain := endpoint.GetPublicEndpointDomainName()
	if domain == "" {
		return nil, fmt.Errorf("%w: %s has no public domain", ErrEndpointNotReady, endpoint.GetName())
	}

	resp, err := s.matcher.FindNeighbors(ctx, domain, &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:   endpoint.GetName(),
		DeployedIndexId: deployed.GetId(),
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint: &aiplatformpb.IndexDatapoint{
					FeatureVector: vector,
				},
				NeighborCount: int32(k),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find neighbors: %w", err)
	}

	var neighbors []Neighbor
	if nn := resp.GetNearestNeighbors(); len(nn) > 0 {
		for _, n := range nn[0].GetNeighbors() {
			if len(neighbors) == k {
				break
			}
			neighbors = append(neighbors, Neighbor{
				ID:       n.GetDatapoint().GetDatapointId(),
				Distance: n.GetDistance(),
			})
		}
	}

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		out, _ := sonic.MarshalString(neighbors)
		s.logger.DebugContext(ctx, "Found nearest neighbors", slog.String("neighbors", out))
	}
	s.logger.InfoContext(ctx, "Found nearest neighbors",
		slog.String("deployed_index_id", deployed.GetId()),
		slog.Int("count", len(neighbors)),
	)

	return neighbors, nil
}

func findDeployedIndex(endpoint *aiplatformpb.IndexEndpoint, deployedName string) *aiplatformpb.DeployedIndex {
	id := SanitizeDeployedIndexID(deployedName)
	for _, di := range endpoint.GetDeployedIndexes() {
		if di.GetId() == id {
			return di
		}
	}
	for _, di := range endpoint.GetDeployedIndexes() {
		if di.GetDisplayName() == deployedName {
			return di
		}
	}
	return nil
}
