// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vectorsearch

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
)

func newTestService(t *testing.T, fake *fakeVertex, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{
		WithAPIs(fake, fake, fake),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithReadiness(200*time.Millisecond, time.Millisecond),
	}, opts...)
	s, err := NewService(t.Context(), "test-project", "europe-west3", opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return s
}

func TestSanitizeDeployedIndexID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "publish-cms-search-index", want: "publish_cms_search_index"},
		{in: "already_clean", want: "already_clean"},
		{in: "--", want: "__"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := SanitizeDeployedIndexID(tt.in); got != tt.want {
			t.Errorf("SanitizeDeployedIndexID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIndexMetadata(t *testing.T) {
	got, err := IndexMetadata("cms-search", DefaultIndexConfig(768))
	if err != nil {
		t.Fatalf("IndexMetadata() error = %v", err)
	}

	want := map[string]any{
		"contentsDeltaUri": "gs://cms-search",
		"config": map[string]any{
			"dimensions":                768.0,
			"approximateNeighborsCount": 10.0,
			"distanceMeasureType":       "DOT_PRODUCT_DISTANCE",
			"algorithmConfig": map[string]any{
				"treeAhConfig": map[string]any{
					"leafNodeEmbeddingCount":   1000.0,
					"leafNodesToSearchPercent": 2.0,
				},
			},
		},
	}
	if diff := cmp.Diff(want, got.GetStructValue().AsMap()); diff != "" {
		t.Errorf("IndexMetadata() mismatch (-want +got):\n%s", diff)
	}

	if _, err := IndexMetadata("cms-search", DefaultIndexConfig(0)); err == nil {
		t.Error("IndexMetadata() with zero dimension: want error")
	}
}

func TestService_EnsureIndex(t *testing.T) {
	fake := &fakeVertex{
		indexes: []*aiplatformpb.Index{{Name: "projects/test-project/locations/europe-west3/indexes/other", DisplayName: "other"}},
	}
	s := newTestService(t, fake)

	first, err := s.EnsureIndex(t.Context(), "cms-search-index", "cms-search", 768)
	if err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	second, err := s.EnsureIndex(t.Context(), "cms-search-index", "cms-search", 768)
	if err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}

	if fake.indexCreates != 1 {
		t.Errorf("index creates = %d, want 1", fake.indexCreates)
	}
	if fake.indexUpdates != 0 {
		t.Errorf("index updates = %d, want 0 without resync", fake.indexUpdates)
	}
	if diff := cmp.Diff(first, second, protocmp.Transform()); diff != "" {
		t.Errorf("handles differ (-first +second):\n%s", diff)
	}
	if got := first.GetMetadata().GetStructValue().GetFields()["contentsDeltaUri"].GetStringValue(); got != "gs://cms-search" {
		t.Errorf("contentsDeltaUri = %q, want gs://cms-search", got)
	}
}

func TestService_EnsureIndex_Resync(t *testing.T) {
	fake := &fakeVertex{
		indexes: []*aiplatformpb.Index{{Name: "projects/test-project/locations/europe-west3/indexes/1", DisplayName: "cms-search-index"}},
	}
	s := newTestService(t, fake, WithIndexResync(true))

	index, err := s.EnsureIndex(t.Context(), "cms-search-index", "cms-search", 768)
	if err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if fake.indexCreates != 0 || fake.indexUpdates != 1 {
		t.Errorf("creates = %d, updates = %d; want 0, 1", fake.indexCreates, fake.indexUpdates)
	}
	if index.GetName() != "projects/test-project/locations/europe-west3/indexes/1" {
		t.Errorf("EnsureIndex() name = %q", index.GetName())
	}
}

func TestService_EnsureIndexEndpoint(t *testing.T) {
	fake := &fakeVertex{}
	s := newTestService(t, fake)

	for range 2 {
		ep, err := s.EnsureIndexEndpoint(t.Context(), "cms-search-index-ep")
		if err != nil {
			t.Fatalf("EnsureIndexEndpoint() error = %v", err)
		}
		if !ep.GetPublicEndpointEnabled() {
			t.Error("endpoint created without public access")
		}
	}
	if fake.endpointCreates != 1 {
		t.Errorf("endpoint creates = %d, want 1", fake.endpointCreates)
	}
}

func TestService_GetIndexEndpoint_NotFound(t *testing.T) {
	s := newTestService(t, &fakeVertex{})
	if _, err := s.GetIndexEndpoint(t.Context(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIndexEndpoint() error = %v, want %v", err, ErrNotFound)
	}
}

func provisioned(t *testing.T, fake *fakeVertex, s *Service) (*aiplatformpb.Index, *aiplatformpb.IndexEndpoint) {
	t.Helper()
	index, err := s.EnsureIndex(t.Context(), "cms-search-index", "cms-search", 3)
	if err != nil {
		t.Fatal(err)
	}
	endpoint, err := s.EnsureIndexEndpoint(t.Context(), "cms-search-index-ep")
	if err != nil {
		t.Fatal(err)
	}
	return index, endpoint
}

func TestService_DeployIndex(t *testing.T) {
	fake := &fakeVertex{notReadyPolls: 2}
	s := newTestService(t, fake)
	index, endpoint := provisioned(t, fake, s)

	domain, id, err := s.DeployIndex(t.Context(), "publish-cms-search-index", index, endpoint)
	if err != nil {
		t.Fatalf("DeployIndex() error = %v", err)
	}
	if id != "publish_cms_search_index" {
		t.Errorf("deployed id = %q, want publish_cms_search_index", id)
	}
	if domain == "" {
		t.Error("DeployIndex() returned an empty public domain")
	}
	if fake.polls < 3 {
		t.Errorf("polls = %d, want at least 3 (two not-ready answers)", fake.polls)
	}

	want := []*aiplatformpb.DeployedIndex{{
		Id:          "publish_cms_search_index",
		DisplayName: "publish-cms-search-index",
		Index:       index.GetName(),
	}}
	if diff := cmp.Diff(want, fake.endpoint("cms-search-index-ep").GetDeployedIndexes(), protocmp.Transform()); diff != "" {
		t.Errorf("deployed indexes mismatch (-want +got):\n%s", diff)
	}

	// Second deploy finds the existing deployment and still reports domain and id.
	domain2, id2, err := s.DeployIndex(t.Context(), "publish-cms-search-index", index, endpoint)
	if err != nil {
		t.Fatalf("DeployIndex() error = %v", err)
	}
	if fake.deploys != 1 {
		t.Errorf("deploys = %d, want 1", fake.deploys)
	}
	if domain2 != domain || id2 != id {
		t.Errorf("second DeployIndex() = (%q, %q), want (%q, %q)", domain2, id2, domain, id)
	}
}

func TestService_DeployIndex_NotReady(t *testing.T) {
	fake := &fakeVertex{notReadyPolls: 1 << 30}
	s := newTestService(t, fake, WithReadiness(20*time.Millisecond, 5*time.Millisecond))
	index, endpoint := provisioned(t, fake, s)

	if _, _, err := s.DeployIndex(t.Context(), "publish-cms-search-index", index, endpoint); !errors.Is(err, ErrEndpointNotReady) {
		t.Errorf("DeployIndex() error = %v, want %v", err, ErrEndpointNotReady)
	}
	if fake.deploys != 0 {
		t.Errorf("deploys = %d, want 0", fake.deploys)
	}
}

func TestService_FindNeighbors(t *testing.T) {
	fake := &fakeVertex{
		datapoints: map[string][]float32{
			"roof":  {1, 0, 0},
			"tom":   {0, 1, 0},
			"storm": {0, 0, 1},
			"fish":  {0, 0.5, 0.5},
		},
	}
	s := newTestService(t, fake)
	index, endpoint := provisioned(t, fake, s)
	if _, _, err := s.DeployIndex(t.Context(), "publish-cms-search-index", index, endpoint); err != nil {
		t.Fatal(err)
	}
	endpoint, err := s.GetIndexEndpoint(t.Context(), "cms-search-index-ep")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		vector []float32
		k      int
		want   []string
	}{
		{name: "top neighbor first", vector: []float32{0, 0.9, 0.1}, k: 3, want: []string{"tom", "fish", "storm"}},
		{name: "k bounds result", vector: []float32{1, 0, 0}, k: 1, want: []string{"roof"}},
		{name: "default k", vector: []float32{0, 0, 1}, k: 0, want: []string{"storm", "fish", "roof"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindNeighbors(t.Context(), endpoint, "publish-cms-search-index", tt.vector, tt.k)
			if err != nil {
				t.Fatalf("FindNeighbors() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, NeighborIDs(got)); diff != "" {
				t.Errorf("FindNeighbors() ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := fake.lastQuery.GetDeployedIndexId(); got != "publish_cms_search_index" {
		t.Errorf("query deployed index id = %q, want publish_cms_search_index", got)
	}
	if fake.lastHost != endpoint.GetPublicEndpointDomainName() {
		t.Errorf("query host = %q, want %q", fake.lastHost, endpoint.GetPublicEndpointDomainName())
	}
}

func TestService_FindNeighbors_Errors(t *testing.T) {
	s := newTestService(t, &fakeVertex{})

	tests := []struct {
		name     string
		endpoint *aiplatformpb.IndexEndpoint
		want     error
	}{
		{
			name:     "no deployment",
			endpoint: &aiplatformpb.IndexEndpoint{Name: "ep", PublicEndpointDomainName: "host"},
			want:     ErrNotFound,
		},
		{
			name: "no public domain",
			endpoint: &aiplatformpb.IndexEndpoint{
				Name:            "ep",
				DeployedIndexes: []*aiplatformpb.DeployedIndex{{Id: "publish_cms_search_index"}},
			},
			want: ErrEndpointNotReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.FindNeighbors(t.Context(), tt.endpoint, "publish-cms-search-index", []float32{1}, 3)
			if !errors.Is(err, tt.want) {
				t.Errorf("FindNeighbors() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFindDeployedIndex_DisplayNameFallback(t *testing.T) {
	endpoint := &aiplatformpb.IndexEndpoint{
		DeployedIndexes: []*aiplatformpb.DeployedIndex{
			{Id: "custom_id", DisplayName: "publish-cms-search-index"},
		},
	}
	got := findDeployedIndex(endpoint, "publish-cms-search-index")
	if got.GetId() != "custom_id" {
		t.Errorf("findDeployedIndex() = %v, want custom_id", got)
	}
}
