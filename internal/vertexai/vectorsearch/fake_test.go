// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vectorsearch

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
)

// fakeVertex is an in-memory stand-in for the index, index endpoint and match services.
type fakeVertex struct {
	indexes   []*aiplatformpb.Index
	endpoints []*aiplatformpb.IndexEndpoint

	// datapoints is what a deployed index answers queries with.
	datapoints map[string][]float32

	// notReadyPolls is the number of GetIndexEndpoint calls answered without a public domain.
	notReadyPolls int

	indexCreates    int
	indexUpdates    int
	endpointCreates int
	deploys         int
	polls           int

	lastQuery *aiplatformpb.FindNeighborsRequest
	lastHost  string
}

func (f *fakeVertex) ListIndexes(context.Context, string) ([]*aiplatformpb.Index, error) {
	return f.indexes, nil
}

func (f *fakeVertex) CreateIndex(_ context.Context, parent string, index *aiplatformpb.Index) (*aiplatformpb.Index, error) {
	f.indexCreates++
	index.Name = fmt.Sprintf("%s/indexes/%d", parent, len(f.indexes)+1)
	f.indexes = append(f.indexes, index)
	return index, nil
}

func (f *fakeVertex) UpdateIndex(_ context.Context, index *aiplatformpb.Index) (*aiplatformpb.Index, error) {
	f.indexUpdates++
	return index, nil
}

func (f *fakeVertex) ListIndexEndpoints(context.Context, string) ([]*aiplatformpb.IndexEndpoint, error) {
	return f.endpoints, nil
}

func (f *fakeVertex) CreateIndexEndpoint(_ context.Context, parent string, endpoint *aiplatformpb.IndexEndpoint) (*aiplatformpb.IndexEndpoint, error) {
	f.endpointCreates++
	endpoint.Name = fmt.Sprintf("%s/indexEndpoints/%d", parent, len(f.endpoints)+1)
	f.endpoints = append(f.endpoints, endpoint)
	return endpoint, nil
}

func (f *fakeVertex) GetIndexEndpoint(_ context.Context, name string) (*aiplatformpb.IndexEndpoint, error) {
	f.polls++
	for _, ep := range f.endpoints {
		if ep.GetName() != name {
			continue
		}
		if f.polls <= f.notReadyPolls {
			return &aiplatformpb.IndexEndpoint{Name: ep.GetName(), DisplayName: ep.GetDisplayName()}, nil
		}
		if ep.PublicEndpointDomainName == "" && ep.GetPublicEndpointEnabled() {
			ep.PublicEndpointDomainName = "1234.europe-west3-5678.vdb.vertexai.goog"
		}
		return ep, nil
	}
	return nil, fmt.Errorf("index endpoint %q not found", name)
}

func (f *fakeVertex) DeployIndex(_ context.Context, endpoint string, deployed *aiplatformpb.DeployedIndex) (*aiplatformpb.DeployedIndex, error) {
	f.deploys++
	for _, ep := range f.endpoints {
		if ep.GetName() == endpoint {
			ep.DeployedIndexes = append(ep.DeployedIndexes, deployed)
			return deployed, nil
		}
	}
	return nil, fmt.Errorf("index endpoint %q not found", endpoint)
}

// FindNeighbors ranks datapoints by dot product, highest first.
func (f *fakeVertex) FindNeighbors(_ context.Context, host string, req *aiplatformpb.FindNeighborsRequest) (*aiplatformpb.FindNeighborsResponse, error) {
	f.lastQuery = req
	f.lastHost = host

	resp := &aiplatformpb.FindNeighborsResponse{}
	for _, q := range req.GetQueries() {
		type scored struct {
			id    string
			score float64
		}
		var all []scored
		for id, vec := range f.datapoints {
			all = append(all, scored{id: id, score: dot(q.GetDatapoint().GetFeatureVector(), vec)})
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].score != all[j].score {
				return all[i].score > all[j].score
			}
			return all[i].id < all[j].id
		})

		nn := &aiplatformpb.FindNeighborsResponse_NearestNeighbors{Id: q.GetDatapoint().GetDatapointId()}
		for _, sc := range all[:min(len(all), int(q.GetNeighborCount()))] {
			nn.Neighbors = append(nn.Neighbors, &aiplatformpb.FindNeighborsResponse_Neighbor{
				Datapoint: &aiplatformpb.IndexDatapoint{DatapointId: sc.id},
				Distance:  sc.score,
			})
		}
		resp.NearestNeighbors = append(resp.NearestNeighbors, nn)
	}
	return resp, nil
}

func (f *fakeVertex) Close() error { return nil }

func dot(a, b []float32) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		sum += float64(a[i]) * float64(b[i])
	}
	return math.Round(sum*1e6) / 1e6
}

func (f *fakeVertex) endpoint(displayName string) *aiplatformpb.IndexEndpoint {
	i := slices.IndexFunc(f.endpoints, func(ep *aiplatformpb.IndexEndpoint) bool {
		return ep.GetDisplayName() == displayName
	})
	if i < 0 {
		return nil
	}
	return f.endpoints[i]
}
