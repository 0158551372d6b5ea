// Package overview assembles the consumer-facing view of a parent product
// from the persisted masterlist and metrics artifacts.
package overview

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"fundlens/internal/masterlist"
	"fundlens/internal/metrics"
)

// ChildScheme is one plan-level scheme inside a parent, in API shape.
type ChildScheme struct {
	SchemeCode string `json:"scheme_code"`
	SchemeName string `json:"scheme_name"`
}

// Overview is everything known about a parent product.
type Overview struct {
	ParentKey      string                     `json:"parent_key"`
	Representative *masterlist.Representative `json:"representative"`
	Children       []ChildScheme              `json:"children"`
	Metrics        *metrics.Result            `json:"metrics"`
}

// Service answers parent lookups against the latest artifacts.
type Service struct {
	mlStore *masterlist.Store
	builder *metrics.ArtifactBuilder
	log     zerolog.Logger
}

// NewService creates an overview service.
func NewService(mlStore *masterlist.Store, builder *metrics.ArtifactBuilder, log zerolog.Logger) *Service {
	return &Service{
		mlStore: mlStore,
		builder: builder,
		log:     log.With().Str("component", "overview").Logger(),
	}
}

func normQuery(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Search returns up to limit parent keys containing the query as a
// substring, in lexical order. An empty query matches nothing.
func (s *Service) Search(query string, limit int) ([]string, error) {
	q := normQuery(query)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	parents, err := s.mlStore.LoadParents()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(parents.Parents))
	for k := range parents.Parents {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		if strings.Contains(k, q) {
			out = append(out, k)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Get builds the overview for a parent key. The key is matched exactly
// after normalization, falling back to the best substring hit. A key with
// no match returns (nil, nil).
func (s *Service) Get(parentKey string) (*Overview, error) {
	parents, err := s.mlStore.LoadParents()
	if err != nil {
		return nil, err
	}

	q := normQuery(parentKey)
	chosen := ""
	if _, ok := parents.Parents[q]; ok {
		chosen = q
	} else {
		hits, err := s.Search(parentKey, 1)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			chosen = hits[0]
		}
	}
	if chosen == "" {
		return nil, nil
	}

	out := &Overview{
		ParentKey:      chosen,
		Representative: parents.Reps[chosen],
	}
	for _, e := range parents.Parents[chosen] {
		out.Children = append(out.Children, ChildScheme{SchemeCode: e.Code, SchemeName: e.Name})
	}

	// metrics are best-effort: a missing artifact still yields an overview
	if pm, err := s.builder.LoadParentMetrics(); err == nil {
		if entry, ok := pm[chosen]; ok {
			out.Metrics = entry.Metrics
		}
	}

	return out, nil
}
