package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"fundlens/internal/artifacts"
	"fundlens/internal/masterlist"
)

// ParentEntry ties a parent product to its representative's metrics.
type ParentEntry struct {
	RepCode        string  `json:"rep_code"`
	RepName        string  `json:"rep_name"`
	RepReason      string  `json:"rep_reason"`
	RepReasonScore float64 `json:"rep_reason_score"`
	Metrics        *Result `json:"metrics"`
}

// ParentMetrics is the on-disk shape of the per-parent artifact: a plain
// parent_key → entry map, nothing else.
type ParentMetrics map[string]ParentEntry

// CodeMetrics is the on-disk shape of the per-code artifact: scheme_code →
// result-or-error-marker.
type CodeMetrics map[string]BatchEntry

// BuildSummary reports the outcome of one artifact build. It is returned
// to the caller and logged, never persisted alongside the artifact.
type BuildSummary struct {
	BuiltAt       time.Time `json:"built_at"`
	RiskFreeRate  float64   `json:"risk_free_rate"`
	Requested     int       `json:"requested"`
	Computed      int       `json:"computed"`
	FailedOrEmpty int       `json:"failed_or_empty"`
}

// UnmarshalJSON accepts both the result form and the error-marker form.
func (e *BatchEntry) UnmarshalJSON(data []byte) error {
	var marker struct {
		SchemeCode string `json:"scheme_code"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal(data, &marker); err != nil {
		return err
	}
	if marker.Error != "" {
		e.Code = marker.SchemeCode
		e.Err = fmt.Errorf("%s", marker.Error)
		return nil
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	e.Code = result.SchemeCode
	e.Result = &result
	return nil
}

// ArtifactBuilder turns masterlist artifacts into metrics artifacts.
type ArtifactBuilder struct {
	orch      *Orchestrator
	mlStore   *masterlist.Store
	artifacts *artifacts.Store
	log       zerolog.Logger
}

// NewArtifactBuilder creates a metrics artifact builder.
func NewArtifactBuilder(orch *Orchestrator, mlStore *masterlist.Store, a *artifacts.Store, log zerolog.Logger) *ArtifactBuilder {
	return &ArtifactBuilder{
		orch:      orch,
		mlStore:   mlStore,
		artifacts: a,
		log:       log.With().Str("component", "metrics_artifacts").Logger(),
	}
}

// BuildParentMetrics computes metrics for every parent's representative code
// and persists the per-parent artifact. Parents whose representative is null
// are skipped. A positive limit caps the run to the first parents in key
// order, for partial rebuilds.
func (b *ArtifactBuilder) BuildParentMetrics(limit int, riskFree float64) (ParentMetrics, BuildSummary, error) {
	parents, err := b.mlStore.LoadParents()
	if err != nil {
		return nil, BuildSummary{}, fmt.Errorf("parent grouping artifact required: %w", err)
	}

	keys := make([]string, 0, len(parents.Reps))
	for k := range parents.Reps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if limit > 0 && limit < len(keys) {
		keys = keys[:limit]
	}

	// dedupe representative codes shared across parents
	seen := make(map[string]struct{})
	var repCodes []string
	for _, pk := range keys {
		rep := parents.Reps[pk]
		if rep == nil || rep.IsZero() {
			continue
		}
		if _, ok := seen[rep.Code]; !ok {
			seen[rep.Code] = struct{}{}
			repCodes = append(repCodes, rep.Code)
		}
	}
	b.log.Info().Int("parents", len(keys)).Int("rep_codes", len(repCodes)).
		Msg("Building parent metrics")

	byCode := b.orch.RunBatch(repCodes, riskFree)

	out := make(ParentMetrics, len(keys))
	summary := BuildSummary{BuiltAt: time.Now().UTC(), RiskFreeRate: riskFree, Requested: len(keys)}
	for _, pk := range keys {
		rep := parents.Reps[pk]
		if rep == nil || rep.IsZero() {
			summary.FailedOrEmpty++
			continue
		}
		entry, ok := byCode[rep.Code]
		if !ok || entry.Err != nil {
			summary.FailedOrEmpty++
			continue
		}
		out[pk] = ParentEntry{
			RepCode:        rep.Code,
			RepName:        rep.Name,
			RepReason:      rep.Reason,
			RepReasonScore: rep.Score,
			Metrics:        entry.Result,
		}
	}
	summary.Computed = len(out)

	if err := b.artifacts.WriteJSON(artifacts.ParentMetricsFile, out); err != nil {
		return nil, BuildSummary{}, err
	}
	return out, summary, nil
}

// BuildAllSchemeMetrics computes metrics for every child code in the parent
// grouping and persists the per-code artifact.
func (b *ArtifactBuilder) BuildAllSchemeMetrics(limit int, riskFree float64) (CodeMetrics, BuildSummary, error) {
	parents, err := b.mlStore.LoadParents()
	if err != nil {
		return nil, BuildSummary{}, fmt.Errorf("parent grouping artifact required: %w", err)
	}

	seen := make(map[string]struct{})
	var codes []string
	for _, entries := range parents.Parents {
		for _, e := range entries {
			if _, ok := seen[e.Code]; !ok {
				seen[e.Code] = struct{}{}
				codes = append(codes, e.Code)
			}
		}
	}
	sort.Strings(codes)
	if limit > 0 && limit < len(codes) {
		codes = codes[:limit]
	}
	b.log.Info().Int("codes", len(codes)).Msg("Building all-scheme metrics")

	byCode := b.orch.RunBatch(codes, riskFree)

	summary := BuildSummary{BuiltAt: time.Now().UTC(), RiskFreeRate: riskFree, Requested: len(codes)}
	for _, entry := range byCode {
		if entry.Err != nil {
			summary.FailedOrEmpty++
		}
	}
	summary.Computed = len(byCode) - summary.FailedOrEmpty

	out := CodeMetrics(byCode)
	if err := b.artifacts.WriteJSON(artifacts.MetricsByCodeFile, out); err != nil {
		return nil, BuildSummary{}, err
	}
	return out, summary, nil
}

// LoadParentMetrics reads the persisted per-parent metrics artifact.
func (b *ArtifactBuilder) LoadParentMetrics() (ParentMetrics, error) {
	var out ParentMetrics
	if err := b.artifacts.ReadJSON(artifacts.ParentMetricsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadCodeMetrics reads the persisted per-code metrics artifact.
func (b *ArtifactBuilder) LoadCodeMetrics() (CodeMetrics, error) {
	var out CodeMetrics
	if err := b.artifacts.ReadJSON(artifacts.MetricsByCodeFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}
