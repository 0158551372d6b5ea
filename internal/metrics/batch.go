package metrics

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fundlens/internal/clientcache"
	"fundlens/internal/navcache"
	"fundlens/internal/provider"
)

// BatchEntry is the per-code outcome of a batch run: either a computed
// result or an isolated failure.
type BatchEntry struct {
	Code   string
	Result *Result
	Err    error
}

// MarshalJSON renders a failed entry as a minimal error marker so one bad
// code never poisons the artifact.
func (e BatchEntry) MarshalJSON() ([]byte, error) {
	if e.Err != nil {
		return json.Marshal(map[string]string{
			"scheme_code": e.Code,
			"error":       e.Err.Error(),
		})
	}
	return json.Marshal(e.Result)
}

// Orchestrator computes metrics across many codes with a worker pool,
// pulling NAV history through the series cache and fee fields through the
// payload caches.
type Orchestrator struct {
	navs    *navcache.Store
	details *clientcache.Cache
	quotes  *clientcache.Cache
	prov    provider.Provider
	hub     *ProgressHub
	workers int
	log     zerolog.Logger
}

// NewOrchestrator creates a batch metrics orchestrator.
func NewOrchestrator(
	navs *navcache.Store,
	details, quotes *clientcache.Cache,
	p provider.Provider,
	hub *ProgressHub,
	workers int,
	log zerolog.Logger,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		navs:    navs,
		details: details,
		quotes:  quotes,
		prov:    p,
		hub:     hub,
		workers: workers,
		log:     log.With().Str("component", "metrics").Logger(),
	}
}

// ComputeForCode computes the full metric set for one scheme code, including
// the fee fields. A code with no usable NAV history still returns a Result;
// only infrastructure failures surface as errors.
func (o *Orchestrator) ComputeForCode(code string, riskFree float64) (*Result, error) {
	start := time.Now()

	series, err := o.navs.Get(code)
	if err != nil {
		return nil, fmt.Errorf("nav history for %s: %w", code, err)
	}

	result := Compute(code, series, riskFree)

	details, err := o.details.GetOrFetch(code, o.prov.GetDetails)
	if err != nil {
		o.log.Debug().Err(err).Str("code", code).Msg("Details fetch failed for fees")
	}
	quote, err := o.quotes.GetOrFetch(code, o.prov.GetQuote)
	if err != nil {
		o.log.Debug().Err(err).Str("code", code).Msg("Quote fetch failed for fees")
	}
	fees := ExtractFees(details, quote)
	result.ExpenseRatioPercent = fees.ExpenseRatioPercent
	result.ExitLoadPercent = fees.ExitLoadPercent
	result.AUM = fees.AUM

	o.log.Debug().Str("code", code).Int("points", result.DataPoints).
		Dur("elapsed", time.Since(start)).Msg("Metrics computed")
	return result, nil
}

// RunBatch computes metrics for every code with the configured worker pool.
// Per-code failures become error entries; the returned map always covers
// every requested code.
func (o *Orchestrator) RunBatch(codes []string, riskFree float64) map[string]BatchEntry {
	results := make(map[string]BatchEntry, len(codes))
	total := len(codes)
	if total == 0 {
		return results
	}

	runID := uuid.NewString()
	start := time.Now()
	o.log.Info().Str("run_id", runID).Int("codes", total).Int("workers", o.workers).
		Msg("Metrics batch starting")

	jobs := make(chan string)
	done := make(chan BatchEntry)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				done <- o.computeEntry(code, riskFree)
			}
		}()
	}

	go func() {
		for _, code := range codes {
			jobs <- code
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	processed := 0
	for entry := range done {
		results[entry.Code] = entry
		processed++

		if processed%10 == 0 || processed == total {
			elapsed := time.Since(start).Seconds()
			avg := elapsed / float64(processed)
			eta := float64(total-processed) * avg
			pct := float64(processed) / float64(total) * 100

			o.log.Info().Int("processed", processed).Int("total", total).
				Float64("pct", pct).Float64("elapsed_s", elapsed).
				Float64("avg_s", avg).Float64("eta_s", eta).
				Msg("Metrics batch progress")
			if o.hub != nil {
				o.hub.Publish(ProgressEvent{
					RunID:      runID,
					Completed:  processed,
					Total:      total,
					Percent:    pct,
					ElapsedSec: elapsed,
					AvgSec:     avg,
					ETASec:     eta,
					Done:       processed == total,
				})
			}
		}
	}

	o.log.Info().Str("run_id", runID).Int("codes", total).
		Dur("elapsed", time.Since(start)).Msg("Metrics batch complete")
	return results
}

// computeEntry isolates one code's computation, converting panics into
// error entries so a single pathological payload cannot kill the batch.
func (o *Orchestrator) computeEntry(code string, riskFree float64) (entry BatchEntry) {
	entry.Code = code
	defer func() {
		if r := recover(); r != nil {
			entry.Result = nil
			entry.Err = fmt.Errorf("panic computing metrics for %s: %v", code, r)
			o.log.Error().Str("code", code).Interface("panic", r).Msg("Metrics worker panic")
		}
	}()

	result, err := o.ComputeForCode(code, riskFree)
	if err != nil {
		entry.Err = err
		return entry
	}
	entry.Result = result
	return entry
}
