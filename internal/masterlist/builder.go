package masterlist

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fundlens/internal/clientcache"
	"fundlens/internal/normalize"
	"fundlens/internal/provider"
)

const skippedSampleLimit = 10

// Builder sweeps the provider's scheme directory, filters it down to the
// active master map and assembles the parent grouping with representatives.
type Builder struct {
	provider        provider.Provider
	filter          *Filter
	selector        *Selector
	details         *clientcache.Cache
	quotes          *clientcache.Cache
	store           *Store
	workers         int
	checkpointEvery int
	log             zerolog.Logger
}

// NewBuilder creates a masterlist builder.
func NewBuilder(
	p provider.Provider,
	filter *Filter,
	selector *Selector,
	details, quotes *clientcache.Cache,
	store *Store,
	workers, checkpointEvery int,
	log zerolog.Logger,
) *Builder {
	if workers < 1 {
		workers = 1
	}
	if checkpointEvery < 1 {
		checkpointEvery = 200
	}
	return &Builder{
		provider:        p,
		filter:          filter,
		selector:        selector,
		details:         details,
		quotes:          quotes,
		store:           store,
		workers:         workers,
		checkpointEvery: checkpointEvery,
		log:             log.With().Str("component", "masterlist_builder").Logger(),
	}
}

type classifyJob struct {
	code string
	name string
}

type classifyResult struct {
	Classification
	name string
}

// BuildMaster produces the normalized-name to code map of active schemes.
// Unless force is set, a persisted map younger than MasterTTL is reused.
// When directory enumeration fails, the previously persisted map (any age)
// is returned so downstream consumers keep working from the last good build.
func (b *Builder) BuildMaster(force bool) (map[string]string, error) {
	if !force {
		if master, ok := b.store.LoadMasterIfFresh(); ok {
			b.log.Info().Int("active", len(master)).Msg("Using cached master map")
			return master, nil
		}
	}

	if err := b.details.Load(); err != nil {
		b.log.Warn().Err(err).Msg("Details cache warm-up failed")
	}
	if err := b.quotes.Load(); err != nil {
		b.log.Warn().Err(err).Msg("Quotes cache warm-up failed")
	}

	directory, err := b.provider.ListCodes()
	if err != nil {
		if stale := b.store.LoadMaster(); stale != nil {
			b.log.Error().Err(err).Int("active", len(stale)).
				Msg("Directory enumeration failed, serving last persisted master map")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to enumerate scheme directory: %w", err)
	}

	b.log.Info().Int("codes", len(directory)).Int("workers", b.workers).Msg("Building master map")
	start := time.Now()

	jobs := make(chan classifyJob)
	results := make(chan classifyResult)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- classifyResult{
					Classification: b.filter.Classify(job.code),
					name:           job.name,
				}
			}
		}()
	}

	go func() {
		for code, name := range directory {
			jobs <- classifyJob{code: code, name: name}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	master := make(map[string]string)
	collisions := 0
	processed := 0
	var skippedSamples []string

	for res := range results {
		processed++
		if res.Active {
			key := normalize.Simple(res.name)
			if key != "" {
				if prev, exists := master[key]; exists && prev != res.Code {
					collisions++
					b.log.Warn().Str("key", key).Str("kept", res.Code).Str("dropped", prev).
						Msg("Master key collision")
				}
				master[key] = res.Code
			}
		} else if len(skippedSamples) < skippedSampleLimit {
			skippedSamples = append(skippedSamples, res.name)
		}

		if processed%b.checkpointEvery == 0 {
			b.checkpoint()
			b.log.Info().Int("processed", processed).Int("total", len(directory)).
				Int("active", len(master)).Msg("Master build progress")
		}
	}
	b.checkpoint()

	if len(skippedSamples) > 0 {
		b.log.Debug().Strs("samples", skippedSamples).Msg("Skipped scheme samples")
	}
	b.log.Info().
		Int("codes", len(directory)).
		Int("active", len(master)).
		Int("collisions", collisions).
		Dur("elapsed", time.Since(start)).
		Msg("Master map built")

	if err := b.store.SaveMaster(master, len(directory), collisions); err != nil {
		b.log.Error().Err(err).Msg("Failed to persist master map")
	}
	return master, nil
}

func (b *Builder) checkpoint() {
	if err := b.details.Checkpoint(); err != nil {
		b.log.Warn().Err(err).Msg("Details cache checkpoint failed")
	}
	if err := b.quotes.Checkpoint(); err != nil {
		b.log.Warn().Err(err).Msg("Quotes cache checkpoint failed")
	}
}

// BuildSummary reports the outcome of a full pipeline build.
type BuildSummary struct {
	TotalCodes int
	Active     int
	Parents    int
	Elapsed    time.Duration
}

// BuildAll runs the full pipeline: master map, parent grouping over the
// complete directory, then one representative per parent. Both artifacts
// are persisted on success.
func (b *Builder) BuildAll(force bool) (*BuildSummary, error) {
	start := time.Now()

	master, err := b.BuildMaster(force)
	if err != nil {
		return nil, err
	}

	directory, err := b.provider.ListCodes()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate scheme directory: %w", err)
	}

	groups := Group(directory)
	reps := make(map[string]*Representative, len(groups))
	for key, entries := range groups {
		rep := b.selector.Choose(entries)
		reps[key] = &rep
	}
	b.checkpoint()

	if err := b.store.SaveParents(groups, reps, len(directory)); err != nil {
		return nil, fmt.Errorf("failed to persist parent grouping: %w", err)
	}

	summary := &BuildSummary{
		TotalCodes: len(directory),
		Active:     len(master),
		Parents:    len(groups),
		Elapsed:    time.Since(start),
	}
	b.log.Info().
		Int("codes", summary.TotalCodes).
		Int("active", summary.Active).
		Int("parents", summary.Parents).
		Dur("elapsed", summary.Elapsed).
		Msg("Full masterlist build complete")
	return summary, nil
}
