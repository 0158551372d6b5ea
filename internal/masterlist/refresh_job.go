package masterlist

import (
	"github.com/rs/zerolog"
)

// RefreshJob rebuilds the master map and parent grouping on a schedule.
type RefreshJob struct {
	builder *Builder
	log     zerolog.Logger
}

// NewRefreshJob creates the scheduled masterlist refresh job.
func NewRefreshJob(builder *Builder, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		builder: builder,
		log:     log.With().Str("component", "masterlist_refresh").Logger(),
	}
}

// Name implements the scheduler job interface.
func (j *RefreshJob) Name() string {
	return "masterlist_refresh"
}

// Run rebuilds both artifacts from a fresh directory sweep.
func (j *RefreshJob) Run() error {
	j.log.Info().Msg("Scheduled masterlist refresh starting")
	summary, err := j.builder.BuildAll(true)
	if err != nil {
		j.log.Error().Err(err).Msg("Scheduled masterlist refresh failed")
		return err
	}
	j.log.Info().
		Int("active", summary.Active).
		Int("parents", summary.Parents).
		Dur("elapsed", summary.Elapsed).
		Msg("Scheduled masterlist refresh complete")
	return nil
}
