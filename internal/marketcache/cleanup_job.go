package marketcache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired pool snapshots on a schedule.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new market cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "market_cache_cleanup").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *CleanupJob) Name() string {
	return "market_cache_cleanup"
}

// Run implements scheduler.Job.
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.repo.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.log.Info().Int64("removed", removed).Msg("Purged expired pool snapshots")
	}
	return nil
}
