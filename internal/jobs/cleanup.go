package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haventalk/voice-ingest-go/internal/config"
	"github.com/haventalk/voice-ingest-go/internal/repository"
)

// CleanupJob periodically marks sessions as abandoned when their connection
// died without a clean close and no turns arrived for a while.
type CleanupJob struct {
	sessions repository.SessionRepository
	interval time.Duration
	staleAge time.Duration
	done     chan struct{}
}

func NewCleanupJob(sessions repository.SessionRepository) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		interval: config.CleanupJobInterval,
		staleAge: config.StaleSessionAge,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.runCleanup()
		}
	}
}

func (j *CleanupJob) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-j.staleAge)
	count, err := j.sessions.MarkStaleAbandoned(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark stale sessions")
		return
	}

	if count > 0 {
		log.Info().
			Int64("count", count).
			Msg("stale sessions marked abandoned")
	}
}
