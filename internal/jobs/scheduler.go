package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// AuditCleaner deletes audit entries older than the cutoff. A zero cutoff
// applies the configured retention.
type AuditCleaner interface {
	CleanupAudit(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	cron      *cron.Cron
	cleaner   AuditCleaner
	retention time.Duration
	log       zerolog.Logger
}

// NewScheduler returns a scheduler that runs the audit cleanup daily. With
// zero retention Start schedules nothing.
func NewScheduler(cleaner AuditCleaner, retention time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:      c,
		cleaner:   cleaner,
		retention: retention,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.cleaner == nil || s.retention <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc("0 30 3 * * *", s.cleanupAudit); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out with a job still running")
	}
}

func (s *Scheduler) cleanupAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.cleaner.CleanupAudit(ctx, time.Time{})
	if err != nil {
		s.log.Error().Err(err).Msg("audit cleanup failed")
		return
	}
	s.log.Info().Int64("deleted", n).Dur("retention", s.retention).Msg("audit cleanup finished")
}
