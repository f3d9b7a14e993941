package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"personahub/api/internal/config"
	"personahub/api/internal/repository"
)

// Scheduler runs periodic maintenance: purging accounts that never
// verified their email within the grace window.
type Scheduler struct {
	cron     *cron.Cron
	accounts *repository.AccountRepository
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewScheduler(accounts *repository.AccountRepository, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		accounts: accounts,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeStaleRegistrations); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits up to five seconds for a running
// job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

// purgeStaleRegistrations removes accounts still pending verification
// after three verification-token lifetimes.
func (s *Scheduler) purgeStaleRegistrations() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-3 * s.cfg.Security.VerifyTokenTTL)
	purged, err := s.accounts.PurgeStalePendingVerify(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("purge stale registrations failed")
		return
	}
	if purged > 0 {
		s.log.Info().Int64("purged", purged).Msg("stale unverified accounts removed")
	}
}
