package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/config"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/logger"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/sequence"
)

// SequenceRunner is the part of *sequence.Scheduler driven by cron.
type SequenceRunner interface {
	RunDue(ctx context.Context, at time.Time) (sequence.RunReport, error)
	DetectInactivity(ctx context.Context, at time.Time) (sequence.InactivityReport, error)
}

// InitializeSequenceScheduler registers the due step run (SEQUENCE_CRON) and
// inactivity detection (LIFECYCLE_CRON). The caller starts and stops the cron.
// A job still running when its next tick fires is skipped.
func InitializeSequenceScheduler(cfg *config.Config, runner SequenceRunner, log *logger.Logger) (*cron.Cron, error) {
	log = log.With("service", "sequence-scheduler")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load APP_TIMEZONE: %w", err)
	}

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(cfg.SequenceCron, func() {
		report, err := runner.RunDue(context.Background(), time.Now())
		if err != nil {
			log.Error("sequence run failed", "error", err)
			return
		}
		log.Info("sequence run finished",
			"scanned", report.Scanned, "sent", report.Sent, "skipped", report.Skipped,
			"completed", report.Completed, "exited", report.Exited, "failed", report.Failed)
	}); err != nil {
		return nil, fmt.Errorf("SEQUENCE_CRON %q: %w", cfg.SequenceCron, err)
	}

	if _, err := c.AddFunc(cfg.LifecycleCron, func() {
		report, err := runner.DetectInactivity(context.Background(), time.Now())
		if err != nil {
			log.Error("inactivity detection failed", "error", err)
			return
		}
		log.Info("inactivity detection finished",
			"never_logged_in", report.NeverLoggedIn, "abandoned_learning", report.AbandonedLearning)
	}); err != nil {
		return nil, fmt.Errorf("LIFECYCLE_CRON %q: %w", cfg.LifecycleCron, err)
	}

	log.Info("sequence scheduler initialized", "sequence_cron", cfg.SequenceCron, "lifecycle_cron", cfg.LifecycleCron, "timezone", cfg.Timezone)
	return c, nil
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
