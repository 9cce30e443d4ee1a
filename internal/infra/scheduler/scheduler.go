package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one background pass. It should return once ctx is done.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron specs ("@every 1m", "*/5 * * * *").
// A job that is still running when its next tick fires is skipped.
type Scheduler struct {
	cron       *cron.Cron
	runTimeout time.Duration
	log        *zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler builds a stopped scheduler. runTimeout bounds each run; it
// defaults to 30s.
func NewScheduler(runTimeout time.Duration, logger *zerolog.Logger) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = 30 * time.Second
	}
	l := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: &l}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runTimeout: runTimeout,
		log:        &l,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Add registers job under spec. It fails on a malformed spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		parent := s.ctx
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(parent, s.runTimeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		s.log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("scheduled job done")
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Start begins firing jobs. Jobs see a context cancelled by Stop or by parent.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(parent)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{ log *zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
