// Package jobs runs the portal's periodic background work.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/logging"
)

// DefaultSweepSpec runs the password sweep once an hour.
const DefaultSweepSpec = "@hourly"

// DefaultRunTimeout bounds a single scheduled sweep.
const DefaultRunTimeout = 10 * time.Minute

// Sweeper performs one password sweep.
type Sweeper interface {
	Run(ctx context.Context) (application.SweepReport, error)
}

// Scheduler triggers the password sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	logger  *slog.Logger
}

// ValidateSpec reports whether spec is a standard five-field cron expression
// or a descriptor such as @hourly or @every 30m.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("jobs: invalid cron spec %q: %w", spec, err)
	}
	return nil
}

// NewScheduler builds a scheduler for sweeper. An empty spec selects
// DefaultSweepSpec. Runs that would overlap a still running sweep are skipped.
func NewScheduler(sweeper Sweeper, spec string, location *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("jobs: sweeper is required")
	}
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobs")

	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		spec:    spec,
		timeout: DefaultRunTimeout,
		logger:  logger,
	}, nil
}

// Start registers the sweep and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runScheduled); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("password sweep scheduled", "spec", s.spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a sweep immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (application.SweepReport, error) {
	ctx = logging.With(ctx, s.logger, "trigger", "manual")
	return s.sweeper.Run(ctx)
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx = logging.With(ctx, s.logger, "trigger", "schedule")
	if _, err := s.sweeper.Run(ctx); err != nil {
		s.logger.Error("scheduled password sweep failed", "error", err)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
