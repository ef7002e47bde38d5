// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// RunObserver is told about every job run
type RunObserver func(job string, duration time.Duration, err error)

// ErrUnknownJob is returned by RunNow for unregistered names
var ErrUnknownJob = errors.New("unknown job")

// Scheduler wraps robfig/cron. Overlapping runs of the same job are skipped
// and each run gets its own timeout.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	timeout  time.Duration
	observer RunObserver

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	jobs    map[string]Job
	entries map[string]cron.EntryID
}

// Option configures the scheduler
type Option func(*Scheduler)

// WithJobTimeout bounds every job run
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithRunObserver sets a hook called after each run
func WithRunObserver(o RunObserver) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// New creates a stopped scheduler
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		logger:  logger,
		timeout: time.Minute,
		baseCtx: context.Background(),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register schedules job with a standard cron spec or descriptor such as
// "@every 1m". Names must be unique.
func (s *Scheduler) Register(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	id, err := s.cron.AddFunc(spec, func() { _ = s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", spec, job.Name(), err)
	}
	s.jobs[job.Name()] = job
	s.entries[job.Name()] = id
	s.logger.Info("Scheduled job registered", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// Start begins firing schedules. Runs inherit values from ctx and are
// cancelled when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops firing new runs and waits for running ones, or until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.cancelRuns()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
	s.cancelRuns()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) cancelRuns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunNow executes a registered job synchronously, outside its schedule
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(job)
}

// NextRun reports the next scheduled time of a job
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

func (s *Scheduler) run(job Job) error {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer(job.Name(), elapsed, err)
	}
	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", job.Name()),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return err
	}
	s.logger.Debug("Scheduled job finished", zap.String("job", job.Name()), zap.Duration("duration", elapsed))
	return nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
