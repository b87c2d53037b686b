package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	DefaultJobTimeout     = 15 * time.Minute
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a job on a standard five-field cron spec. Runs never
// overlap: a tick that fires while the previous run is active is skipped.
type Scheduler struct {
	ctx     context.Context
	cron    *cron.Cron
	spec    string
	job     Job
	timeout time.Duration
	log     *slog.Logger
}

func New(ctx context.Context, spec string, job Job, log *slog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		ctx:     ctx,
		cron:    c,
		spec:    spec,
		job:     job,
		timeout: DefaultJobTimeout,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return fmt.Errorf("add cron func (spec = %s): %w", s.spec, err)
	}

	s.cron.Start()

	return nil
}

// Stop stops the cron and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next reports when the job fires next, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Next
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	start := time.Now()

	if err := s.job(ctx); err != nil {
		s.log.ErrorContext(ctx, "Scheduled run failed",
			"error", err,
			"spec", s.spec,
			"elapsedSeconds", time.Since(start).Seconds())

		return
	}

	s.log.InfoContext(ctx, "Scheduled run is done",
		"spec", s.spec,
		"elapsedSeconds", time.Since(start).Seconds(),
		"next", s.Next())
}
