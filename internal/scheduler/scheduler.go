// Package scheduler runs the service's periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned by RunByName for a name nothing registered.
var ErrJobNotFound = errors.New("job not registered")

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

// NewScheduler bounds every run by timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		timeout: timeout,
	}
}

// Register schedules a job. Jobs without a schedule can still be run on demand.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] Registered as on-demand job (no schedule)", job.Name())
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("⏰ [%s] Starting scheduled run...", job.Name())
		if err := s.run(job); err != nil {
			log.Printf("❌ [%s] Run failed: %v", job.Name(), err)
		} else {
			log.Printf("✅ [%s] Run completed", job.Name())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}

	log.Printf("📅 [%s] Scheduled with cron: %s", job.Name(), schedule)
	return nil
}

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return job.Run(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 Scheduler started with %d job(s)", len(s.jobs))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 Scheduler stopped")
}

// RunByName runs a registered job immediately, bounded by the same timeout
// as scheduled runs.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] Running on demand...", name)
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("%w: %s", ErrJobNotFound, name)
}
