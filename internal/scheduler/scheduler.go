package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/lmco/eurekastreams-sub009/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job queues one parameterless action on a cron schedule.
type Job struct {
	Spec   string
	Action string
}

type Scheduler struct {
	cron  *cron.Cron
	queue domain.TaskQueue
	log   *logrus.Entry
	jobs  map[string]cron.EntryID
}

func New(queue domain.TaskQueue, log logrus.FieldLogger) *Scheduler {
	entry := logging.Component(log, "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(entry))),
		),
		queue: queue,
		log:   entry,
		jobs:  make(map[string]cron.EntryID),
	}
}

// Add registers jobs. An empty spec disables the job.
func (s *Scheduler) Add(jobs ...Job) error {
	for _, job := range jobs {
		if job.Spec == "" {
			s.log.WithField("job", job.Action).Info("job disabled")
			continue
		}
		if _, exists := s.jobs[job.Action]; exists {
			return fmt.Errorf("job %s already scheduled", job.Action)
		}
		action := job.Action
		id, err := s.cron.AddFunc(job.Spec, func() { s.Trigger(context.Background(), action) })
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.Action, job.Spec, err)
		}
		s.jobs[job.Action] = id
	}
	return nil
}

// Trigger queues the job's action now, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, action string) error {
	err := s.queue.Enqueue(ctx, domain.UserActionRequest{ActionKey: action})
	metrics.RecordJobRun(action, err == nil)
	if err != nil {
		s.log.WithError(err).WithField("job", action).Warn("job not queued")
		return err
	}
	s.log.WithField("job", action).Info("job queued")
	return nil
}

// Next returns the next run time of every scheduled job. Times are zero until Start.
func (s *Scheduler) Next() map[string]time.Time {
	out := make(map[string]time.Time, len(s.jobs))
	for action, id := range s.jobs {
		out[action] = s.cron.Entry(id).Next
	}
	return out
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for action := range s.jobs {
		names = append(names, action)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop halts the schedule and waits for running job funcs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
