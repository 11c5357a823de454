package notify

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner with one-shot jobs.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
	}
}

// ScheduleAt registers job to run once at the given moment. Moments that are
// already past never fire.
func (s *Scheduler) ScheduleAt(at time.Time, job func()) cron.EntryID {
	return s.cron.Schedule(onceSchedule{at: at}, cron.FuncJob(job))
}

// Remove drops an entry; unknown ids are ignored by cron.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// onceSchedule yields a single activation time. After it passes, Next returns
// the zero time, which cron treats as "never".
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}
