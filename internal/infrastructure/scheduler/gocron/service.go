package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
	job       *gocron.Job
	mu        *sync.Mutex
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc, nil, &sync.Mutex{}}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

// Stop waits for a running job to return.
func (s *service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil {
		s.scheduler.RemoveByReference(s.job)
		s.job = nil
	}
	s.scheduler.Stop()
}

// ScheduleEvery replaces the current job, if any. The first run happens one
// interval from now and a run is skipped while the previous one is going.
func (s *service) ScheduleEvery(interval time.Duration, fn func()) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval: %s", interval)
	}
	if fn == nil {
		return fmt.Errorf("missing job func")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil {
		s.scheduler.RemoveByReference(s.job)
		s.job = nil
	}

	job, err := s.scheduler.Every(interval).WaitForSchedule().SingletonMode().Do(fn)
	if err != nil {
		return err
	}
	s.job = job
	return nil
}

// Unschedule removes the current job without waiting for a run in progress.
func (s *service) Unschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil {
		return
	}
	s.scheduler.RemoveByReference(s.job)
	s.job = nil
}

func (s *service) IsScheduled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job != nil
}
