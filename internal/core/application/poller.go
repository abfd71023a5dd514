package application

import (
	"sync"
	"time"

	"github.com/ArkLabsHQ/lnwatch/internal/core/ports"
)

// PollScheduler drives periodic ticks through a SchedulerService. With a nil
// scheduler the host is expected to call Session.Tick itself.
type PollScheduler struct {
	scheduler ports.SchedulerService
	interval  time.Duration
	tick      func()

	mu      sync.Mutex
	started bool
}

func NewPollScheduler(
	scheduler ports.SchedulerService, interval time.Duration, tick func(),
) *PollScheduler {
	return &PollScheduler{
		scheduler: scheduler,
		interval:  interval,
		tick:      tick,
	}
}

func (p *PollScheduler) Interval() time.Duration {
	return p.interval
}

// Start reschedules the job if the scheduler dropped it, for instance after
// being stopped by the host.
func (p *PollScheduler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning() {
		return nil
	}
	if p.scheduler != nil {
		if err := p.scheduler.ScheduleEvery(p.interval, p.tick); err != nil {
			return err
		}
		p.scheduler.Start()
	}
	p.started = true
	return nil
}

func (p *PollScheduler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if p.scheduler != nil {
		p.scheduler.Unschedule()
	}
	p.started = false
}

func (p *PollScheduler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning()
}

func (p *PollScheduler) isRunning() bool {
	if !p.started {
		return false
	}
	return p.scheduler == nil || p.scheduler.IsScheduled()
}
