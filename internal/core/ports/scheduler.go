package ports

import "time"

type SchedulerService interface {
	Start()
	Stop()
	// ScheduleEvery replaces any previous job with fn running every interval.
	// A run is skipped while the previous one is still executing.
	ScheduleEvery(interval time.Duration, fn func()) error
	Unschedule()
	IsScheduled() bool
}
