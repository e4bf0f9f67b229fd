package ports

type SchedulerService interface {
	Start()
	Stop()

	// ScheduleTaskOnce runs task once at the given unix time, or as soon as
	// possible if it's already past.
	ScheduleTaskOnce(at int64, task func()) error
}
