// Package manualscheduler keeps scheduled tasks until they are explicitly
// run, for deployments that switch rounds by hand and for tests.
package manualscheduler

import (
	"sort"
	"sync"

	"github.com/mmna-launch/crowdsale/internal/core/ports"
)

type task struct {
	at int64
	fn func()
}

type Scheduler struct {
	lock  *sync.Mutex
	tasks []task
}

func NewScheduler() ports.SchedulerService {
	return New()
}

func New() *Scheduler {
	return &Scheduler{lock: &sync.Mutex{}}
}

func (s *Scheduler) Start() {}

func (s *Scheduler) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tasks = nil
}

func (s *Scheduler) ScheduleTaskOnce(at int64, fn func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tasks = append(s.tasks, task{at, fn})
	return nil
}

// Pending returns the execution times of the tasks not run yet.
func (s *Scheduler) Pending() []int64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	pending := make([]int64, 0, len(s.tasks))
	for _, t := range s.tasks {
		pending = append(pending, t.at)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	return pending
}

// RunDue runs, in time order, every task scheduled at or before now and
// returns how many ran.
func (s *Scheduler) RunDue(now int64) int {
	s.lock.Lock()
	due := make([]task, 0)
	left := make([]task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.at <= now {
			due = append(due, t)
			continue
		}
		left = append(left, t)
	}
	s.tasks = left
	s.lock.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
	return len(due)
}
