// Package retention runs named, delayed tasks. It is used to delete artifacts
// some time after they are created or first served.
package retention

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"slidepack/logger"
)

// State is the lifecycle position of a named task.
type State int

const (
	StateScheduled State = iota
	StateRunning
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Task is a snapshot of a scheduled task.
type Task struct {
	Name  string
	Due   time.Time
	State State
}

type task struct {
	name     string
	due      time.Time
	state    State
	timer    Timer
	finished time.Time
}

// Scheduler runs at most one pending task per name. Scheduling a name again
// replaces the pending task.
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool
	running sync.WaitGroup
}

// NewScheduler returns a scheduler driven by clock; nil means the real clock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock
	}
	return &Scheduler{
		clock: clock,
		tasks: make(map[string]*task),
	}
}

// Schedule runs fn after delay under name. A task already pending under the
// same name is stopped and replaced. Errors from fn are logged.
func (s *Scheduler) Schedule(name string, delay time.Duration, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		logger.Warnf("Scheduler stopped, dropping task %s", name)
		return
	}
	if prev, ok := s.tasks[name]; ok && prev.state == StateScheduled {
		prev.timer.Stop()
		prev.state = StateCancelled
	}

	t := &task{name: name, due: s.clock.Now().Add(delay), state: StateScheduled}
	s.tasks[name] = t
	t.timer = s.clock.AfterFunc(delay, func() { s.run(t, fn) })
	logger.Debugf("Scheduled %s in %v", name, delay)
}

func (s *Scheduler) run(t *task, fn func() error) {
	s.mu.Lock()
	if s.stopped || t.state != StateScheduled || s.tasks[t.name] != t {
		s.mu.Unlock()
		return
	}
	t.state = StateRunning
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	err := fn()

	s.mu.Lock()
	defer s.mu.Unlock()
	t.finished = s.clock.Now()
	if err != nil {
		t.state = StateFailed
		logger.Errorf("Scheduled task %s failed: %v", t.name, err)
		return
	}
	t.state = StateDone
	logger.Debugf("Scheduled task %s done", t.name)
}

// Cancel stops the pending task under name. It reports false when nothing
// was pending.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok || t.state != StateScheduled {
		return false
	}
	t.timer.Stop()
	t.state = StateCancelled
	t.finished = s.clock.Now()
	return true
}

// State returns the state of the latest task registered under name.
func (s *Scheduler) State(name string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return 0, false
	}
	return t.state, true
}

// Pending returns the tasks that have not fired yet, soonest first.
func (s *Scheduler) Pending() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.state == StateScheduled {
			out = append(out, Task{Name: t.name, Due: t.due, State: t.state})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Due.Equal(out[j].Due) {
			return out[i].Name < out[j].Name
		}
		return out[i].Due.Before(out[j].Due)
	})
	return out
}

// Prune forgets finished tasks that ended more than age ago.
func (s *Scheduler) Prune(age time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock.Now().Add(-age)
	removed := 0
	for name, t := range s.tasks {
		switch t.state {
		case StateDone, StateFailed, StateCancelled:
			if t.finished.Before(cutoff) {
				delete(s.tasks, name)
				removed++
			}
		}
	}
	return removed
}

// Wait blocks until running tasks return.
func (s *Scheduler) Wait() {
	s.running.Wait()
}

// Stop cancels every pending task and waits for running ones.
// Later calls to Schedule are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancelled := 0
	for _, t := range s.tasks {
		if t.state == StateScheduled {
			t.timer.Stop()
			t.state = StateCancelled
			cancelled++
		}
	}
	s.mu.Unlock()

	if cancelled > 0 {
		logger.Infof("Cancelled %d scheduled tasks", cancelled)
	}
	s.running.Wait()
}
