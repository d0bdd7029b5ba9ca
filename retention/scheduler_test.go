package retention

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires timers synchronously from Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every timer that came due, in due order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

func TestScheduleRunsAfterDelay(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)

	ran := 0
	s.Schedule("a.zip", 5*time.Minute, func() error { ran++; return nil })

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 0, ran)
	state, ok := s.State("a.zip")
	require.True(t, ok)
	assert.Equal(t, StateScheduled, state)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, ran)
	state, _ = s.State("a.zip")
	assert.Equal(t, StateDone, state)
}

func TestRescheduleReplacesPendingTask(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)

	var calls []string
	s.Schedule("a.pdf", time.Hour, func() error { calls = append(calls, "unclaimed"); return nil })
	clock.Advance(10 * time.Minute)
	s.Schedule("a.pdf", 5*time.Minute, func() error { calls = append(calls, "served"); return nil })

	clock.Advance(5 * time.Minute)
	assert.Equal(t, []string{"served"}, calls)

	clock.Advance(2 * time.Hour)
	assert.Equal(t, []string{"served"}, calls, "replaced task must not fire")
}

func TestCancel(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)

	ran := false
	s.Schedule("b.zip", time.Minute, func() error { ran = true; return nil })
	assert.True(t, s.Cancel("b.zip"))
	assert.False(t, s.Cancel("b.zip"))
	assert.False(t, s.Cancel("unknown"))

	clock.Advance(time.Hour)
	assert.False(t, ran)
	state, _ := s.State("b.zip")
	assert.Equal(t, StateCancelled, state)
}

func TestFailedTaskIsRecorded(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)

	s.Schedule("c.pptx", time.Second, func() error { return errors.New("disk gone") })
	clock.Advance(time.Second)

	state, ok := s.State("c.pptx")
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)
}

func TestPendingIsSortedByDue(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)
	noop := func() error { return nil }

	s.Schedule("late", 3*time.Minute, noop)
	s.Schedule("early", time.Minute, noop)
	s.Schedule("gone", 2*time.Minute, noop)
	s.Cancel("gone")

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].Name)
	assert.Equal(t, "late", pending[1].Name)
	assert.Equal(t, clock.Now().Add(time.Minute), pending[0].Due)
}

func TestStopCancelsPendingAndIgnoresNewTasks(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)

	ran := 0
	s.Schedule("x", time.Minute, func() error { ran++; return nil })
	s.Stop()
	s.Schedule("y", time.Minute, func() error { ran++; return nil })

	clock.Advance(time.Hour)
	assert.Equal(t, 0, ran)
	assert.Empty(t, s.Pending())
	_, ok := s.State("y")
	assert.False(t, ok)
}

func TestPruneForgetsOldFinishedTasks(t *testing.T) {
	clock := newManualClock()
	s := NewScheduler(clock)
	noop := func() error { return nil }

	s.Schedule("old", time.Minute, noop)
	clock.Advance(time.Minute)
	s.Schedule("pending", 48*time.Hour, noop)
	clock.Advance(25 * time.Hour)

	assert.Equal(t, 1, s.Prune(24*time.Hour))
	_, ok := s.State("old")
	assert.False(t, ok)
	_, ok = s.State("pending")
	assert.True(t, ok)
}

func TestRealClockRunsTask(t *testing.T) {
	s := NewScheduler(nil)
	done := make(chan struct{})
	s.Schedule("real", 10*time.Millisecond, func() error { close(done); return nil })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	s.Wait()
	s.Stop()
}
