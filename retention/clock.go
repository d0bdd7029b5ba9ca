package retention

import "time"

// Timer is a pending callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so schedules can be driven by hand in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock is backed by the time package.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
