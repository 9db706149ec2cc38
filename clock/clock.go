package clock

import "time"

// Clock wraps time functions so "today" can be pinned in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reports the process wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed instant until Set is called.
type MockClock struct {
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	return m.now
}

func (m *MockClock) Set(t time.Time) {
	m.now = t
}

// Today truncates c.Now() to midnight UTC.
func Today(c Clock) time.Time {
	t := c.Now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
