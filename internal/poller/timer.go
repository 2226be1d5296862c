package poller

import "time"

// TimerFlags control timer scheduling.
type TimerFlags uint8

const (
	// TimerRepeat re-arms the timer after each firing.
	TimerRepeat TimerFlags = 1 << iota

	// TimerRunNow makes the first firing happen on the next poll instead of
	// one interval after registration.
	TimerRunNow
)

// Timer is a callback registered with [Manager.AddTimer].
type Timer struct {
	interval time.Duration
	flags    TimerFlags
	next     time.Time
	fn       func()
	done     bool
}

// AddTimer registers fn to run on the polling goroutine after interval, and
// every interval after that when flags include [TimerRepeat].
//
// A late poll fires a timer once, never more: the next deadline is the
// previous one plus interval, or now plus interval when the poller has
// fallen more than a full interval behind.
func (m *Manager) AddTimer(interval time.Duration, flags TimerFlags, fn func()) *Timer {
	now := m.now()
	t := &Timer{
		interval: interval,
		flags:    flags,
		next:     now.Add(interval),
		fn:       fn,
	}
	if flags&TimerRunNow != 0 {
		t.next = now
	}
	m.timers = append(m.timers, t)
	return t
}

// expireTimers fires every due timer at most once.
func (m *Manager) expireTimers(now time.Time) {
	n := len(m.timers) // timers added by callbacks wait for the next poll
	expired := false
	for i := 0; i < n; i++ {
		t := m.timers[i]
		if now.Before(t.next) {
			continue
		}

		m.safeCall("timer", t.fn)

		if t.flags&TimerRepeat == 0 {
			t.done = true
			expired = true
			continue
		}
		if now.Sub(t.next) > t.interval {
			t.next = now.Add(t.interval)
		} else {
			t.next = t.next.Add(t.interval)
		}
	}

	if !expired {
		return
	}
	kept := make([]*Timer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.done {
			kept = append(kept, t)
		}
	}
	m.timers = kept
}

// untilNextTimer returns the time until the earliest timer deadline.
func (m *Manager) untilNextTimer(now time.Time) (time.Duration, bool) {
	var (
		soonest time.Duration
		found   bool
	)
	for _, t := range m.timers {
		d := t.next.Sub(now)
		if !found || d < soonest {
			soonest, found = d, true
		}
	}
	return soonest, found
}
