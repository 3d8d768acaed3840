package pacing

import "time"

// Hold is an armed delay with a deadline. The zero value is disarmed.
//
// A Hold is checked on entry to each call instead of sleeping inside the
// call that armed it. Once armed it stays armed until its deadline passes;
// re-arming only ever extends the deadline.
type Hold struct {
	armed   bool
	readyAt time.Time
}

// Arm schedules the hold to release d after now.
func (h *Hold) Arm(now time.Time, d time.Duration) {
	if d <= 0 {
		return
	}
	at := now.Add(d)
	if h.armed && at.Before(h.readyAt) {
		return
	}
	h.armed = true
	h.readyAt = at
}

// Ready reports whether calls may proceed at now. A hold whose deadline has
// passed disarms itself.
func (h *Hold) Ready(now time.Time) bool {
	if !h.armed {
		return true
	}
	if now.Before(h.readyAt) {
		return false
	}
	h.armed = false
	return true
}

// Armed reports whether a delay is pending.
func (h *Hold) Armed() bool { return h.armed }

// Remaining returns how long until the hold releases, or 0 when disarmed.
func (h *Hold) Remaining(now time.Time) time.Duration {
	if !h.armed {
		return 0
	}
	if d := h.readyAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
