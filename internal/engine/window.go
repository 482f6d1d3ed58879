package engine

import (
	"fmt"
	"time"
)

// Window is a daily time range [Start, End) expressed as offsets from local midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow parses "HH:MM" bounds.
func ParseWindow(start, end string) (Window, error) {
	s, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	if e <= s {
		return Window{}, fmt.Errorf("window end %s not after start %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", v, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Contains reports whether t, read on its own wall clock, falls inside the window.
func (w Window) Contains(t time.Time) bool {
	h, m, s := t.Clock()
	off := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
	return off >= w.Start && off < w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d",
		int(w.Start.Hours()), int(w.Start.Minutes())%60,
		int(w.End.Hours()), int(w.End.Minutes())%60)
}
