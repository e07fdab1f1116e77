package domain

import "time"

// Window is an inclusive calendar-date range in YYYY-MM-DD form. An empty
// bound is open.
type Window struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// LastDays returns the window covering the n days up to and including now.
func LastDays(now time.Time, n int) Window {
	now = now.UTC()
	return Window{
		From: now.AddDate(0, 0, -n).Format(time.DateOnly),
		To:   now.Format(time.DateOnly),
	}
}

// Contains reports whether date falls inside the window. Dates compare
// lexically, which is chronological for YYYY-MM-DD.
func (w Window) Contains(date string) bool {
	if w.From != "" && date < w.From {
		return false
	}
	if w.To != "" && date > w.To {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (w Window) Unbounded() bool {
	return w.From == "" && w.To == ""
}

// Key identifies the window in cache keys.
func (w Window) Key() string {
	from, to := w.From, w.To
	if from == "" {
		from = "any"
	}
	if to == "" {
		to = "any"
	}
	return from + "_" + to
}

// Validate checks that both bounds, when set, are dates and in order.
func (w Window) Validate() error {
	for _, d := range []string{w.From, w.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return ErrInvalidDate
		}
	}
	if w.From != "" && w.To != "" && w.From > w.To {
		return ErrInvalidDate
	}
	return nil
}
