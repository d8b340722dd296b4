package availability

import "time"

// IsAvailable reports whether now falls inside the working window of its weekday.
// Both window boundaries count as available.
func IsAvailable(cal Calendar, now time.Time) bool {
	local := now.In(cal.location())
	day := cal.Day(local.Weekday())
	if !day.Enabled {
		return false
	}
	tod := timeOfDay(local)
	return day.Start <= tod && tod <= day.End
}

// NextAvailable returns now when today's window has not ended yet, otherwise the start of
// the next enabled day. The bool is false only when the calendar has no enabled day.
func NextAvailable(cal Calendar, now time.Time) (time.Time, bool) {
	loc := cal.location()
	local := now.In(loc)
	year, month, date := local.Date()

	for offset := 0; offset <= 7; offset++ {
		midnight := time.Date(year, month, date+offset, 0, 0, 0, 0, loc)
		day := cal.Day(midnight.Weekday())
		if !day.Enabled {
			continue
		}
		if offset == 0 {
			if timeOfDay(local) <= day.End {
				return now, true
			}
			continue
		}
		start := int(day.Start)
		return time.Date(year, month, date+offset, start/3600, start%3600/60, start%60, 0, loc), true
	}
	return time.Time{}, false
}

// NextOpening is the next instant at which the window is open: now while open, otherwise
// the start of today's window if it is still ahead, otherwise NextAvailable's answer.
func NextOpening(cal Calendar, now time.Time) (time.Time, bool) {
	if IsAvailable(cal, now) {
		return now, true
	}
	local := now.In(cal.location())
	day := cal.Day(local.Weekday())
	if day.Enabled && timeOfDay(local) < day.Start {
		year, month, date := local.Date()
		start := int(day.Start)
		return time.Date(year, month, date, start/3600, start%3600/60, start%60, 0, cal.location()), true
	}
	return NextAvailable(cal, now)
}

// Checker binds a calendar to a clock.
type Checker struct {
	cal Calendar
	now func() time.Time
}

func NewChecker(cal Calendar, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{cal: cal, now: now}
}

func (c *Checker) Calendar() Calendar {
	return c.cal
}

func (c *Checker) Now() time.Time {
	return c.now()
}

func (c *Checker) IsAvailable() bool {
	return IsAvailable(c.cal, c.now())
}

func (c *Checker) NextAvailable() (time.Time, bool) {
	return NextAvailable(c.cal, c.now())
}

func (c *Checker) NextOpening() (time.Time, bool) {
	return NextOpening(c.cal, c.now())
}

// Location is the calendar's timezone.
func (c *Checker) Location() *time.Location {
	return c.cal.location()
}
