package availability

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultTimezone = "Africa/Cairo"

// TimeOfDay is a wall-clock time expressed in seconds since midnight.
type TimeOfDay int

func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("parse time of day %q: expected HH:MM or HH:MM:SS", value)
	}
	limits := []int{23, 59, 59}
	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", value, err)
		}
		if n < 0 || n > limits[i] {
			return 0, fmt.Errorf("parse time of day %q: out of range", value)
		}
		total = total*60 + n
	}
	if len(parts) == 2 {
		total *= 60
	}
	return TimeOfDay(total), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

func (t *TimeOfDay) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseTimeOfDay(node.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func timeOfDay(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

type Day struct {
	Start   TimeOfDay `yaml:"start"`
	End     TimeOfDay `yaml:"end"`
	Enabled bool      `yaml:"enabled"`
}

// Calendar is a weekly working-hours schedule pinned to one timezone.
type Calendar struct {
	Location *time.Location
	Days     [7]Day
}

func (c Calendar) Day(wd time.Weekday) Day {
	return c.Days[wd]
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// DefaultCalendar is Saturday through Thursday, 09:00-18:00 Cairo time.
func DefaultCalendar() (Calendar, error) {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %s: %w", DefaultTimezone, err)
	}
	cal := Calendar{Location: loc}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		cal.Days[wd] = Day{Start: 9 * 3600, End: 18 * 3600, Enabled: wd != time.Friday}
	}
	return cal, nil
}

type calendarFile struct {
	Timezone string         `yaml:"timezone"`
	Days     map[string]Day `yaml:"days"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseCalendar decodes a YAML calendar. Weekdays missing from the document are disabled.
func ParseCalendar(data []byte) (Calendar, error) {
	var file calendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Calendar{}, fmt.Errorf("decode calendar: %w", err)
	}
	tz := file.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Calendar{}, fmt.Errorf("load timezone %s: %w", tz, err)
	}

	cal := Calendar{Location: loc}
	for name, day := range file.Days {
		wd, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return Calendar{}, fmt.Errorf("decode calendar: unknown weekday %q", name)
		}
		if day.Enabled && day.End < day.Start {
			return Calendar{}, fmt.Errorf("decode calendar: %s ends before it starts", name)
		}
		cal.Days[wd] = day
	}
	return cal, nil
}

// LoadCalendar reads the calendar from path, or returns the default one when path is empty.
func LoadCalendar(path string) (Calendar, error) {
	if path == "" {
		return DefaultCalendar()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Calendar{}, fmt.Errorf("read calendar: %w", err)
	}
	return ParseCalendar(data)
}
