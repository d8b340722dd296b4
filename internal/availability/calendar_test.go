package availability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*3600), got)

	got, err = ParseTimeOfDay("17:45:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(17*3600+45*60+30), got)
	assert.Equal(t, "17:45:30", got.String())

	for _, bad := range []string{"", "9", "24:00", "12:60", "aa:bb"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCalendar(t *testing.T) {
	doc := []byte(`
timezone: Europe/Berlin
days:
  monday: {start: "08:30", end: "16:00", enabled: true}
  Tuesday: {start: "08:30:00", end: "16:00:00", enabled: true}
  sunday: {start: "10:00", end: "12:00", enabled: false}
`)
	cal, err := ParseCalendar(doc)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cal.Location.String())
	assert.True(t, cal.Day(time.Monday).Enabled)
	assert.Equal(t, TimeOfDay(8*3600+30*60), cal.Day(time.Tuesday).Start)
	assert.False(t, cal.Day(time.Sunday).Enabled)
	assert.False(t, cal.Day(time.Friday).Enabled)
}

func TestParseCalendar_Errors(t *testing.T) {
	_, err := ParseCalendar([]byte("timezone: Mars/Olympus"))
	assert.Error(t, err)

	_, err = ParseCalendar([]byte("days:\n  funday: {start: \"09:00\", end: \"10:00\", enabled: true}"))
	assert.Error(t, err)

	_, err = ParseCalendar([]byte("days:\n  monday: {start: \"18:00\", end: \"09:00\", enabled: true}"))
	assert.Error(t, err)
}

func TestLoadCalendar(t *testing.T) {
	cal, err := LoadCalendar("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, cal.Location.String())
	assert.False(t, cal.Day(time.Friday).Enabled)
	assert.True(t, cal.Day(time.Saturday).Enabled)

	path := filepath.Join(t.TempDir(), "hours.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\ndays:\n  monday: {start: \"09:00\", end: \"17:00\", enabled: true}\n"), 0o600))
	cal, err = LoadCalendar(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cal.Location.String())
	assert.True(t, cal.Day(time.Monday).Enabled)

	_, err = LoadCalendar(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
