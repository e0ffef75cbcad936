package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*60*60+30*60)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{name: "midnight", in: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), want: "2024-03-15"},
		{name: "end of day", in: time.Date(2024, 3, 15, 23, 59, 59, 999, time.UTC), want: "2024-03-15"},
		{name: "local calendar day", in: time.Date(2024, 3, 16, 1, 0, 0, 0, kolkata), want: "2024-03-16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DayOf(tt.in)
			assert.Equal(t, tt.want, got.Format(DayLayout))
			assert.Equal(t, time.UTC, got.Location())
			assert.Zero(t, got.Hour())
		})
	}
}

func TestDayRange(t *testing.T) {
	start, end := DayRange(time.Date(2024, 2, 29, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", FormatDay(d))

	for _, bad := range []string{"", "15-03-2024", "2024-13-01", "2024-03-15T10:00:00Z"} {
		_, err := ParseDay(bad)
		assert.Error(t, err, bad)
	}
}
