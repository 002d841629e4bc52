package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocation_Offsets(t *testing.T) {
	winter := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tz       string
		at       time.Time
		wantOff  int
		wantAbbr string
	}{
		{"vietnam", "ICT-7", winter, 7 * 3600, "ICT"},
		{"utc", "UTC0", summer, 0, "UTC"},
		{"west of utc", "EST5", winter, -5 * 3600, "EST"},
		{"quoted name", "<+07>-7", winter, 7 * 3600, "+07"},
		{"half hour", "IST-5:30", winter, 5*3600 + 1800, "IST"},
		{"cet winter", "CET-1CEST,M3.5.0,M10.5.0/3", winter, 3600, "CET"},
		{"cet summer", "CET-1CEST,M3.5.0,M10.5.0/3", summer, 2 * 3600, "CEST"},
		{"dst without rules", "EST5EDT", summer, -4 * 3600, "EDT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.tz)
			require.NoError(t, err)

			abbr, off := tt.at.In(loc).Zone()
			assert.Equal(t, tt.wantOff, off)
			assert.Equal(t, tt.wantAbbr, abbr)
			assert.Equal(t, tt.tz, loc.String())
		})
	}
}

func TestLoadLocation_Invalid(t *testing.T) {
	for _, tz := range []string{"", "X", "ICT", "ICT-99", "<ICT-7", "CET-1CEST,M13.5.0,M10.5.0", "CET-1CEST,M3.5.0", "No/Such_Zone"} {
		_, err := LoadLocation(tz)
		require.ErrorIs(t, err, ErrBadTimezone, tz)
	}
}

func TestParsePOSIX(t *testing.T) {
	std, off, err := parsePOSIX("PST8PDT,M3.2.0/2:00:00,M11.1.0/2:00:00")
	require.NoError(t, err)
	assert.Equal(t, "PST", std)
	assert.Equal(t, -8*3600, off)

	_, _, err = parsePOSIX("AAA1BBB,J60,300")
	require.NoError(t, err)

	_, _, err = parsePOSIX("AAA1BBB,J0,300")
	require.Error(t, err)
}
