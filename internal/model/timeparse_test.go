package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstant(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "rfc3339 with offset",
			raw:  "2026-02-20T10:30:00+09:00",
			want: time.Date(2026, 2, 20, 10, 30, 0, 0, KST),
		},
		{
			name: "rfc3339 utc normalized to kst",
			raw:  "2026-02-20T01:30:00Z",
			want: time.Date(2026, 2, 20, 10, 30, 0, 0, KST),
		},
		{
			name: "naive datetime assumed kst",
			raw:  "2026-02-20 10:30:00",
			want: time.Date(2026, 2, 20, 10, 30, 0, 0, KST),
		},
		{
			name: "naive t-separated",
			raw:  "2026-02-20T10:30:00",
			want: time.Date(2026, 2, 20, 10, 30, 0, 0, KST),
		},
		{
			name: "date only is kst midnight",
			raw:  "2026-02-20",
			want: time.Date(2026, 2, 20, 0, 0, 0, 0, KST),
		},
		{
			name: "surrounding whitespace",
			raw:  "  2026-02-20  ",
			want: time.Date(2026, 2, 20, 0, 0, 0, 0, KST),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInstant(tt.raw)
			require.NotNil(t, got)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			_, offset := got.Zone()
			assert.Equal(t, 9*60*60, offset)
		})
	}
}

func TestParseInstantDegradesToNil(t *testing.T) {
	for _, raw := range []string{"", "   ", "언급 없음", "2026-13-45", "not a time"} {
		assert.Nil(t, ParseInstant(raw), "raw=%q", raw)
	}
}

func TestParseDate(t *testing.T) {
	got := ParseDate("2026-02-20")
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2026, 2, 20, 0, 0, 0, 0, KST)))
}

func TestParseDateStripsTimePart(t *testing.T) {
	got := ParseDate("2026-02-20T15:04:05+09:00")
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2026, 2, 20, 0, 0, 0, 0, KST)))
}

func TestParseDateDegradesToNil(t *testing.T) {
	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("02/20/2026"))
}
