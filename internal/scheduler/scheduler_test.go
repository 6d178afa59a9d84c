package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"5m", 5 * time.Minute, true},
		{"15m", 15 * time.Minute, true},
		{"1h", time.Hour, true},
		{"4H", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-1h", 0, false},
		{"10s", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntervalDuration(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNextTimesAlignsToCandleClose(t *testing.T) {
	s := &AlignedScheduler{Interval: 5 * time.Minute, Offset: 5 * time.Second}
	now := time.Date(2025, 6, 5, 12, 3, 20, 0, time.UTC)

	nextClose, wakeAt, untilClose, wait := s.nextTimes(now)

	assert.Equal(t, time.Date(2025, 6, 5, 12, 5, 0, 0, time.UTC), nextClose)
	assert.Equal(t, nextClose.Add(5*time.Second), wakeAt)
	assert.Equal(t, 100*time.Second, untilClose)
	assert.Equal(t, 105*time.Second, wait)
}

func TestNextTimesExactlyOnBoundary(t *testing.T) {
	s := &AlignedScheduler{Interval: time.Hour}
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

	nextClose, _, untilClose, _ := s.nextTimes(now)
	assert.Equal(t, time.Date(2025, 6, 5, 13, 0, 0, 0, time.UTC), nextClose)
	assert.Equal(t, time.Hour, untilClose)
}
