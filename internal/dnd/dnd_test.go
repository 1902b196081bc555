package dnd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
)

func testCfg() *config.DND {
	return &config.DND{DefaultStartHour: 23, DefaultEndHour: 8, DefaultTimezone: "UTC"}
}

func TestCheck_InsideWindowAfterMidnight(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	result := gate.Check(now)
	assert.True(t, result.InDND)
	assert.Equal(t, "23:00-08:00", result.Window)
}

func TestCheck_InsideWindowBeforeMidnight(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	assert.True(t, gate.Check(now).InDND)
}

func TestCheck_OutsideWindow(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	assert.False(t, gate.Check(now).InDND)
}

func TestNextBoundary_LaterToday(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	boundary := gate.NextBoundary(now)
	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), boundary)
	assert.True(t, boundary.After(now))
}

func TestNextBoundary_Tomorrow(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	boundary := gate.NextBoundary(now)
	assert.Equal(t, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC), boundary)
	assert.True(t, boundary.After(now))
}

func TestNextBoundary_AtExactEndHourRollsToTomorrow(t *testing.T) {
	gate := New(testCfg())
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	boundary := gate.NextBoundary(now)
	assert.Equal(t, time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC), boundary)
	assert.True(t, boundary.After(now))
}
