// Package dnd implements the do-not-disturb gate: whether "now" falls
// inside the default quiet window, and the next boundary at which a
// deferred notification should be released (§4.4).
package dnd

import (
	"fmt"
	"time"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
)

// Result is the outcome of a Gate check.
type Result struct {
	InDND  bool
	Window string
}

// Gate evaluates the do-not-disturb window against a clock.
type Gate struct {
	cfg *config.DND
}

// New builds a Gate from the configured default window.
func New(cfg *config.DND) *Gate {
	return &Gate{cfg: cfg}
}

// Check reports whether now falls in the default quiet window
// (23:00-08:00 local by default).
func (g *Gate) Check(now time.Time) Result {
	hour := now.Hour()
	inDND := inWindow(hour, g.cfg.DefaultStartHour, g.cfg.DefaultEndHour)
	window := windowLabel(g.cfg.DefaultStartHour, g.cfg.DefaultEndHour)
	return Result{InDND: inDND, Window: window}
}

// inWindow handles a window that wraps midnight (start > end).
func inWindow(hour, start, end int) bool {
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

func windowLabel(start, end int) string {
	return fmt.Sprintf("%02d:00-%02d:00", start, end)
}

// NextBoundary returns the next occurrence of the configured end hour
// strictly in the future: today if the current hour is before the end
// hour, tomorrow otherwise.
func (g *Gate) NextBoundary(now time.Time) time.Time {
	end := g.cfg.DefaultEndHour
	boundary := time.Date(now.Year(), now.Month(), now.Day(), end, 0, 0, 0, now.Location())
	if !boundary.After(now) {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}
