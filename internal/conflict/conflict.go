// Package conflict implements the conflict resolver: a pure function
// of priority hint, fatigue level, source, and final score that
// defers collisions between important traffic and fatigue rather than
// dropping them (§4.8).
package conflict

import (
	"time"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

const shortDefer = 15 * time.Minute

// noisySources are the static set of sources whose HIGH-priority
// traffic is deferred, not dropped, once fatigue reaches HIGH.
var noisySources = map[string]bool{
	"marketing-svc":    true,
	"promo-service":    true,
	"analytics-alerts": true,
	"noisy-svc":        true,
	"bulk-sender":      true,
}

// Result is the outcome of Resolve.
type Result struct {
	Resolved   bool
	Decision   domain.DecisionKind
	Reason     string
	ScheduleAt *time.Time
}

// Resolve applies the four ordered conflict rules (first match wins).
// If none match, Resolved is false and the decision boundary applies.
func Resolve(priorityHint domain.PriorityHint, fatigueLevel domain.FatigueLevel, source string, finalScore int, now time.Time) Result {
	scheduleAt := now.Add(shortDefer)

	if priorityHint == domain.PriorityHigh && fatigueLevel == domain.FatigueMaxed {
		return Result{
			Resolved:   true,
			Decision:   domain.DecisionLater,
			Reason:     "conflict: HIGH priority collided with MAXED fatigue, deferred",
			ScheduleAt: &scheduleAt,
		}
	}

	if priorityHint == domain.PriorityHigh && fatigueLevel == domain.FatigueHigh && noisySources[source] {
		return Result{
			Resolved:   true,
			Decision:   domain.DecisionLater,
			Reason:     "conflict: HIGH priority from noisy source " + source + " collided with HIGH fatigue, deferred",
			ScheduleAt: &scheduleAt,
		}
	}

	if priorityHint == domain.PriorityMedium && fatigueLevel == domain.FatigueMaxed {
		return Result{
			Resolved: true,
			Decision: domain.DecisionNever,
			Reason:   "conflict: MEDIUM priority collided with MAXED fatigue, suppressed",
		}
	}

	if priorityHint == domain.PriorityLow && finalScore >= 60 && fatigueLevel == domain.FatigueMaxed {
		return Result{
			Resolved:   true,
			Decision:   domain.DecisionLater,
			Reason:     "conflict: LOW priority scored high under MAXED fatigue, deferred",
			ScheduleAt: &scheduleAt,
		}
	}

	return Result{Resolved: false}
}
