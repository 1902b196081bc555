// Package rules implements the hot-reloadable notification rule set:
// the in-memory matcher and the YAML-backed loader that refreshes it on
// a fixed interval (§4.3).
package rules

import (
	"sort"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

// Match returns the subset of rules whose condition matches the event,
// sorted by priority descending, stable on ties.
func Match(event *domain.Event, rules []domain.Rule) []domain.Rule {
	matched := make([]domain.Rule, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if conditionMatches(r.Condition, event) {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	return matched
}

func conditionMatches(cond domain.RuleCondition, event *domain.Event) bool {
	return fieldMatches(cond.EventType, event.EventType) &&
		fieldMatches(cond.Channel, string(event.Channel)) &&
		fieldMatches(cond.Source, event.Source) &&
		fieldMatches(cond.Priority, string(event.PriorityHint))
}

// fieldMatches treats an absent or "*" condition field as matching any
// value.
func fieldMatches(condValue, eventValue string) bool {
	if condValue == "" || condValue == "*" {
		return true
	}
	return condValue == eventValue
}

// TODO: DEFER/SEND_NOW/CAP actions are surfaced in rulesMatched for the
// audit trail but are not enforced as pipeline short-circuits; only
// SUPPRESS changes the decision today.

// FirstSuppress returns the highest-priority SUPPRESS rule in matched,
// if any. matched is expected to already be sorted by priority
// descending (the output of Match).
func FirstSuppress(matched []domain.Rule) (domain.Rule, bool) {
	for _, r := range matched {
		if r.Action == domain.ActionSuppress {
			return r, true
		}
	}
	return domain.Rule{}, false
}
