// Package scorer computes the composite base score and the final
// clamped score combining base, fatigue penalty, and AI adjustment
// (§4.5).
package scorer

import (
	"time"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

var priorityWeights = map[domain.PriorityHint]int{
	domain.PriorityCritical: 40,
	domain.PriorityHigh:     25,
	domain.PriorityMedium:   15,
	domain.PriorityLow:      5,
}

const defaultPriorityWeight = 10

var eventTypeWeights = map[string]int{
	"security_alert":   30,
	"direct_message":   25,
	"payment_alert":    28,
	"reminder":         20,
	"system_alert":     18,
	"system_update":    10,
	"promotion":        5,
	"low_value_promo":  2,
	"digest":           3,
}

const defaultEventTypeWeight = 5

var channelWeights = map[domain.Channel]int{
	domain.ChannelSMS:   10,
	domain.ChannelPush:  8,
	domain.ChannelEmail: 5,
	domain.ChannelInApp: 3,
}

const defaultChannelWeight = 3

const maxBaseScore = 75

// ComputeBase returns the event's base score in [0, 75] (§4.5).
func ComputeBase(event *domain.Event, now time.Time) int {
	base := priorityWeight(event.PriorityHint) +
		eventTypeWeight(event.EventType) +
		channelWeight(event.Channel) +
		freshness(event.Timestamp, now)

	if base > maxBaseScore {
		return maxBaseScore
	}
	if base < 0 {
		return 0
	}
	return base
}

func priorityWeight(p domain.PriorityHint) int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return defaultPriorityWeight
}

func eventTypeWeight(eventType string) int {
	if w, ok := eventTypeWeights[eventType]; ok {
		return w
	}
	return defaultEventTypeWeight
}

func channelWeight(channel domain.Channel) int {
	if w, ok := channelWeights[channel]; ok {
		return w
	}
	return defaultChannelWeight
}

// freshness scores by age in minutes; a missing timestamp scores 5.
func freshness(timestamp *time.Time, now time.Time) int {
	if timestamp == nil {
		return 5
	}

	ageMinutes := now.Sub(*timestamp).Minutes()
	switch {
	case ageMinutes < 1:
		return 10
	case ageMinutes < 5:
		return 8
	case ageMinutes < 15:
		return 5
	case ageMinutes < 60:
		return 2
	default:
		return 0
	}
}

// FinalScore clamps base - fatiguePenalty + aiAdjustment to [0, 100].
func FinalScore(base, fatiguePenalty, aiAdjustment int) int {
	final := base - fatiguePenalty + aiAdjustment
	if final < 0 {
		return 0
	}
	if final > 100 {
		return 100
	}
	return final
}
