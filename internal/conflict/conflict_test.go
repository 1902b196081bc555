package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestResolve_HighMaxedFatigue(t *testing.T) {
	result := Resolve(domain.PriorityHigh, domain.FatigueMaxed, "svc-a", 80, now)
	assert.True(t, result.Resolved)
	assert.Equal(t, domain.DecisionLater, result.Decision)
	expected := now.Add(15 * time.Minute)
	assert.Equal(t, expected, *result.ScheduleAt)
}

func TestResolve_HighHighFatigueNoisySource(t *testing.T) {
	result := Resolve(domain.PriorityHigh, domain.FatigueHigh, "marketing-svc", 80, now)
	assert.True(t, result.Resolved)
	assert.Equal(t, domain.DecisionLater, result.Decision)
}

func TestResolve_HighHighFatigueNonNoisySource(t *testing.T) {
	result := Resolve(domain.PriorityHigh, domain.FatigueHigh, "svc-a", 80, now)
	assert.False(t, result.Resolved)
}

func TestResolve_MediumMaxedFatigue(t *testing.T) {
	result := Resolve(domain.PriorityMedium, domain.FatigueMaxed, "svc-a", 40, now)
	assert.True(t, result.Resolved)
	assert.Equal(t, domain.DecisionNever, result.Decision)
	assert.Nil(t, result.ScheduleAt)
}

func TestResolve_LowHighScoreMaxedFatigue(t *testing.T) {
	result := Resolve(domain.PriorityLow, domain.FatigueMaxed, "svc-a", 65, now)
	assert.True(t, result.Resolved)
	assert.Equal(t, domain.DecisionLater, result.Decision)
}

func TestResolve_LowLowScoreMaxedFatigueDoesNotResolve(t *testing.T) {
	result := Resolve(domain.PriorityLow, domain.FatigueMaxed, "svc-a", 40, now)
	assert.False(t, result.Resolved)
}

func TestResolve_NoConflictLeavesUnresolved(t *testing.T) {
	result := Resolve(domain.PriorityMedium, domain.FatigueLow, "svc-a", 50, now)
	assert.False(t, result.Resolved)
}
