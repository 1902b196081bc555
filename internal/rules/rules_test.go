package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
)

func TestMatch_WildcardMatchesAny(t *testing.T) {
	event := &domain.Event{EventType: "promotion", Channel: domain.ChannelPush, Source: "marketing-svc", PriorityHint: domain.PriorityLow}
	ruleSet := []domain.Rule{
		{RuleID: "r1", Enabled: true, Condition: domain.RuleCondition{EventType: "promotion"}, Action: domain.ActionSuppress, Priority: 10},
		{RuleID: "r2", Enabled: true, Condition: domain.RuleCondition{EventType: "*", Source: "marketing-svc"}, Action: domain.ActionDefer, Priority: 5},
	}

	matched := Match(event, ruleSet)
	assert.Len(t, matched, 2)
	assert.Equal(t, "r1", matched[0].RuleID)
	assert.Equal(t, "r2", matched[1].RuleID)
}

func TestMatch_DisabledRulesExcluded(t *testing.T) {
	event := &domain.Event{EventType: "promotion"}
	ruleSet := []domain.Rule{
		{RuleID: "r1", Enabled: false, Condition: domain.RuleCondition{EventType: "promotion"}, Action: domain.ActionSuppress, Priority: 10},
	}

	assert.Empty(t, Match(event, ruleSet))
}

func TestMatch_NonMatchingFieldExcludes(t *testing.T) {
	event := &domain.Event{EventType: "promotion", Source: "svc-a"}
	ruleSet := []domain.Rule{
		{RuleID: "r1", Enabled: true, Condition: domain.RuleCondition{EventType: "promotion", Source: "svc-b"}, Action: domain.ActionSuppress, Priority: 10},
	}

	assert.Empty(t, Match(event, ruleSet))
}

func TestMatch_SortedByPriorityDescendingStableOnTies(t *testing.T) {
	event := &domain.Event{EventType: "promotion"}
	ruleSet := []domain.Rule{
		{RuleID: "low", Enabled: true, Condition: domain.RuleCondition{EventType: "promotion"}, Priority: 1},
		{RuleID: "high-a", Enabled: true, Condition: domain.RuleCondition{EventType: "promotion"}, Priority: 5},
		{RuleID: "high-b", Enabled: true, Condition: domain.RuleCondition{EventType: "promotion"}, Priority: 5},
	}

	matched := Match(event, ruleSet)
	assert.Equal(t, []string{"high-a", "high-b", "low"}, []string{matched[0].RuleID, matched[1].RuleID, matched[2].RuleID})
}

func TestFirstSuppress(t *testing.T) {
	matched := []domain.Rule{
		{RuleID: "r1", Action: domain.ActionDefer, Priority: 10},
		{RuleID: "r2", Action: domain.ActionSuppress, Priority: 5},
	}
	rule, found := FirstSuppress(matched)
	assert.True(t, found)
	assert.Equal(t, "r2", rule.RuleID)
}

func TestFirstSuppress_NoneFound(t *testing.T) {
	matched := []domain.Rule{
		{RuleID: "r1", Action: domain.ActionDefer, Priority: 10},
	}
	_, found := FirstSuppress(matched)
	assert.False(t, found)
}
