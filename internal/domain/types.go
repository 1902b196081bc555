// Package domain holds the core value types shared by every pipeline stage:
// the inbound Event, the outbound Decision, the AuditRecord written on every
// call, and the Rule shape consumed by the hot-reloadable matcher.
package domain

import "time"

// PriorityHint is the caller-declared urgency of a notification.
type PriorityHint string

const (
	PriorityCritical PriorityHint = "CRITICAL"
	PriorityHigh     PriorityHint = "HIGH"
	PriorityMedium   PriorityHint = "MEDIUM"
	PriorityLow      PriorityHint = "LOW"
)

// Channel is the delivery channel a notification would use.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "in-app"
)

// DecisionKind is the terminal classification emitted by Evaluate.
type DecisionKind string

const (
	DecisionNow   DecisionKind = "NOW"
	DecisionLater DecisionKind = "LATER"
	DecisionNever DecisionKind = "NEVER"
)

// Event is a single notification candidate submitted to the core.
type Event struct {
	UserID       string                 `json:"user_id" binding:"required"`
	EventType    string                 `json:"event_type" binding:"required"`
	Message      string                 `json:"message"`
	Source       string                 `json:"source"`
	PriorityHint PriorityHint           `json:"priority_hint"`
	Channel      Channel                `json:"channel"`
	Timestamp    *time.Time             `json:"timestamp,omitempty"`
	DedupeKey    string                 `json:"dedupe_key,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Normalize fills in the declared defaults (§3) for fields the caller left
// unset. It does not mutate the caller's map.
func (e *Event) Normalize(now time.Time) {
	if e.Source == "" {
		e.Source = "unknown"
	}
	if e.PriorityHint == "" {
		e.PriorityHint = PriorityMedium
	}
	if e.Channel == "" {
		e.Channel = ChannelPush
	}
	if e.Timestamp == nil {
		t := now
		e.Timestamp = &t
	}
}

// Decision is the caller-facing classification result (§3, §6).
type Decision struct {
	DecisionKind DecisionKind `json:"decision"`
	Score        int          `json:"score"`
	Reason       string       `json:"reason"`
	ScheduleAt   *time.Time   `json:"schedule_at,omitempty"`
	AuditID      string       `json:"audit_id"`
}

// AuditRecord is the append-only diagnostic record written once per
// Evaluate call (I2).
type AuditRecord struct {
	AuditID      string            `ch:"audit_id" json:"audit_id"`
	EventID      string            `ch:"event_id" json:"event_id"`
	UserID       string            `ch:"user_id" json:"user_id"`
	EventType    string            `ch:"event_type" json:"event_type"`
	Decision     string            `ch:"decision" json:"decision"`
	Score        int32             `ch:"score" json:"score"`
	Reason       string            `ch:"reason" json:"reason"`
	Stages       map[string]string `ch:"stages" json:"stages"`
	RulesMatched []string          `ch:"rules_matched" json:"rules_matched"`
	ScheduleAt   *time.Time        `ch:"schedule_at" json:"schedule_at,omitempty"`
	CreatedAt    time.Time         `ch:"created_at" json:"created_at"`
}

// RuleAction is the effect a matched Rule has on the pipeline.
type RuleAction string

const (
	ActionDefer     RuleAction = "DEFER"
	ActionSuppress  RuleAction = "SUPPRESS"
	ActionSendNow   RuleAction = "SEND_NOW"
	ActionCap       RuleAction = "CAP"
)

// RuleCondition is a field-by-field match spec; an empty or "*" field
// matches any value (§3).
type RuleCondition struct {
	EventType string `yaml:"event_type,omitempty" json:"event_type,omitempty"`
	Channel   string `yaml:"channel,omitempty" json:"channel,omitempty"`
	Source    string `yaml:"source,omitempty" json:"source,omitempty"`
	Priority  string `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// RuleCap bounds a CAP action's allowance.
type RuleCap struct {
	Count  int    `yaml:"count" json:"count"`
	Window string `yaml:"window" json:"window"`
}

// Rule is one hot-reloadable matching rule (§3).
type Rule struct {
	RuleID    string        `yaml:"rule_id" json:"rule_id"`
	Condition RuleCondition `yaml:"condition" json:"condition"`
	Action    RuleAction    `yaml:"action" json:"action"`
	MaxPer    *RuleCap      `yaml:"max_per,omitempty" json:"max_per,omitempty"`
	Priority  int           `yaml:"priority" json:"priority"`
	Enabled   bool          `yaml:"enabled" json:"enabled"`
}

// FatigueLevel is the qualitative label derived from the fatigue penalty
// (§4.6); distinct from PriorityHint despite sharing the word "MEDIUM".
type FatigueLevel string

const (
	FatigueLow     FatigueLevel = "LOW"
	FatigueMedium  FatigueLevel = "MEDIUM"
	FatigueHigh    FatigueLevel = "HIGH"
	FatigueMaxed   FatigueLevel = "MAXED"
	FatigueUnknown FatigueLevel = "UNKNOWN"
)

// DuplicateKind distinguishes which dedup check matched.
type DuplicateKind string

const (
	DuplicateNone             DuplicateKind = ""
	DuplicateExactKey         DuplicateKind = "EXACT_KEY"
	DuplicateExactFingerprint DuplicateKind = "EXACT_FINGERPRINT"
	DuplicateNear             DuplicateKind = "NEAR_DUPLICATE"
	DuplicateProbeFailed      DuplicateKind = "PROBE_FAILED"
)
