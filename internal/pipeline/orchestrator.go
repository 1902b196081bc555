// Package pipeline implements the nine-stage notification evaluation
// core: the fixed-order fold over expiry, dedup, rules, DND, scoring,
// fatigue, AI enrichment, and conflict resolution, wrapped in a
// failsafe envelope that guarantees CRITICAL delivery on any internal
// fault (§4.1, §4.10).
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/ai"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/clock"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/conflict"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dedup"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dispatch"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dnd"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/domain"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/fatigue"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/rules"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/scorer"
)

// noisySources duplicated here would be wrong; conflict.Resolve owns
// that set.

// AuditSink persists an audit record without the pipeline waiting on
// the underlying store.
type AuditSink interface {
	WriteAudit(ctx context.Context, record *domain.AuditRecord)
}

// RulesSource exposes the current hot-reloaded rule snapshot.
type RulesSource interface {
	Snapshot() []domain.Rule
}

// Orchestrator wires every stage together and implements Evaluate.
type Orchestrator struct {
	clock      clock.Clock
	dedup      *dedup.Checker
	fatigue    *fatigue.Accountant
	rulesSrc   RulesSource
	dndGate    *dnd.Gate
	enricher   ai.Enricher
	audit      AuditSink
	dispatcher dispatch.Dispatcher
	log        *zap.Logger
}

// New builds an Orchestrator from its component dependencies.
func New(
	clk clock.Clock,
	dedupChecker *dedup.Checker,
	fatigueAccountant *fatigue.Accountant,
	rulesSrc RulesSource,
	dndGate *dnd.Gate,
	enricher ai.Enricher,
	auditSink AuditSink,
	dispatcher dispatch.Dispatcher,
	log *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		clock:      clk,
		dedup:      dedupChecker,
		fatigue:    fatigueAccountant,
		rulesSrc:   rulesSrc,
		dndGate:    dndGate,
		enricher:   enricher,
		audit:      auditSink,
		dispatcher: dispatcher,
		log:        log,
	}
}

// evalState accumulates the diagnostic trail written to the audit
// record as the stages run.
type evalState struct {
	event        *domain.Event
	stages       map[string]string
	rulesMatched []string
}

// Evaluate runs the nine-stage pipeline against event and returns
// exactly one Decision (I1). Any uncaught fault from stages 2-9 is
// caught by the failsafe envelope: a CRITICAL event is always returned
// as a synthetic NOW (I4); any other priority surfaces the fault to
// the caller.
func (o *Orchestrator) Evaluate(ctx context.Context, event *domain.Event) (domain.Decision, error) {
	now := o.clock.Now()
	event.Normalize(now)

	state := &evalState{event: event, stages: map[string]string{}}

	// Stage 1: Expiry Guard. Deliberately outside the failsafe
	// envelope: an expired event is not a fault, and §4.10 lists it
	// before the dedup guard regardless of priority.
	if event.ExpiresAt != nil && event.ExpiresAt.Before(now) {
		state.stages["expiry"] = "EXPIRED"
		return o.finalize(ctx, state, domain.Decision{
			DecisionKind: domain.DecisionNever,
			Score:        0,
			Reason:       "event expired before evaluation",
		}, now), nil
	}
	state.stages["expiry"] = "OK"

	decision, faultErr := o.runGuardedStages(ctx, state, now)
	if faultErr != nil {
		if event.PriorityHint == domain.PriorityCritical {
			o.log.Warn("pipeline fault on CRITICAL event, invoking failsafe", zap.Error(faultErr))
			state.stages["failsafe"] = "true"
			decision = domain.Decision{
				DecisionKind: domain.DecisionNow,
				Score:        90,
				Reason:       "FAILSAFE: pipeline error — CRITICAL sent NOW",
			}
			return o.finalize(ctx, state, decision, now), nil
		}
		return domain.Decision{}, faultErr
	}

	return o.finalize(ctx, state, decision, now), nil
}

// runGuardedStages executes stages 2-9. Any panic recovered here is
// converted into an error so Evaluate's failsafe envelope can act on
// it uniformly alongside ordinary errors.
func (o *Orchestrator) runGuardedStages(ctx context.Context, state *evalState, now time.Time) (decision domain.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	event := state.event

	// Stage 2: Dedup Guard. CRITICAL bypasses this stage entirely
	// (§9.4): a duplicate CRITICAL still sends.
	if event.PriorityHint == domain.PriorityCritical {
		state.stages["dedup"] = "BYPASSED (critical)"
	} else {
		dupResult := o.dedup.CheckDuplicate(ctx, event)
		if dupResult.IsDuplicate {
			state.stages["dedup"] = fmt.Sprintf("DUPLICATE type=%s", dupResult.Type)
			return domain.Decision{
				DecisionKind: domain.DecisionNever,
				Score:        0,
				Reason:       fmt.Sprintf("Duplicate of a prior notification (%s)", dupResult.Type),
			}, nil
		}
		state.stages["dedup"] = "OK"
	}

	// Stage 3: CRITICAL short-circuit.
	if event.PriorityHint == domain.PriorityCritical {
		state.stages["rules"] = "SKIPPED (critical short-circuit)"
		state.stages["dnd"] = "SKIPPED (critical short-circuit)"
		state.stages["scorer"] = "SKIPPED (critical short-circuit)"
		state.stages["fatigue"] = "SKIPPED (critical short-circuit)"
		state.stages["ai"] = "SKIPPED (critical short-circuit)"
		state.stages["conflict"] = "SKIPPED (critical short-circuit)"
		state.rulesMatched = []string{"critical-always-now"}

		decision := domain.Decision{
			DecisionKind: domain.DecisionNow,
			Score:        97,
			Reason:       "CRITICAL priority always sends now",
		}
		o.recordDelivery(ctx, event)
		state.stages["decision"] = "NOW"
		return decision, nil
	}

	// Stage 4: Rule match + SUPPRESS short-circuit.
	snapshot := o.rulesSrc.Snapshot()
	matched := rules.Match(event, snapshot)
	for _, r := range matched {
		state.rulesMatched = append(state.rulesMatched, r.RuleID)
	}
	if suppressRule, found := rules.FirstSuppress(matched); found {
		state.stages["rules"] = fmt.Sprintf("SUPPRESSED by %s", suppressRule.RuleID)
		return domain.Decision{
			DecisionKind: domain.DecisionNever,
			Score:        0,
			Reason:       fmt.Sprintf("suppressed by rule %s", suppressRule.RuleID),
		}, nil
	}
	state.stages["rules"] = fmt.Sprintf("matched=%d", len(matched))

	// Stage 5: DND gate.
	dndResult := o.dndGate.Check(now)
	if dndResult.InDND {
		scheduleAt := o.dndGate.NextBoundary(now)
		state.stages["dnd"] = fmt.Sprintf("IN_DND window=%s", dndResult.Window)
		decision := domain.Decision{
			DecisionKind: domain.DecisionLater,
			Score:        35,
			Reason:       fmt.Sprintf("do-not-disturb window %s in effect", dndResult.Window),
			ScheduleAt:   &scheduleAt,
		}
		o.recordDelivery(ctx, event)
		state.stages["decision"] = "LATER"
		return decision, nil
	}
	state.stages["dnd"] = "OUT_OF_DND"

	// Stage 6: Base score.
	base := scorer.ComputeBase(event, now)
	state.stages["scorer"] = fmt.Sprintf("base=%d", base)

	// Stage 7: Fatigue penalty.
	fatigueReading := o.fatigue.Check(ctx, event.UserID)
	state.stages["fatigue"] = fmt.Sprintf("count=%d penalty=%d level=%s", fatigueReading.Count, fatigueReading.Penalty, fatigueReading.Level)

	// Stage 8: AI adjustment.
	aiAdjustment := o.computeAiAdjustment(ctx, state, event)

	finalScore := scorer.FinalScore(base, fatigueReading.Penalty, aiAdjustment)

	// Stage 9: Conflict resolver.
	conflictResult := conflict.Resolve(event.PriorityHint, fatigueReading.Level, event.Source, finalScore, now)
	if conflictResult.Resolved {
		state.stages["conflict"] = conflictResult.Reason
		decision := domain.Decision{
			DecisionKind: conflictResult.Decision,
			Score:        finalScore,
			Reason:       conflictResult.Reason,
			ScheduleAt:   conflictResult.ScheduleAt,
		}
		if conflictResult.Decision != domain.DecisionNever {
			o.recordDelivery(ctx, event)
		}
		state.stages["decision"] = string(conflictResult.Decision)
		return decision, nil
	}
	state.stages["conflict"] = "no conflict"

	// Stage 10: Decision boundary.
	decision = o.applyBoundary(finalScore, event, now)
	state.stages["decision"] = string(decision.DecisionKind)
	if decision.DecisionKind != domain.DecisionNever {
		o.recordDelivery(ctx, event)
	}
	return decision, nil
}

func (o *Orchestrator) computeAiAdjustment(ctx context.Context, state *evalState, event *domain.Event) int {
	adjustment, err := o.enricher.GetAiScore(ctx, event)
	if err != nil {
		state.stages["ai"] = fmt.Sprintf("SKIPPED (%s)", err)
		return 0
	}
	state.stages["ai"] = fmt.Sprintf("adjustment=%d", adjustment)
	return adjustment
}

const (
	longDeferMin  = 120 // 2h in minutes
	longDeferMax  = 300 // 5h in minutes
	shortDeferMin = 15
	shortDeferMax = 45
)

var longDeferEventTypes = map[string]bool{
	"promotion":       true,
	"low_value_promo": true,
	"system_update":   true,
}

func (o *Orchestrator) applyBoundary(finalScore int, event *domain.Event, now time.Time) domain.Decision {
	switch {
	case finalScore >= 60:
		return domain.Decision{DecisionKind: domain.DecisionNow, Score: finalScore, Reason: "score met the send-now threshold"}
	case finalScore >= 30:
		scheduleAt := now.Add(optimalWindow(event.EventType))
		return domain.Decision{
			DecisionKind: domain.DecisionLater,
			Score:        finalScore,
			Reason:       "score fell in the deferred range",
			ScheduleAt:   &scheduleAt,
		}
	default:
		return domain.Decision{DecisionKind: domain.DecisionNever, Score: finalScore, Reason: "score fell below the minimum threshold"}
	}
}

// optimalWindow returns a uniformly random deferral in the 2-5 hour
// range for low-urgency event types, or 15-45 minutes otherwise.
func optimalWindow(eventType string) time.Duration {
	if longDeferEventTypes[eventType] {
		minutes := longDeferMin + rand.Intn(longDeferMax-longDeferMin+1)
		return time.Duration(minutes) * time.Minute
	}
	minutes := shortDeferMin + rand.Intn(shortDeferMax-shortDeferMin+1)
	return time.Duration(minutes) * time.Minute
}

// recordDelivery stores the fingerprint and bumps the fatigue counters.
// Called only on outcomes that consume user attention (I3).
func (o *Orchestrator) recordDelivery(ctx context.Context, event *domain.Event) {
	o.dedup.StoreFingerprint(ctx, event)
	o.fatigue.RecordDelivery(ctx, event)
}

// finalize builds and writes the audit record, submits deferred
// dispatch for LATER decisions, and returns the final Decision with its
// audit_id attached. Every Evaluate exit path, including the expiry
// short-circuit and the failsafe envelope, funnels through here so an
// audit record is always written before Evaluate returns (I2).
func (o *Orchestrator) finalize(ctx context.Context, state *evalState, decision domain.Decision, now time.Time) domain.Decision {
	auditID := newAuditID()
	decision.AuditID = auditID

	record := &domain.AuditRecord{
		AuditID:      auditID,
		EventID:      eventID(state.event),
		UserID:       state.event.UserID,
		EventType:    state.event.EventType,
		Decision:     string(decision.DecisionKind),
		Score:        int32(decision.Score),
		Reason:       decision.Reason,
		Stages:       state.stages,
		RulesMatched: state.rulesMatched,
		ScheduleAt:   decision.ScheduleAt,
		CreatedAt:    now,
	}
	o.audit.WriteAudit(ctx, record)

	if decision.DecisionKind == domain.DecisionLater && decision.ScheduleAt != nil {
		if err := o.dispatcher.ScheduleDeferred(ctx, state.event, *decision.ScheduleAt, auditID); err != nil {
			o.log.Warn("deferred dispatch submission failed", zap.Error(err), zap.String("audit_id", auditID))
		}
	}

	return decision
}

// newAuditID builds an "aud_" + 8 hex char id drawn from a UUID (§6).
func newAuditID() string {
	id := uuid.New().String()
	return "aud_" + strings.ReplaceAll(id, "-", "")[:8]
}

// eventID derives a stable identifier for the audit trail from fields
// that do not depend on message content, so repeated evaluations of the
// same logical event share an event_id.
func eventID(event *domain.Event) string {
	if event.DedupeKey != "" {
		return event.DedupeKey
	}
	return fmt.Sprintf("%s:%s:%d", event.UserID, event.EventType, event.Timestamp.UnixNano())
}
